package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"

	"github.com/cfressle/webshelf/internal/logging"
)

// DefaultScopes are the Google OAuth scopes the server requests. Drive access
// is read-only; the tool surface never writes.
var DefaultScopes = []string{
	drive.DriveReadonlyScope,
}

// Authorizer obtains a fresh credential through an interactive consent flow.
// Authorize blocks until the user completes (or the context cancels) and the
// returned record includes a refresh token when the scopes allow offline
// access.
type Authorizer interface {
	Authorize(ctx context.Context) (*oauth2.Token, error)
}

// ConfigFromSecretsFile builds an OAuth2 config from a Google client secrets
// JSON file (the "credentials.json" downloaded from the Cloud console).
func ConfigFromSecretsFile(data []byte, scopes []string) (*oauth2.Config, error) {
	config, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	return config, nil
}

// FlowAuthorizer runs the loopback-redirect consent flow: it listens on an
// ephemeral localhost port, sends the user's browser to Google's consent
// page, and exchanges the returned authorization code for a token pair.
type FlowAuthorizer struct {
	config      *oauth2.Config
	logger      *slog.Logger
	openBrowser func(url string) error
}

// FlowOption configures a FlowAuthorizer.
type FlowOption func(*FlowAuthorizer)

// WithFlowLogger sets the logger used during the consent flow.
func WithFlowLogger(logger *slog.Logger) FlowOption {
	return func(a *FlowAuthorizer) { a.logger = logger }
}

// WithBrowserOpener overrides how the consent URL is handed to a browser.
// Used in tests.
func WithBrowserOpener(open func(url string) error) FlowOption {
	return func(a *FlowAuthorizer) { a.openBrowser = open }
}

// NewFlowAuthorizer creates an authorizer that drives the local browser-based
// consent flow for the given OAuth2 config.
func NewFlowAuthorizer(config *oauth2.Config, opts ...FlowOption) *FlowAuthorizer {
	a := &FlowAuthorizer{
		config:      config,
		logger:      slog.Default(),
		openBrowser: openSystemBrowser,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize runs the consent flow. It requests offline access with a forced
// consent prompt so Google issues a refresh token even on re-authorization.
func (a *FlowAuthorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start local callback listener: %w", err)
	}
	defer listener.Close()

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	// The redirect URL must match the listener we just opened.
	config := *a.config
	config.RedirectURL = fmt.Sprintf("http://%s/callback", listener.Addr().String())

	authURL := config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization callback state mismatch")
			return
		}
		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			http.Error(w, "authorization denied", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", errMsg)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization callback missing code")
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("callback server failed: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := a.openBrowser(authURL); err != nil {
		a.logger.Warn("could not open browser, visit the URL manually",
			logging.Err(err), slog.String("url", authURL))
	} else {
		a.logger.Info("waiting for authorization in browser",
			logging.Operation("authorize"))
	}

	var code string
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization cancelled: %w", ctx.Err())
	case err := <-errCh:
		return nil, err
	case code = <-codeCh:
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return token, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func openSystemBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
