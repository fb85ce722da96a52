package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// fakeTokenEndpoint serves the OAuth2 token exchange with a fixed response.
func fakeTokenEndpoint(t *testing.T, refreshToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"new-access","token_type":"Bearer","expires_in":3600,"refresh_token":%q}`, refreshToken)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       DefaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/auth",
			TokenURL: tokenURL,
		},
	}
}

// driveCallback simulates the user's browser: it parses the consent URL the
// authorizer produced and hits the loopback callback with the given query.
func driveCallback(t *testing.T, authURL string, query func(state string) url.Values) {
	t.Helper()
	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Errorf("invalid consent URL %q: %v", authURL, err)
		return
	}
	redirect := parsed.Query().Get("redirect_uri")
	state := parsed.Query().Get("state")
	if redirect == "" || state == "" {
		t.Errorf("consent URL %q missing redirect_uri or state", authURL)
		return
	}

	resp, err := http.Get(redirect + "?" + query(state).Encode())
	if err != nil {
		t.Errorf("callback request failed: %v", err)
		return
	}
	resp.Body.Close()
}

func TestFlowAuthorizerSuccess(t *testing.T) {
	tokenSrv := fakeTokenEndpoint(t, "new-refresh")

	var consentURL string
	a := NewFlowAuthorizer(testOAuthConfig(tokenSrv.URL),
		WithFlowLogger(slog.New(slog.DiscardHandler)),
		WithBrowserOpener(func(u string) error {
			consentURL = u
			go driveCallback(t, u, func(state string) url.Values {
				return url.Values{"state": {state}, "code": {"auth-code"}}
			})
			return nil
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := a.Authorize(ctx)
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if token.AccessToken != "new-access" {
		t.Errorf("AccessToken = %q, want %q", token.AccessToken, "new-access")
	}
	if token.RefreshToken != "new-refresh" {
		t.Errorf("RefreshToken = %q, want %q", token.RefreshToken, "new-refresh")
	}

	// The consent URL must request offline access with a forced prompt so a
	// refresh token is issued even on re-authorization.
	q, err := url.Parse(consentURL)
	if err != nil {
		t.Fatal(err)
	}
	if got := q.Query().Get("access_type"); got != "offline" {
		t.Errorf("access_type = %q, want offline", got)
	}
	if got := q.Query().Get("prompt"); got != "consent" {
		t.Errorf("prompt = %q, want consent", got)
	}
}

func TestFlowAuthorizerStateMismatch(t *testing.T) {
	a := NewFlowAuthorizer(testOAuthConfig("http://unused.invalid/token"),
		WithFlowLogger(slog.New(slog.DiscardHandler)),
		WithBrowserOpener(func(u string) error {
			go driveCallback(t, u, func(string) url.Values {
				return url.Values{"state": {"forged"}, "code": {"auth-code"}}
			})
			return nil
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.Authorize(ctx)
	if err == nil {
		t.Fatal("Authorize() should fail on a state mismatch")
	}
	if !strings.Contains(err.Error(), "state mismatch") {
		t.Errorf("error = %q, want it to mention the state mismatch", err)
	}
}

func TestFlowAuthorizerConsentDenied(t *testing.T) {
	a := NewFlowAuthorizer(testOAuthConfig("http://unused.invalid/token"),
		WithFlowLogger(slog.New(slog.DiscardHandler)),
		WithBrowserOpener(func(u string) error {
			go driveCallback(t, u, func(state string) url.Values {
				return url.Values{"state": {state}, "error": {"access_denied"}}
			})
			return nil
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.Authorize(ctx)
	if err == nil {
		t.Fatal("Authorize() should fail when consent is denied")
	}
	if !strings.Contains(err.Error(), "access_denied") {
		t.Errorf("error = %q, want it to carry the provider error code", err)
	}
}

func TestFlowAuthorizerContextCancelled(t *testing.T) {
	a := NewFlowAuthorizer(testOAuthConfig("http://unused.invalid/token"),
		WithFlowLogger(slog.New(slog.DiscardHandler)),
		WithBrowserOpener(func(string) error { return nil }), // user never completes
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Authorize(ctx)
	if err == nil {
		t.Fatal("Authorize() should fail when the context is cancelled")
	}
	if !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("error = %q, want a cancellation error", err)
	}
}

func TestConfigFromSecretsFile(t *testing.T) {
	secrets := []byte(`{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.example.com/auth","token_uri":"https://accounts.example.com/token","redirect_uris":["http://localhost"]}}`)

	config, err := ConfigFromSecretsFile(secrets, DefaultScopes)
	if err != nil {
		t.Fatalf("ConfigFromSecretsFile() error = %v", err)
	}
	if config.ClientID != "id" {
		t.Errorf("ClientID = %q, want %q", config.ClientID, "id")
	}
	if len(config.Scopes) != len(DefaultScopes) {
		t.Errorf("Scopes = %v, want %v", config.Scopes, DefaultScopes)
	}

	if _, err := ConfigFromSecretsFile([]byte("not json"), DefaultScopes); err == nil {
		t.Error("ConfigFromSecretsFile() should fail on malformed input")
	}
}

func TestRefresherCarriesRefreshTokenForward(t *testing.T) {
	// Google only rotates the refresh token occasionally; when the response
	// omits it the old one must survive.
	tokenSrv := fakeTokenEndpoint(t, "")
	r := NewRefresher(testOAuthConfig(tokenSrv.URL))

	fresh, err := r.Refresh(context.Background(), &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "long-lived-refresh",
		Expiry:       time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if fresh.AccessToken != "new-access" {
		t.Errorf("AccessToken = %q, want %q", fresh.AccessToken, "new-access")
	}
	if fresh.RefreshToken != "long-lived-refresh" {
		t.Errorf("RefreshToken = %q, want the carried-forward value", fresh.RefreshToken)
	}
}

func TestRefresherRequiresRefreshToken(t *testing.T) {
	r := NewRefresher(testOAuthConfig("http://unused.invalid/token"))

	if _, err := r.Refresh(context.Background(), nil); err == nil {
		t.Error("Refresh(nil) should fail")
	}
	if _, err := r.Refresh(context.Background(), &oauth2.Token{AccessToken: "a"}); err == nil {
		t.Error("Refresh() without a refresh token should fail")
	}
}
