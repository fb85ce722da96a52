package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/cfressle/webshelf/internal/auth"
	"github.com/cfressle/webshelf/internal/drive"
	"github.com/cfressle/webshelf/internal/instrumentation"
	"github.com/cfressle/webshelf/internal/logging"
	"github.com/cfressle/webshelf/internal/resources"
	"github.com/cfressle/webshelf/internal/server"
	"github.com/cfressle/webshelf/internal/tools/browser_tools"
	"github.com/cfressle/webshelf/internal/tools/drive_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// AuthConfig holds the credential lifecycle configuration resolved from
// flags and environment variables.
type AuthConfig struct {
	// CredentialsFile is the path of the persisted credential record.
	CredentialsFile string

	// ClientSecretsFile is the path of the Google OAuth client secrets JSON.
	ClientSecretsFile string

	// AuthTimeout bounds scheduled refresh attempts. Zero means unbounded.
	AuthTimeout time.Duration

	// RefreshInterval is the background refresh cadence.
	RefreshInterval time.Duration
}

func newServeCmd() *cobra.Command {
	var (
		debugMode bool
		transport string
		httpAddr  string

		credentialsFile   string
		clientSecretsFile string
		authTimeout       time.Duration
		refreshInterval   time.Duration

		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server providing browser
automation and Google Drive tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Credentials:
  The Google OAuth client secrets JSON is read from --client-secrets-file
  or the GOOGLE_CLIENT_SECRETS env var. The obtained credential record is
  persisted at --credentials-file (WEBSHELF_CREDENTIALS_FILE env var,
  default: <user-config-dir>/webshelf/credentials.json).

  At startup the server ensures a valid credential: a persisted refresh
  token is used silently when possible; otherwise the interactive browser
  consent flow runs once. Startup fails when no credential can be
  obtained. A background scheduler then keeps the credential fresh for
  the process lifetime.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			authConfig := AuthConfig{
				CredentialsFile:   credentialsFile,
				ClientSecretsFile: clientSecretsFile,
				AuthTimeout:       authTimeout,
				RefreshInterval:   refreshInterval,
			}
			if err := resolveAuthConfig(&authConfig); err != nil {
				return err
			}

			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}

			return runServe(transport, debugMode, httpAddr, authConfig, metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")

	cmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "Path of the persisted credential record. Can also use WEBSHELF_CREDENTIALS_FILE env var. Default: <user-config-dir>/webshelf/credentials.json")
	cmd.Flags().StringVar(&clientSecretsFile, "client-secrets-file", "", "Path of the Google OAuth client secrets JSON. Can also use GOOGLE_CLIENT_SECRETS env var.")
	cmd.Flags().DurationVar(&authTimeout, "auth-timeout", 5*time.Minute, "Timeout for scheduled credential refresh attempts (0 = unbounded)")
	cmd.Flags().DurationVar(&refreshInterval, "refresh-interval", auth.DefaultRefreshInterval, "Background credential refresh interval")

	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// resolveAuthConfig fills unset fields from environment variables and
// defaults.
func resolveAuthConfig(config *AuthConfig) error {
	if config.CredentialsFile == "" {
		config.CredentialsFile = os.Getenv("WEBSHELF_CREDENTIALS_FILE")
	}
	if config.CredentialsFile == "" {
		path, err := auth.DefaultStorePath()
		if err != nil {
			return fmt.Errorf("failed to determine credentials path: %w", err)
		}
		config.CredentialsFile = path
	}

	if config.ClientSecretsFile == "" {
		config.ClientSecretsFile = os.Getenv("GOOGLE_CLIENT_SECRETS")
	}
	if config.ClientSecretsFile == "" {
		return fmt.Errorf("Google OAuth client secrets are required: set --client-secrets-file or GOOGLE_CLIENT_SECRETS")
	}

	if config.RefreshInterval <= 0 {
		config.RefreshInterval = auth.DefaultRefreshInterval
	}

	return nil
}

// buildManager wires store, authorizer and refresher into a Manager.
func buildManager(config AuthConfig, opts ...auth.ManagerOption) (*auth.Manager, error) {
	secrets, err := os.ReadFile(config.ClientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets file: %w", err)
	}
	oauthConfig, err := auth.ConfigFromSecretsFile(secrets, auth.DefaultScopes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}

	store := auth.NewFileStore(config.CredentialsFile)
	authorizer := auth.NewFlowAuthorizer(oauthConfig)
	refresher := auth.NewRefresher(oauthConfig)

	return auth.NewManager(store, authorizer, refresher, opts...), nil
}

func runServe(transport string, debugMode bool, httpAddr string, authConfig AuthConfig, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Stdout belongs to the stdio transport; all logging goes to stderr.
	logger := logging.Setup(os.Stderr, debugMode)

	// Load metrics config from environment if not set via flags
	if !metricsConfig.Enabled && os.Getenv("METRICS_ENABLED") == "true" {
		metricsConfig.Enabled = true
	}
	if metricsConfig.Addr == "" || metricsConfig.Addr == ":9090" {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			metricsConfig.Addr = addr
		}
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	// Build the credential lifecycle manager
	managerOpts := []auth.ManagerOption{auth.WithLogger(logger)}
	if provider.Enabled() {
		managerOpts = append(managerOpts, auth.WithMetrics(provider.Metrics()))
	}
	manager, err := buildManager(authConfig, managerOpts...)
	if err != nil {
		return err
	}

	// Create server context
	serverContext := server.NewServerContext(shutdownCtx, manager, logger)
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	// Obtain the initial credential. The interactive consent flow may run
	// here; a failure is fatal so the server never starts without Drive
	// access.
	if _, err := manager.EnsureValid(shutdownCtx); err != nil {
		return fmt.Errorf("failed to obtain initial credential: %w", err)
	}
	logger.Info("credential ready",
		logging.Operation("startup"),
		"store", authConfig.CredentialsFile)

	// Bind the Drive client. The token source reads the manager snapshot,
	// so later credential swaps take effect without rebinding.
	driveClient, err := drive.NewClient(shutdownCtx, manager.TokenSource())
	if err != nil {
		return fmt.Errorf("failed to create Drive client: %w", err)
	}
	serverContext.SetDriveClient(driveClient)

	// Log credential swaps for diagnosability.
	manager.Bind(auth.BinderFunc(func(token *oauth2.Token) {
		logger.Debug("credential bound", "expiry", token.Expiry)
	}))

	// Start the background refresh scheduler
	schedulerOpts := []auth.SchedulerOption{
		auth.WithInterval(authConfig.RefreshInterval),
		auth.WithSchedulerLogger(logger),
	}
	if authConfig.AuthTimeout > 0 {
		schedulerOpts = append(schedulerOpts, auth.WithAuthTimeout(authConfig.AuthTimeout))
	}
	scheduler, err := auth.NewScheduler(manager, schedulerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create refresh scheduler: %w", err)
	}
	scheduler.Start(shutdownCtx)
	defer scheduler.Wait()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if transport != "stdio" && metricsConfig.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(metricsConfig.Addr, provider)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("webshelf", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
	)

	// Register all tools and resources
	if err := registerAll(mcpSrv, serverContext); err != nil {
		return err
	}

	// Start the appropriate server based on transport type
	switch transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, httpAddr, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, addr string, logger *slog.Logger) error {
	httpServer := mcpserver.NewStreamableHTTPServer(mcpSrv)

	logger.Info("starting streamable HTTP server", "addr", addr)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	return nil
}

// registerAll registers all MCP tools and resources
func registerAll(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext) error {
	type registration struct {
		name     string
		register func() error
	}

	registrations := []registration{
		{
			name: "Drive tools",
			register: func() error {
				return drive_tools.RegisterDriveTools(mcpSrv, ctx)
			},
		},
		{
			name: "Browser tools",
			register: func() error {
				return browser_tools.RegisterBrowserTools(mcpSrv, ctx)
			},
		},
		{
			name: "Drive resources",
			register: func() error {
				return resources.RegisterDriveResources(mcpSrv, ctx)
			},
		},
		{
			name: "Browser resources",
			register: func() error {
				return resources.RegisterBrowserResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
