package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cfressle/webshelf/internal/auth"
	"github.com/cfressle/webshelf/internal/browser"
	"github.com/cfressle/webshelf/internal/drive"
	"github.com/cfressle/webshelf/internal/instrumentation"
)

// ServerContext holds the shared state for the MCP server
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	manager *auth.Manager
	drive   *drive.Client
	browser *browser.Session
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, manager *auth.Manager, logger *slog.Logger) *ServerContext {
	if logger == nil {
		logger = slog.Default()
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		manager: manager,
		browser: browser.NewSession(logger),
		logger:  logger,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// AuthManager returns the credential lifecycle manager
func (sc *ServerContext) AuthManager() *auth.Manager {
	return sc.manager
}

// DriveClient returns the Drive client, or nil when none has been bound yet
func (sc *ServerContext) DriveClient() *drive.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.drive
}

// SetDriveClient installs the Drive client once the initial credential is
// available
func (sc *ServerContext) SetDriveClient(client *drive.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.drive = client
}

// Browser returns the browser session
func (sc *ServerContext) Browser() *browser.Session {
	return sc.browser
}

// Metrics returns the recorder for tool and API metrics. May be nil when
// instrumentation is disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics installs the metrics recorder
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shut down
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and releases the browser session
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sc.mu.Unlock()

	sc.cancel()
	return sc.browser.Shutdown()
}
