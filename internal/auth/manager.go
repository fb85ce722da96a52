package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/cfressle/webshelf/internal/logging"
)

// DefaultRefreshThreshold is the margin before expiry at which a credential
// is considered due for refresh. Five minutes absorbs clock skew and the
// latency of requests already in flight.
const DefaultRefreshThreshold = 5 * time.Minute

// Binder is a consumer that must be re-supplied whenever the manager binds a
// new credential. BindCredential must be idempotent; it is called with each
// fresh record, including the one current at registration time.
type Binder interface {
	BindCredential(token *oauth2.Token)
}

// BinderFunc adapts a function to the Binder interface.
type BinderFunc func(token *oauth2.Token)

// BindCredential implements Binder.
func (f BinderFunc) BindCredential(token *oauth2.Token) { f(token) }

// Metrics records credential lifecycle outcomes. It is satisfied by
// instrumentation.Metrics; a nil Metrics disables recording.
type Metrics interface {
	RecordTokenRefresh(ctx context.Context, result string)
	RecordAuthorization(ctx context.Context, result string)
}

// Manager owns the process-wide credential. It is the only component that
// replaces the bound credential; replacement is a single atomic swap so a
// concurrent reader never observes a half-updated record.
type Manager struct {
	store      Store
	authorizer Authorizer
	refresher  Refresher
	threshold  time.Duration
	now        func() time.Time
	logger     *slog.Logger
	metrics    Metrics

	// mu serializes EnsureValid and binder registration. It is never held
	// across the atomic read path (Token).
	mu      sync.Mutex
	current atomic.Pointer[oauth2.Token]
	binders []Binder
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithThreshold overrides the refresh threshold.
func WithThreshold(d time.Duration) ManagerOption {
	return func(m *Manager) { m.threshold = d }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics sink for lifecycle outcomes.
func WithMetrics(metrics Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates a credential lifecycle manager. The store, authorizer
// and refresher are required collaborators.
func NewManager(store Store, authorizer Authorizer, refresher Refresher, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		authorizer: authorizer,
		refresher:  refresher,
		threshold:  DefaultRefreshThreshold,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the configured refresh threshold.
func (m *Manager) Threshold() time.Duration {
	return m.threshold
}

// Token returns the currently bound credential, or nil before the first
// successful EnsureValid. It never blocks and never triggers I/O; the
// scheduler keeps the credential fresh.
func (m *Manager) Token() *oauth2.Token {
	return m.current.Load()
}

// Bind registers a consumer to be re-supplied on every credential swap. If a
// credential is already bound it is delivered immediately.
func (m *Manager) Bind(b Binder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binders = append(m.binders, b)
	if token := m.current.Load(); token != nil {
		b.BindCredential(token)
	}
}

// EnsureValid returns a credential usable for at least the refresh threshold,
// producing it from the first available source: the in-memory record, the
// persisted record, a silent refresh, or the interactive authorizer.
//
// Every successful path leaves the durable store holding the returned record
// (a failed save is logged, not surfaced: the next tick retries it). Storage
// read or parse failures are treated as "no record" so the server re-
// authorizes instead of failing on corrupted state.
func (m *Manager) EnsureValid(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := m.current.Load()
	loaded := false
	if token == nil {
		token = m.loadStored()
		loaded = token != nil
	}

	if token != nil && m.usable(token) {
		if loaded {
			m.swap(token)
		}
		return token, nil
	}

	if token != nil && token.RefreshToken != "" {
		fresh, err := m.refresher.Refresh(ctx, token)
		if err == nil {
			m.recordRefresh(ctx, logging.StatusSuccess)
			m.persist(fresh)
			m.swap(fresh)
			return fresh, nil
		}
		m.recordRefresh(ctx, logging.StatusError)
		m.logger.Warn("silent refresh failed, falling back to interactive authorization",
			logging.Operation("refresh"), logging.Err(err))
	}

	fresh, err := m.authorizer.Authorize(ctx)
	if err != nil {
		m.recordAuth(ctx, logging.StatusError)
		return nil, fmt.Errorf("interactive authorization failed: %w", err)
	}
	m.recordAuth(ctx, logging.StatusSuccess)

	m.persist(fresh)
	m.swap(fresh)
	return fresh, nil
}

// usable reports whether the credential is still good for the near-term
// future. A record with no known expiry is trusted; the upstream endpoint
// did not bound its lifetime.
func (m *Manager) usable(token *oauth2.Token) bool {
	if token.Expiry.IsZero() {
		return true
	}
	return token.Expiry.Sub(m.now()) >= m.threshold
}

// loadStored reads the persisted record, mapping read and parse failures to
// "absent" with a diagnostic so operators can tell first run from corrupted
// state.
func (m *Manager) loadStored() *oauth2.Token {
	token, err := m.store.Load()
	if err != nil {
		m.logger.Warn("credential store unreadable, treating record as absent",
			logging.Operation("load"), logging.Err(err))
		return nil
	}
	return token
}

func (m *Manager) persist(token *oauth2.Token) {
	if err := m.store.Save(token); err != nil {
		m.logger.Error("failed to persist credential, continuing with in-memory record",
			logging.Operation("save"), logging.Err(err))
	}
}

// swap atomically replaces the bound credential and re-supplies every
// registered binder. Callers hold m.mu.
func (m *Manager) swap(token *oauth2.Token) {
	m.current.Store(token)
	for _, b := range m.binders {
		b.BindCredential(token)
	}
}

func (m *Manager) recordRefresh(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(ctx, result)
	}
}

func (m *Manager) recordAuth(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordAuthorization(ctx, result)
	}
}
