package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type fakeStore struct {
	token   *oauth2.Token
	loadErr error
	saveErr error

	loadCalls int
	saveCalls int
	saved     *oauth2.Token
}

func (s *fakeStore) Load() (*oauth2.Token, error) {
	s.loadCalls++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.token, nil
}

func (s *fakeStore) Save(token *oauth2.Token) error {
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = token
	return nil
}

type fakeRefresher struct {
	token *oauth2.Token
	err   error
	calls int
}

func (r *fakeRefresher) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.token, nil
}

type fakeAuthorizer struct {
	token *oauth2.Token
	err   error
	calls int
}

func (a *fakeAuthorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.token, nil
}

var testNow = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func tokenExpiring(in time.Duration) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       testNow.Add(in),
	}
}

func newTestManager(store *fakeStore, authorizer *fakeAuthorizer, refresher *fakeRefresher) *Manager {
	return NewManager(store, authorizer, refresher,
		WithClock(fixedClock),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
}

func TestEnsureValidUsesFreshInMemoryRecord(t *testing.T) {
	store := &fakeStore{}
	authorizer := &fakeAuthorizer{err: errors.New("should not be called")}
	refresher := &fakeRefresher{err: errors.New("should not be called")}
	m := newTestManager(store, authorizer, refresher)

	fresh := tokenExpiring(time.Hour)
	m.current.Store(fresh)

	got, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if got != fresh {
		t.Error("expected the in-memory record to be returned unchanged")
	}
	if store.loadCalls != 0 || store.saveCalls != 0 {
		t.Errorf("expected no store I/O, got %d loads, %d saves", store.loadCalls, store.saveCalls)
	}
	if refresher.calls != 0 || authorizer.calls != 0 {
		t.Error("expected no refresh or authorization for a fresh record")
	}
}

func TestEnsureValidIsIdempotent(t *testing.T) {
	store := &fakeStore{token: tokenExpiring(time.Hour)}
	authorizer := &fakeAuthorizer{err: errors.New("should not be called")}
	refresher := &fakeRefresher{err: errors.New("should not be called")}
	m := newTestManager(store, authorizer, refresher)

	first, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("first EnsureValid() error = %v", err)
	}
	second, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("second EnsureValid() error = %v", err)
	}

	if first != second {
		t.Error("second call should return the same record")
	}
	if store.loadCalls != 1 {
		t.Errorf("loadCalls = %d, want 1 (second call must not hit the store)", store.loadCalls)
	}
}

func TestEnsureValidLoadsStoredUsableRecord(t *testing.T) {
	stored := tokenExpiring(time.Hour)
	store := &fakeStore{token: stored}
	m := newTestManager(store, &fakeAuthorizer{}, &fakeRefresher{})

	got, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if got != stored {
		t.Error("expected the stored record to be returned")
	}
	if m.Token() != stored {
		t.Error("stored record should be bound as the current credential")
	}
}

func TestEnsureValidRefreshesNearExpiryRecord(t *testing.T) {
	store := &fakeStore{token: tokenExpiring(time.Minute)}
	refreshed := tokenExpiring(time.Hour)
	refresher := &fakeRefresher{token: refreshed}
	authorizer := &fakeAuthorizer{err: errors.New("should not be called")}
	m := newTestManager(store, authorizer, refresher)

	got, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if got != refreshed {
		t.Error("expected the refreshed record")
	}
	if refresher.calls != 1 {
		t.Errorf("refresher calls = %d, want 1", refresher.calls)
	}
	if authorizer.calls != 0 {
		t.Error("interactive authorization must not run when refresh succeeds")
	}
	if store.saved != refreshed {
		t.Error("refreshed record should be persisted")
	}
	if m.Token() != refreshed {
		t.Error("refreshed record should be bound")
	}
}

func TestEnsureValidRecordAtThresholdBoundaryIsRefreshed(t *testing.T) {
	// Exactly at the threshold the record is still usable; just below it is
	// not.
	atThreshold := tokenExpiring(DefaultRefreshThreshold)
	store := &fakeStore{token: atThreshold}
	m := newTestManager(store, &fakeAuthorizer{}, &fakeRefresher{err: errors.New("no refresh")})

	got, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if got != atThreshold {
		t.Error("a record expiring exactly at the threshold should still be usable")
	}

	below := tokenExpiring(DefaultRefreshThreshold - time.Second)
	refreshed := tokenExpiring(time.Hour)
	store2 := &fakeStore{token: below}
	refresher := &fakeRefresher{token: refreshed}
	m2 := newTestManager(store2, &fakeAuthorizer{}, refresher)

	got, err = m2.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if got != refreshed {
		t.Error("a record just below the threshold should be refreshed")
	}
}

func TestEnsureValidZeroExpiryIsTrusted(t *testing.T) {
	unbounded := &oauth2.Token{AccessToken: "access"}
	store := &fakeStore{token: unbounded}
	refresher := &fakeRefresher{err: errors.New("should not be called")}
	m := newTestManager(store, &fakeAuthorizer{}, refresher)

	got, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if got != unbounded {
		t.Error("a record with no expiry should be trusted as-is")
	}
}

func TestEnsureValidFallsBackToAuthorizeWhenRefreshFails(t *testing.T) {
	store := &fakeStore{token: tokenExpiring(time.Minute)}
	refresher := &fakeRefresher{err: errors.New("refresh token revoked")}
	authorized := tokenExpiring(time.Hour)
	authorizer := &fakeAuthorizer{token: authorized}
	m := newTestManager(store, authorizer, refresher)

	got, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if got != authorized {
		t.Error("expected the interactively authorized record")
	}
	if refresher.calls != 1 || authorizer.calls != 1 {
		t.Errorf("calls: refresher=%d authorizer=%d, want 1 and 1", refresher.calls, authorizer.calls)
	}
	if store.saved != authorized {
		t.Error("authorized record should be persisted")
	}
}

func TestEnsureValidAuthorizesWhenNoRefreshToken(t *testing.T) {
	noRefresh := &oauth2.Token{
		AccessToken: "access",
		Expiry:      testNow.Add(time.Minute),
	}
	store := &fakeStore{token: noRefresh}
	refresher := &fakeRefresher{err: errors.New("should not be called")}
	authorizer := &fakeAuthorizer{token: tokenExpiring(time.Hour)}
	m := newTestManager(store, authorizer, refresher)

	if _, err := m.EnsureValid(context.Background()); err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if refresher.calls != 0 {
		t.Error("refresh must not be attempted without a refresh token")
	}
	if authorizer.calls != 1 {
		t.Errorf("authorizer calls = %d, want 1", authorizer.calls)
	}
}

func TestEnsureValidTreatsCorruptStoreAsAbsent(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("unexpected end of JSON input")}
	authorizer := &fakeAuthorizer{token: tokenExpiring(time.Hour)}
	m := newTestManager(store, authorizer, &fakeRefresher{})

	got, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if got != authorizer.token {
		t.Error("corrupt store should lead straight to interactive authorization")
	}
}

func TestEnsureValidSurvivesSaveFailure(t *testing.T) {
	store := &fakeStore{
		token:   tokenExpiring(time.Minute),
		saveErr: errors.New("disk full"),
	}
	refreshed := tokenExpiring(time.Hour)
	m := newTestManager(store, &fakeAuthorizer{}, &fakeRefresher{token: refreshed})

	got, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() should not fail on save errors, got %v", err)
	}
	if got != refreshed {
		t.Error("refreshed record should be returned despite the failed save")
	}
	if m.Token() != refreshed {
		t.Error("refreshed record should still be bound in memory")
	}
}

func TestEnsureValidWrapsAuthorizeFailure(t *testing.T) {
	authErr := errors.New("user closed the browser")
	m := newTestManager(&fakeStore{}, &fakeAuthorizer{err: authErr}, &fakeRefresher{})

	_, err := m.EnsureValid(context.Background())
	if err == nil {
		t.Fatal("expected error when authorization fails")
	}
	if !errors.Is(err, authErr) {
		t.Errorf("error should wrap the authorizer failure, got %v", err)
	}
	if m.Token() != nil {
		t.Error("no credential should be bound after a failed authorization")
	}
}

func TestBindDeliversCurrentAndRebinds(t *testing.T) {
	store := &fakeStore{token: tokenExpiring(time.Hour)}
	m := newTestManager(store, &fakeAuthorizer{}, &fakeRefresher{})

	if _, err := m.EnsureValid(context.Background()); err != nil {
		t.Fatal(err)
	}

	var bound []*oauth2.Token
	m.Bind(BinderFunc(func(token *oauth2.Token) {
		bound = append(bound, token)
	}))

	if len(bound) != 1 {
		t.Fatalf("binder should receive the current record at registration, got %d calls", len(bound))
	}

	// Force a swap via refresh.
	store.token = nil
	m.current.Store(tokenExpiring(time.Minute))
	refreshed := tokenExpiring(2 * time.Hour)
	m.refresher = &fakeRefresher{token: refreshed}

	if _, err := m.EnsureValid(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(bound) != 2 {
		t.Fatalf("binder should be re-supplied on swap, got %d calls", len(bound))
	}
	if bound[1] != refreshed {
		t.Error("binder should receive the new record")
	}
}

type countingMetrics struct {
	refreshResults []string
	authResults    []string
}

func (m *countingMetrics) RecordTokenRefresh(_ context.Context, result string) {
	m.refreshResults = append(m.refreshResults, result)
}

func (m *countingMetrics) RecordAuthorization(_ context.Context, result string) {
	m.authResults = append(m.authResults, result)
}

func TestEnsureValidRecordsMetrics(t *testing.T) {
	metrics := &countingMetrics{}
	store := &fakeStore{token: tokenExpiring(time.Minute)}
	m := NewManager(store, &fakeAuthorizer{token: tokenExpiring(time.Hour)}, &fakeRefresher{err: errors.New("revoked")},
		WithClock(fixedClock),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithMetrics(metrics),
	)

	if _, err := m.EnsureValid(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(metrics.refreshResults) != 1 || metrics.refreshResults[0] != "error" {
		t.Errorf("refresh metrics = %v, want [error]", metrics.refreshResults)
	}
	if len(metrics.authResults) != 1 || metrics.authResults[0] != "success" {
		t.Errorf("auth metrics = %v, want [success]", metrics.authResults)
	}
}
