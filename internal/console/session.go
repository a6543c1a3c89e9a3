package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SessionConfig carries the tunables shared by every console session.
type SessionConfig struct {
	API          API
	Registry     *Registry
	FetchTimeout time.Duration
	PollInterval time.Duration
	Clock        Clock
	Logger       *slog.Logger
	Metrics      *Metrics
}

// Session is one user's orchestration state: navigation, domain store,
// dispatcher and dashboard poller.
type Session struct {
	ID string

	mu         sync.Mutex
	view       ViewState
	period     PeriodKey
	lastSub    map[View]Subsection
	visited    map[View]bool
	lastSeen   time.Time
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
	store      *Store
	fetcher    *Fetcher
	dispatcher *Dispatcher
	poller     *Poller
	logger     *slog.Logger
}

// NavigationResult reports what a navigation event triggered.
type NavigationResult struct {
	View       ViewState `json:"view"`
	Dispatched DomainSet `json:"dispatched"`
}

// SessionState is the read model served to the UI.
type SessionState struct {
	ID      string                   `json:"id"`
	View    ViewState                `json:"view"`
	Period  PeriodKey                `json:"period"`
	Polling PollStatus               `json:"polling"`
	Domains map[DomainID]DomainState `json:"domains"`
}

// NewSession creates a session positioned on view with no fetches issued.
func NewSession(id string, creds Credentials, start ViewState, cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("console_session", id))

	ctx, cancel := context.WithCancel(context.Background())
	store := NewStore()
	fetcher := NewFetcher(FetcherConfig{
		Registry:    cfg.Registry,
		Store:       store,
		API:         cfg.API,
		Credentials: creds,
		Timeout:     cfg.FetchTimeout,
		Logger:      logger,
		Metrics:     cfg.Metrics,
	})
	s := &Session{
		ID:         id,
		view:       start,
		period:     PeriodToday,
		lastSub:    make(map[View]Subsection),
		visited:    make(map[View]bool),
		lastSeen:   time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		store:      store,
		fetcher:    fetcher,
		dispatcher: NewDispatcher(fetcher, logger, cfg.Metrics),
		logger:     logger,
	}
	s.poller = NewPoller(ctx, PollerConfig{
		Interval: cfg.PollInterval,
		Clock:    cfg.Clock,
		Logger:   logger,
		Metrics:  cfg.Metrics,
		Refresh: func(ctx context.Context, period PeriodKey) {
			_ = fetcher.Fetch(ctx, DomainDashboard, Params{Period: period})
		},
	})
	return s
}

// Navigate moves the session to view/subsection and triggers the fetches the
// dispatch policy asks for.
func (s *Session) Navigate(view View, sub Subsection) (NavigationResult, error) {
	next, err := NewViewState(view, sub)
	if err != nil {
		return NavigationResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NavigationResult{}, ErrSessionClosed
	}
	s.lastSeen = time.Now()

	prev := s.view
	nav := Navigation{
		View:               next.ActiveView,
		Subsection:         next.ActiveSubsection,
		PreviousSubsection: s.previousSubsectionLocked(next.ActiveView),
		Period:             s.period,
	}
	s.view = next
	s.lastSub[next.ActiveView] = next.ActiveSubsection
	s.visited[next.ActiveView] = true

	if prev.ActiveView == ViewDashboard && next.ActiveView != ViewDashboard {
		s.poller.Stop()
		s.store.Abandon(DomainDashboard)
	}

	set := s.dispatcher.Dispatch(s.ctx, nav)
	if set.Contains(DomainDashboard) {
		s.poller.Start(s.period)
	}

	s.logger.Debug("navigated",
		slog.String("view", string(next.ActiveView)),
		slog.String("subsection", string(next.ActiveSubsection)),
		slog.Any("dispatched", set))
	return NavigationResult{View: next, Dispatched: set}, nil
}

// previousSubsectionLocked returns the subsection the view was last visited
// with. A view never visited reports the sentinel so its first entry always
// counts as a subsection change.
func (s *Session) previousSubsectionLocked(view View) Subsection {
	if !s.visited[view] {
		return unvisited
	}
	return s.lastSub[view]
}

// unvisited never equals a declared subsection.
const unvisited Subsection = "\x00"

// SetPeriod selects the dashboard period. A live lease is re-armed with the
// new period and refreshes immediately.
func (s *Session) SetPeriod(period PeriodKey) error {
	if _, err := ParsePeriod(string(period)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.lastSeen = time.Now()
	if s.period == period {
		return nil
	}
	s.period = period
	if s.view.ActiveView == ViewDashboard {
		s.poller.Restart(period)
	}
	return nil
}

// Retry re-runs the fetch routine of a domain with the session's current
// parameters.
func (s *Session) Retry(id DomainID) error {
	if _, err := s.fetcher.Registry().Lookup(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.lastSeen = time.Now()
	params := Params{Period: s.period}
	if s.view.ActiveView == viewOf(id) {
		params.Subsection = s.view.ActiveSubsection
	} else {
		params.Subsection = s.lastSub[viewOf(id)]
	}
	s.dispatcher.Fetch(s.ctx, id, params)
	return nil
}

// viewOf maps a domain to the view whose subsection parameterises it.
func viewOf(id DomainID) View {
	switch id {
	case DomainReports:
		return ViewReports
	case DomainFinancial:
		return ViewFinancial
	}
	return ""
}

// Wait blocks until every dispatched fetch has completed, together with the
// immediate refresh of a freshly armed dashboard lease, or ctx is done.
// Later poll ticks are not waited for.
func (s *Session) Wait(ctx context.Context) error {
	pending := []<-chan struct{}{s.dispatcher.Idle(), s.poller.Primed()}
	for _, ch := range pending {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Domain returns the state of one domain.
func (s *Session) Domain(id DomainID) (DomainState, error) {
	if _, err := s.fetcher.Registry().Lookup(id); err != nil {
		return DomainState{}, err
	}
	return s.renderSafe(id, s.store.Get(id)), nil
}

// renderSafe substitutes the empty default for data never populated, so the
// read model never serves null. The store itself is left untouched.
func (s *Session) renderSafe(id DomainID, st DomainState) DomainState {
	if st.Data == nil {
		if entry, err := s.fetcher.Registry().Lookup(id); err == nil {
			st.Data = entry.EmptyDefault()
		}
	}
	return st
}

// State returns the full read model.
func (s *Session) State() SessionState {
	s.mu.Lock()
	view, period := s.view, s.period
	s.mu.Unlock()
	domains := s.store.Snapshot()
	for id, st := range domains {
		domains[id] = s.renderSafe(id, st)
	}
	return SessionState{
		ID:      s.ID,
		View:    view,
		Period:  period,
		Polling: s.poller.Status(),
		Domains: domains,
	}
}

// Touch marks the session as used.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// IdleSince reports when the session was last used.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close stops the poller, aborts in-flight fetches and waits for them.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.poller.Stop()
	s.cancel()
	s.mu.Unlock()
	s.dispatcher.Wait()
}

// Manager owns every live session of the process.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      SessionConfig
	metrics  *Metrics
	logger   *slog.Logger
}

// NewManager builds a session manager.
func NewManager(cfg SessionConfig) *Manager {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// Session returns the live session for id, creating one positioned on the
// dashboard view when none exists. A new session issues no fetch and arms no
// lease until the first navigation.
func (m *Manager) Session(id string, creds Credentials) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("console: session id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		sess.Touch()
		return sess, nil
	}
	sess := NewSession(id, creds, ViewState{ActiveView: ViewDashboard}, m.cfg)
	m.sessions[id] = sess
	m.metrics.sessionCount(1)
	return sess, nil
}

// Lookup returns the live session for id without creating one.
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Close shuts down the session for id.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	sess.Close()
	m.metrics.sessionCount(-1)
	return true
}

// Sweep closes sessions idle for longer than ttl and returns how many were
// closed.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	m.mu.Lock()
	var idle []*Session
	for id, sess := range m.sessions {
		if sess.IdleSince().Before(cutoff) {
			idle = append(idle, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		sess.Close()
		m.metrics.sessionCount(-1)
	}
	if len(idle) > 0 {
		m.logger.Info("console sessions swept", slog.Int("closed", len(idle)))
	}
	return len(idle)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		all = append(all, sess)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, sess := range all {
		sess.Close()
		m.metrics.sessionCount(-1)
	}
}
