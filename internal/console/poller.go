package console

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPollInterval is the dashboard refresh cadence.
const DefaultPollInterval = 30 * time.Second

// Ticker is the subset of time.Ticker the poller uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers. Tests replace it to drive ticks by hand.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type wallClock struct{}

type wallTicker struct{ t *time.Ticker }

func (wallClock) NewTicker(d time.Duration) Ticker { return wallTicker{t: time.NewTicker(d)} }

func (w wallTicker) C() <-chan time.Time { return w.t.C }

func (w wallTicker) Stop() { w.t.Stop() }

// WallClock returns the real-time clock.
func WallClock() Clock { return wallClock{} }

// RefreshFunc refreshes the dashboard for the period. It is called from the
// lease goroutine, one call at a time.
type RefreshFunc func(ctx context.Context, period PeriodKey)

// Lease is an armed recurring dashboard refresh.
type Lease struct {
	ID        uuid.UUID
	Period    PeriodKey
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
	primed chan struct{}
}

// PollStatus describes the poller for read models.
type PollStatus struct {
	Active    bool      `json:"active"`
	LeaseID   string    `json:"lease_id,omitempty"`
	Period    PeriodKey `json:"period,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Poller keeps at most one Lease alive. It is Idle when no lease is armed.
type Poller struct {
	mu       sync.Mutex
	base     context.Context
	interval time.Duration
	clock    Clock
	refresh  RefreshFunc
	lease    *Lease
	logger   *slog.Logger
	metrics  *Metrics
}

// PollerConfig collects the Poller dependencies.
type PollerConfig struct {
	Interval time.Duration
	Clock    Clock
	Refresh  RefreshFunc
	Logger   *slog.Logger
	Metrics  *Metrics
}

// NewPoller builds an idle poller. Leases derive their context from base, so
// cancelling base stops every future refresh.
func NewPoller(base context.Context, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = WallClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		base:     base,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		refresh:  cfg.Refresh,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Start arms a lease for the period. A live lease is replaced.
func (p *Poller) Start(period PeriodKey) *Lease {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	ctx, cancel := context.WithCancel(p.base)
	lease := &Lease{
		ID:        uuid.New(),
		Period:    period,
		StartedAt: time.Now().UTC(),
		cancel:    cancel,
		done:      make(chan struct{}),
		primed:    make(chan struct{}),
	}
	ticker := p.clock.NewTicker(p.interval)
	p.lease = lease
	p.metrics.leaseArmed(1)
	p.logger.Debug("polling lease armed",
		slog.String("lease_id", lease.ID.String()),
		slog.String("period", string(period)),
		slog.Duration("interval", p.interval))

	go p.run(ctx, lease, ticker)
	return lease
}

// Restart replaces the live lease with one bound to period. The old lease is
// fully stopped before the new one fires.
func (p *Poller) Restart(period PeriodKey) *Lease {
	return p.Start(period)
}

// Stop cancels the live lease. No refresh fires after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Primed returns a channel closed once the live lease has finished its
// immediate refresh. It is already closed when the poller is idle.
func (p *Poller) Primed() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lease == nil {
		return closedChan
	}
	return p.lease.primed
}

// Status reports the current state.
func (p *Poller) Status() PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lease == nil {
		return PollStatus{}
	}
	return PollStatus{
		Active:    true,
		LeaseID:   p.lease.ID.String(),
		Period:    p.lease.Period,
		StartedAt: p.lease.StartedAt,
	}
}

func (p *Poller) stopLocked() {
	if p.lease == nil {
		return
	}
	lease := p.lease
	p.lease = nil
	lease.cancel()
	<-lease.done
	p.metrics.leaseArmed(-1)
	p.logger.Debug("polling lease released", slog.String("lease_id", lease.ID.String()))
}

func (p *Poller) run(ctx context.Context, lease *Lease, ticker Ticker) {
	defer close(lease.done)
	defer ticker.Stop()

	if p.refresh == nil {
		close(lease.primed)
		<-ctx.Done()
		return
	}
	p.refresh(ctx, lease.Period)
	close(lease.primed)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			p.metrics.recordPollTick()
			p.refresh(ctx, lease.Period)
		}
	}
}
