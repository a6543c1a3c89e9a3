package console

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the orchestration layer. A nil
// *Metrics records nothing.
type Metrics struct {
	fetches      *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	cacheHits    *prometheus.CounterVec
	discarded    *prometheus.CounterVec
	pollTicks    prometheus.Counter
	leases       prometheus.Gauge
	sessions     prometheus.Gauge
}

// NewMetrics registers the console collectors against reg, reusing collectors
// that are already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablewise_console_fetch_total",
			Help: "Domain fetch routines by outcome.",
		}, []string{"domain", "outcome"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tablewise_console_fetch_duration_seconds",
			Help:    "Duration of upstream calls made by fetch routines.",
			Buckets: prometheus.DefBuckets,
		}, []string{"domain"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablewise_console_cache_hits_total",
			Help: "Navigation events served from the domain store without a fetch.",
		}, []string{"domain"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablewise_console_stale_discards_total",
			Help: "Fetch results dropped because a newer fetch superseded them.",
		}, []string{"domain"}),
		pollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tablewise_console_poll_ticks_total",
			Help: "Dashboard refreshes fired by polling leases.",
		}),
		leases: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tablewise_console_active_leases",
			Help: "Polling leases currently armed.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tablewise_console_sessions",
			Help: "Console sessions held in memory.",
		}),
	}

	collectors := []prometheus.Collector{
		m.fetches, m.fetchLatency, m.cacheHits, m.discarded, m.pollTicks, m.leases, m.sessions,
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, fmt.Errorf("console metrics: register: %w", err)
			}
			if err := m.adopt(i, already.ExistingCollector); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) adopt(idx int, existing prometheus.Collector) error {
	var ok bool
	switch idx {
	case 0:
		m.fetches, ok = existing.(*prometheus.CounterVec)
	case 1:
		m.fetchLatency, ok = existing.(*prometheus.HistogramVec)
	case 2:
		m.cacheHits, ok = existing.(*prometheus.CounterVec)
	case 3:
		m.discarded, ok = existing.(*prometheus.CounterVec)
	case 4:
		m.pollTicks, ok = existing.(prometheus.Counter)
	case 5:
		m.leases, ok = existing.(prometheus.Gauge)
	case 6:
		m.sessions, ok = existing.(prometheus.Gauge)
	}
	if !ok {
		return fmt.Errorf("console metrics: unexpected collector type %T", existing)
	}
	return nil
}

func (m *Metrics) recordFetch(domain DomainID, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(string(domain), outcome).Inc()
	if took > 0 {
		m.fetchLatency.WithLabelValues(string(domain)).Observe(took.Seconds())
	}
}

func (m *Metrics) recordCacheHit(domain DomainID) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(string(domain)).Inc()
}

func (m *Metrics) recordDiscard(domain DomainID) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(string(domain)).Inc()
}

func (m *Metrics) recordPollTick() {
	if m == nil {
		return
	}
	m.pollTicks.Inc()
}

func (m *Metrics) leaseArmed(delta float64) {
	if m == nil {
		return
	}
	m.leases.Add(delta)
}

func (m *Metrics) sessionCount(delta float64) {
	if m == nil {
		return
	}
	m.sessions.Add(delta)
}
