package console

import "time"

// Normalizer reshapes the period-keyed dashboard payload into DashboardStats.
type Normalizer struct {
	// MergePeriods keeps every period present in the payload instead of
	// keeping only the requested one.
	MergePeriods bool
	clock        func() time.Time
}

// NewNormalizer returns a normalizer using wall-clock UTC time as the
// generated_at fallback.
func NewNormalizer(mergePeriods bool) *Normalizer {
	return &Normalizer{
		MergePeriods: mergePeriods,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// ZeroMetric is the placeholder for a metric the backend did not report.
func ZeroMetric() Metric {
	return Metric{Trend: TrendUp}
}

// ZeroPeriodMetrics is the zero-metric template of a period.
func ZeroPeriodMetrics() PeriodMetrics {
	return PeriodMetrics{
		Revenue:       ZeroMetric(),
		Customers:     ZeroMetric(),
		AverageOrder:  ZeroMetric(),
		TableTurnover: ZeroMetric(),
	}
}

// EmptyDashboardStats returns a complete dashboard payload with no figures.
func EmptyDashboardStats(role Role, at time.Time) DashboardStats {
	stats := DashboardStats{
		PerformanceStats: make(PerformanceStats, len(Periods)),
		StaffPerformance: []StaffPerformance{},
		PopularItems:     []PopularItem{},
		RecentOrders:     []RecentOrder{},
		UserRole:         role,
		GeneratedAt:      at,
	}
	for _, p := range Periods {
		stats.PerformanceStats[p] = ZeroPeriodMetrics()
	}
	return stats
}

// Normalize builds the full three-period structure. Only the requested period
// carries backend values; the other two are reset to the zero template even
// when the payload contains them, unless MergePeriods is set.
func (n *Normalizer) Normalize(raw *RawDashboard, requested PeriodKey, fallbackRole Role) DashboardStats {
	if raw == nil {
		raw = &RawDashboard{}
	}
	out := EmptyDashboardStats(fallbackRole, n.now())

	for _, p := range Periods {
		if p != requested && !n.MergePeriods {
			continue
		}
		if metrics, ok := raw.PerformanceStats[p]; ok && metrics != nil {
			out.PerformanceStats[p] = metrics.normalize()
		}
	}

	if raw.StaffPerformance != nil {
		out.StaffPerformance = raw.StaffPerformance
	}
	if raw.PopularItems != nil {
		out.PopularItems = raw.PopularItems
	}
	if raw.RecentOrders != nil {
		out.RecentOrders = raw.RecentOrders
	}
	if raw.UserRole != nil && *raw.UserRole != "" {
		out.UserRole = *raw.UserRole
	}
	if raw.GeneratedAt != nil && !raw.GeneratedAt.IsZero() {
		out.GeneratedAt = *raw.GeneratedAt
	}
	return out
}

func (n *Normalizer) now() time.Time {
	if n == nil || n.clock == nil {
		return time.Now().UTC()
	}
	return n.clock()
}

func (m *RawPeriodMetrics) normalize() PeriodMetrics {
	return PeriodMetrics{
		Revenue:       m.Revenue.normalize(),
		Customers:     m.Customers.normalize(),
		AverageOrder:  m.AverageOrder.normalize(),
		TableTurnover: m.TableTurnover.normalize(),
	}
}

func (m *RawMetric) normalize() Metric {
	out := ZeroMetric()
	if m == nil {
		return out
	}
	if m.Current != nil {
		out.Current = *m.Current
	}
	if m.Previous != nil {
		out.Previous = *m.Previous
	}
	if m.Change != nil {
		out.Change = *m.Change
	}
	if m.Trend != nil && (*m.Trend == TrendUp || *m.Trend == TrendDown) {
		out.Trend = *m.Trend
	}
	return out
}
