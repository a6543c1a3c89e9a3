package console

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DomainSet is an ordered, duplicate-free set of domains.
type DomainSet []DomainID

// Contains reports whether the set holds id.
func (s DomainSet) Contains(id DomainID) bool {
	return slices.Contains(s, id)
}

func (s DomainSet) add(id DomainID) DomainSet {
	if s.Contains(id) {
		return s
	}
	return append(s, id)
}

// Navigation is one navigation event as seen by the dispatcher.
type Navigation struct {
	View               View
	Subsection         Subsection
	PreviousSubsection Subsection
	Period             PeriodKey
}

// policy is one row of the dispatch table.
type policy func(nav Navigation, c cacheView) DomainSet

// cacheView answers emptiness questions against the current store.
type cacheView struct {
	store    StoreReader
	registry *Registry
}

func (c cacheView) empty(id DomainID) bool {
	return c.registry.IsEmpty(id, c.store.Get(id).Data)
}

func when(cond bool, id DomainID) DomainSet {
	if cond {
		return DomainSet{id}
	}
	return nil
}

var dispatchTable = map[View]policy{
	ViewDashboard: func(Navigation, cacheView) DomainSet {
		return DomainSet{DomainDashboard}
	},
	ViewStaff: func(_ Navigation, c cacheView) DomainSet {
		return when(c.empty(DomainStaff), DomainStaff)
	},
	ViewInventory: func(nav Navigation, c cacheView) DomainSet {
		set := when(c.empty(DomainInventoryReport), DomainInventoryReport)
		switch nav.Subsection {
		case SubsectionStockManagement:
			if c.empty(DomainStock) {
				set = set.add(DomainStock)
			}
		case SubsectionSuppliers:
			if c.empty(DomainSuppliers) {
				set = set.add(DomainSuppliers)
			}
		}
		return set
	},
	ViewReports: func(nav Navigation, c cacheView) DomainSet {
		return when(c.empty(DomainReports) || nav.Subsection != nav.PreviousSubsection, DomainReports)
	},
	ViewSettings: func(nav Navigation, c cacheView) DomainSet {
		return when(nav.Subsection == SubsectionUserManagement && c.empty(DomainUsers), DomainUsers)
	},
	ViewMenu: func(_ Navigation, c cacheView) DomainSet {
		return when(c.empty(DomainMenu), DomainMenu)
	},
	ViewOperations: func(nav Navigation, c cacheView) DomainSet {
		switch nav.Subsection {
		case SubsectionTablesReservations:
			return when(c.empty(DomainTables), DomainTables)
		case SubsectionOrdersService:
			return when(c.empty(DomainOrders), DomainOrders)
		case SubsectionKitchenOperations:
			return when(c.empty(DomainKitchen), DomainKitchen)
		}
		return nil
	},
	ViewStock: func(_ Navigation, c cacheView) DomainSet {
		return when(c.empty(DomainStock), DomainStock)
	},
	ViewSuppliers: func(_ Navigation, c cacheView) DomainSet {
		return when(c.empty(DomainSuppliers), DomainSuppliers)
	},
	ViewRecipes: func(_ Navigation, c cacheView) DomainSet {
		return when(c.empty(DomainRecipes), DomainRecipes)
	},
	ViewFinancial: func(nav Navigation, c cacheView) DomainSet {
		return when(c.empty(DomainFinancial) || nav.Subsection != nav.PreviousSubsection, DomainFinancial)
	},
}

// Plan evaluates the dispatch table for one navigation event and returns the
// domains that must be fetched. It has no side effects.
func Plan(nav Navigation, store StoreReader, registry *Registry) DomainSet {
	rule, ok := dispatchTable[nav.View]
	if !ok {
		return DomainSet{}
	}
	set := rule(nav, cacheView{store: store, registry: registry})
	if set == nil {
		return DomainSet{}
	}
	return set
}

// relevantDomains lists the domains a view may read, used to count cache hits.
var relevantDomains = map[View]DomainSet{
	ViewStaff:      {DomainStaff},
	ViewInventory:  {DomainInventoryReport},
	ViewReports:    {DomainReports},
	ViewMenu:       {DomainMenu},
	ViewStock:      {DomainStock},
	ViewSuppliers:  {DomainSuppliers},
	ViewRecipes:    {DomainRecipes},
	ViewFinancial:  {DomainFinancial},
	ViewSettings:   {DomainUsers},
	ViewOperations: {DomainTables, DomainOrders, DomainKitchen},
}

// Dispatcher turns navigation events into fetches.
type Dispatcher struct {
	fetcher *Fetcher
	logger  *slog.Logger
	metrics *Metrics

	mu     sync.Mutex
	active int
	idle   chan struct{}
}

// NewDispatcher wires a Dispatcher around a Fetcher.
func NewDispatcher(fetcher *Fetcher, logger *slog.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{fetcher: fetcher, logger: logger, metrics: metrics}
}

// Dispatch plans the navigation event and launches every planned fetch
// except the dashboard, which the poller owns. It never fails; fetch
// failures land in the store.
func (d *Dispatcher) Dispatch(ctx context.Context, nav Navigation) DomainSet {
	set := Plan(nav, d.fetcher.Store(), d.fetcher.Registry())
	d.countHits(nav, set)

	var g errgroup.Group
	launched := 0
	for _, id := range set {
		if id == DomainDashboard {
			continue
		}
		launched++
		g.Go(func() error {
			return d.fetcher.Fetch(ctx, id, Params{Period: nav.Period, Subsection: nav.Subsection})
		})
	}
	if launched == 0 {
		return set
	}

	d.track()
	go func() {
		defer d.release()
		if err := g.Wait(); err != nil {
			d.logger.Debug("dispatch completed with errors",
				slog.String("view", string(nav.View)),
				slog.Any("error", err))
		}
	}()
	return set
}

// Fetch runs a single fetch outside the dispatch policy, tracked like a
// dispatched one.
func (d *Dispatcher) Fetch(ctx context.Context, id DomainID, params Params) {
	d.track()
	go func() {
		defer d.release()
		_ = d.fetcher.Fetch(ctx, id, params)
	}()
}

// Idle returns a channel closed once every fetch launched before the call
// has finished. Fetches launched while it is open extend it.
func (d *Dispatcher) Idle() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == 0 {
		return closedChan
	}
	return d.idle
}

// Wait blocks until every launched fetch has finished.
func (d *Dispatcher) Wait() {
	<-d.Idle()
}

func (d *Dispatcher) track() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == 0 {
		d.idle = make(chan struct{})
	}
	d.active++
}

func (d *Dispatcher) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active--
	if d.active == 0 {
		close(d.idle)
	}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (d *Dispatcher) countHits(nav Navigation, planned DomainSet) {
	for _, id := range relevantDomains[nav.View] {
		if !planned.Contains(id) && !d.fetcher.Registry().IsEmpty(id, d.fetcher.Store().Get(id).Data) {
			d.metrics.recordCacheHit(id)
		}
	}
}
