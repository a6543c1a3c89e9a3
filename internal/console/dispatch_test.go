package console

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, id DomainID, data any) {
	t.Helper()
	gen := s.Begin(id)
	require.True(t, s.Succeed(id, gen, data))
}

func TestPlanInventoryStockManagement(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(nil)

	got := Plan(Navigation{View: ViewInventory, Subsection: SubsectionStockManagement, PreviousSubsection: unvisited}, store, reg)
	assert.Equal(t, DomainSet{DomainInventoryReport, DomainStock}, got)

	seed(t, store, DomainInventoryReport, &InventoryReport{})
	got = Plan(Navigation{View: ViewInventory, Subsection: SubsectionSuppliers}, store, reg)
	assert.Equal(t, DomainSet{DomainSuppliers}, got)

	got = Plan(Navigation{View: ViewInventory, Subsection: SubsectionRecipes}, store, reg)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestPlanTable(t *testing.T) {
	tests := []struct {
		name string
		nav  Navigation
		want DomainSet
	}{
		{"dashboard always", Navigation{View: ViewDashboard}, DomainSet{DomainDashboard}},
		{"staff", Navigation{View: ViewStaff}, DomainSet{DomainStaff}},
		{"menu", Navigation{View: ViewMenu}, DomainSet{DomainMenu}},
		{"stock", Navigation{View: ViewStock}, DomainSet{DomainStock}},
		{"suppliers", Navigation{View: ViewSuppliers}, DomainSet{DomainSuppliers}},
		{"recipes", Navigation{View: ViewRecipes}, DomainSet{DomainRecipes}},
		{"settings general", Navigation{View: ViewSettings, Subsection: "general"}, DomainSet{}},
		{"settings users", Navigation{View: ViewSettings, Subsection: SubsectionUserManagement}, DomainSet{DomainUsers}},
		{"operations none", Navigation{View: ViewOperations}, DomainSet{}},
		{"operations tables", Navigation{View: ViewOperations, Subsection: SubsectionTablesReservations}, DomainSet{DomainTables}},
		{"operations orders", Navigation{View: ViewOperations, Subsection: SubsectionOrdersService}, DomainSet{DomainOrders}},
		{"operations kitchen", Navigation{View: ViewOperations, Subsection: SubsectionKitchenOperations}, DomainSet{DomainKitchen}},
		{"reports", Navigation{View: ViewReports, Subsection: "sales", PreviousSubsection: "sales"}, DomainSet{DomainReports}},
		{"financial", Navigation{View: ViewFinancial}, DomainSet{DomainFinancial}},
		{"unknown view", Navigation{View: "garage"}, DomainSet{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(tt.nav, NewStore(), NewRegistry(nil)))
		})
	}
}

func TestPlanCacheHitIsIdempotent(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(nil)
	seed(t, store, DomainStaff, []StaffRecord{{ID: "s1"}})
	seed(t, store, DomainMenu, &MenuPayload{})
	seed(t, store, DomainTables, []TableRecord{{ID: "t1"}})
	seed(t, store, DomainUsers, []UserRecord{{ID: "u1"}})
	seed(t, store, DomainReports, &ReportPayload{})
	seed(t, store, DomainFinancial, &FinancialReport{})

	navs := []Navigation{
		{View: ViewStaff},
		{View: ViewMenu},
		{View: ViewOperations, Subsection: SubsectionTablesReservations},
		{View: ViewSettings, Subsection: SubsectionUserManagement},
		{View: ViewReports, Subsection: "sales", PreviousSubsection: "sales"},
		{View: ViewFinancial, Subsection: "revenue", PreviousSubsection: "revenue"},
	}
	for _, nav := range navs {
		assert.Empty(t, Plan(nav, store, reg), "view %s", nav.View)
	}
}

func TestPlanForcedRefreshOnSubsectionChange(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(nil)
	seed(t, store, DomainReports, &ReportPayload{Kind: "sales"})
	seed(t, store, DomainFinancial, &FinancialReport{Kind: "overview"})

	assert.Equal(t, DomainSet{DomainReports},
		Plan(Navigation{View: ViewReports, Subsection: "staff", PreviousSubsection: "sales"}, store, reg))
	assert.Equal(t, DomainSet{DomainFinancial},
		Plan(Navigation{View: ViewFinancial, Subsection: "expenses", PreviousSubsection: "overview"}, store, reg))
}

func TestPlanEmptyListRefetches(t *testing.T) {
	store := NewStore()
	seed(t, store, DomainStaff, []StaffRecord{})
	assert.Equal(t, DomainSet{DomainStaff}, Plan(Navigation{View: ViewStaff}, store, NewRegistry(nil)))
}

func TestDispatchLaunchesPlannedFetches(t *testing.T) {
	api := newFakeAPI()
	api.stock = []StockItem{{ID: "flour"}}
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	f := NewFetcher(FetcherConfig{API: api, Credentials: StaticCredentials("tok", RoleManager), Metrics: metrics})
	d := NewDispatcher(f, nil, metrics)

	nav := Navigation{View: ViewInventory, Subsection: SubsectionStockManagement, PreviousSubsection: unvisited}
	set := d.Dispatch(context.Background(), nav)
	d.Wait()

	assert.Equal(t, DomainSet{DomainInventoryReport, DomainStock}, set)
	assert.Equal(t, 1, api.count("inventory-report"))
	assert.Equal(t, 1, api.count("stock"))
	assert.Equal(t, []StockItem{{ID: "flour"}}, f.Store().Get(DomainStock).Data)

	set = d.Dispatch(context.Background(), nav)
	d.Wait()
	assert.Empty(t, set)
	assert.Equal(t, 1, api.count("stock"))
	assert.Equal(t, 1.0, counterValue(t, reg, "tablewise_console_cache_hits_total"))
}

func TestDispatchLeavesDashboardToPoller(t *testing.T) {
	api := newFakeAPI()
	f := NewFetcher(FetcherConfig{API: api, Credentials: StaticCredentials("tok", RoleAdmin)})
	d := NewDispatcher(f, nil, nil)

	set := d.Dispatch(context.Background(), Navigation{View: ViewDashboard, Period: PeriodToday})
	d.Wait()
	assert.Equal(t, DomainSet{DomainDashboard}, set)
	assert.Equal(t, 0, api.count("dashboard"))
}

func TestDispatchPassesSubsection(t *testing.T) {
	api := newFakeAPI()
	var kinds []Subsection
	api.financial = func(kind Subsection) *FinancialReport {
		kinds = append(kinds, kind)
		return &FinancialReport{Kind: string(kind)}
	}
	f := NewFetcher(FetcherConfig{API: api, Credentials: StaticCredentials("tok", RoleAdmin)})
	d := NewDispatcher(f, nil, nil)

	d.Dispatch(context.Background(), Navigation{View: ViewFinancial, Subsection: "revenue", PreviousSubsection: unvisited})
	d.Wait()
	d.Dispatch(context.Background(), Navigation{View: ViewFinancial, Subsection: "profit-loss", PreviousSubsection: "revenue"})
	d.Wait()

	assert.Equal(t, []Subsection{"revenue", "profit-loss"}, kinds)
	assert.Equal(t, "profit-loss", f.Store().Get(DomainFinancial).Data.(*FinancialReport).Kind)
}

func TestDispatcherIdleTracksInflightFetches(t *testing.T) {
	api := newFakeAPI()
	release := api.gate("recipes")
	f := NewFetcher(FetcherConfig{API: api, Credentials: StaticCredentials("tok", RoleAdmin)})
	d := NewDispatcher(f, nil, nil)

	select {
	case <-d.Idle():
	default:
		t.Fatal("idle dispatcher reported busy")
	}

	d.Dispatch(context.Background(), Navigation{View: ViewRecipes})
	idle := d.Idle()
	d.Fetch(context.Background(), DomainStaff, Params{})
	require.Eventually(t, func() bool { return api.count("staff") == 1 }, time.Second, time.Millisecond)

	select {
	case <-idle:
		t.Fatal("idle closed while recipes fetch is gated")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-idle:
	case <-time.After(time.Second):
		t.Fatal("dispatcher never drained")
	}
	assert.False(t, f.Store().Get(DomainRecipes).Loading)
	assert.False(t, f.Store().Get(DomainStaff).Loading)
}

func TestDomainSetAddIsDuplicateFree(t *testing.T) {
	var s DomainSet
	s = s.add(DomainStock).add(DomainStock).add(DomainMenu)
	assert.Equal(t, DomainSet{DomainStock, DomainMenu}, s)
	assert.True(t, s.Contains(DomainMenu))
	assert.False(t, s.Contains(DomainUsers))
}
