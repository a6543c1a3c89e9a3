package console

import (
	"context"
	"sync"
	"time"
)

// fakeAPI records calls per method and serves canned payloads. A method
// listed in errs fails; a method listed in gates blocks until released or the
// context ends.
type fakeAPI struct {
	mu     sync.Mutex
	calls  map[string]int
	errs   map[string]error
	gates  map[string]chan struct{}
	tokens []string

	dashboard func(period PeriodKey) *RawDashboard
	staff     []StaffRecord
	stock     []StockItem
	suppliers []SupplierRecord
	report    func(kind Subsection) *ReportPayload
	financial func(kind Subsection) *FinancialReport
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: make(map[string]int),
		errs:  make(map[string]error),
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakeAPI) failWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakeAPI) gate(method string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[method] = ch
	return ch
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) enter(ctx context.Context, method, token string) error {
	f.mu.Lock()
	f.calls[method]++
	f.tokens = append(f.tokens, token)
	err := f.errs[method]
	gate := f.gates[method]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAPI) GetDashboardData(ctx context.Context, token string, period PeriodKey) (*RawDashboard, error) {
	if err := f.enter(ctx, "dashboard", token); err != nil {
		return nil, err
	}
	if f.dashboard != nil {
		return f.dashboard(period), nil
	}
	return &RawDashboard{}, nil
}

func (f *fakeAPI) GetStaffPerformance(ctx context.Context, token string) ([]StaffRecord, error) {
	if err := f.enter(ctx, "staff", token); err != nil {
		return nil, err
	}
	return f.staff, nil
}

func (f *fakeAPI) GetInventoryReport(ctx context.Context, token string) (*InventoryReport, error) {
	if err := f.enter(ctx, "inventory-report", token); err != nil {
		return nil, err
	}
	return &InventoryReport{TotalItems: 3}, nil
}

func (f *fakeAPI) GetReport(ctx context.Context, token string, kind Subsection) (*ReportPayload, error) {
	if err := f.enter(ctx, "reports", token); err != nil {
		return nil, err
	}
	if f.report != nil {
		return f.report(kind), nil
	}
	return &ReportPayload{Kind: string(kind)}, nil
}

func (f *fakeAPI) GetUsers(ctx context.Context, token string) ([]UserRecord, error) {
	if err := f.enter(ctx, "users", token); err != nil {
		return nil, err
	}
	return []UserRecord{{ID: "u1", Role: RoleAdmin}}, nil
}

func (f *fakeAPI) GetMenuData(ctx context.Context) (*MenuPayload, error) {
	if err := f.enter(ctx, "menu", ""); err != nil {
		return nil, err
	}
	return &MenuPayload{Items: []MenuItem{{ID: "m1", Name: "Soup"}}}, nil
}

func (f *fakeAPI) GetTables(ctx context.Context, token string) ([]TableRecord, error) {
	if err := f.enter(ctx, "tables", token); err != nil {
		return nil, err
	}
	return []TableRecord{{ID: "t1"}}, nil
}

func (f *fakeAPI) GetOrders(ctx context.Context, token string) ([]OrderRecord, error) {
	if err := f.enter(ctx, "orders", token); err != nil {
		return nil, err
	}
	return []OrderRecord{{ID: "o1"}}, nil
}

func (f *fakeAPI) GetKitchenReport(ctx context.Context, token string) (*KitchenReport, error) {
	if err := f.enter(ctx, "kitchen", token); err != nil {
		return nil, err
	}
	return &KitchenReport{}, nil
}

func (f *fakeAPI) GetStock(ctx context.Context, token string) ([]StockItem, error) {
	if err := f.enter(ctx, "stock", token); err != nil {
		return nil, err
	}
	return f.stock, nil
}

func (f *fakeAPI) GetSuppliers(ctx context.Context, token string) ([]SupplierRecord, error) {
	if err := f.enter(ctx, "suppliers", token); err != nil {
		return nil, err
	}
	return f.suppliers, nil
}

func (f *fakeAPI) GetRecipes(ctx context.Context, token string) ([]RecipeRecord, error) {
	if err := f.enter(ctx, "recipes", token); err != nil {
		return nil, err
	}
	return []RecipeRecord{{ID: "r1"}}, nil
}

func (f *fakeAPI) GetFinancialReport(ctx context.Context, token string, kind Subsection) (*FinancialReport, error) {
	if err := f.enter(ctx, "financial", token); err != nil {
		return nil, err
	}
	if f.financial != nil {
		return f.financial(kind), nil
	}
	return &FinancialReport{Kind: string(kind)}, nil
}

// manualClock hands out tickers whose ticks are fired by the test.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// tick delivers one tick to the newest ticker, blocking until the poller
// receives it. It reports false when no live ticker accepted the tick.
func (c *manualClock) tick() bool {
	c.mu.Lock()
	if len(c.tickers) == 0 {
		c.mu.Unlock()
		return false
	}
	t := c.tickers[len(c.tickers)-1]
	c.mu.Unlock()
	if t.isStopped() {
		return false
	}
	select {
	case t.ch <- time.Now():
		return true
	case <-time.After(time.Second):
		return false
	}
}

func (c *manualClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func float(v float64) *float64 { return &v }
