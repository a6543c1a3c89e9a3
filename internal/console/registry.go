package console

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// API is the set of upstream calls the fetch routines rely on. Token-less
// calls are public.
type API interface {
	GetDashboardData(ctx context.Context, token string, period PeriodKey) (*RawDashboard, error)
	GetStaffPerformance(ctx context.Context, token string) ([]StaffRecord, error)
	GetInventoryReport(ctx context.Context, token string) (*InventoryReport, error)
	GetReport(ctx context.Context, token string, kind Subsection) (*ReportPayload, error)
	GetUsers(ctx context.Context, token string) ([]UserRecord, error)
	GetMenuData(ctx context.Context) (*MenuPayload, error)
	GetTables(ctx context.Context, token string) ([]TableRecord, error)
	GetOrders(ctx context.Context, token string) ([]OrderRecord, error)
	GetKitchenReport(ctx context.Context, token string) (*KitchenReport, error)
	GetStock(ctx context.Context, token string) ([]StockItem, error)
	GetSuppliers(ctx context.Context, token string) ([]SupplierRecord, error)
	GetRecipes(ctx context.Context, token string) ([]RecipeRecord, error)
	GetFinancialReport(ctx context.Context, token string, kind Subsection) (*FinancialReport, error)
}

// Kind distinguishes the two emptiness predicates.
type Kind int

const (
	// KindList domains are empty when they hold zero rows.
	KindList Kind = iota
	// KindObject domains are empty only when nothing has been stored.
	KindObject
)

func (k Kind) String() string {
	if k == KindList {
		return "list"
	}
	return "object"
}

// LoadFunc calls the upstream API for a domain and returns the raw payload.
type LoadFunc func(ctx context.Context, api API, token string, params Params) (any, error)

// Entry is the static configuration of a domain.
type Entry struct {
	ID     DomainID
	Kind   Kind
	Load   LoadFunc
	Public bool
	Roles  []Role

	emptyDefault func() any
}

// Empty reports whether data counts as an empty cache for the domain.
func (e Entry) Empty(data any) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map:
		if v.IsNil() {
			return true
		}
	}
	if e.Kind == KindList {
		if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			return v.Len() == 0
		}
	}
	return false
}

// EmptyDefault returns a fresh render-safe placeholder for the domain.
func (e Entry) EmptyDefault() any {
	if e.emptyDefault == nil {
		return nil
	}
	return e.emptyDefault()
}

// Allows reports whether the role passes the domain's role gate.
func (e Entry) Allows(role Role) bool {
	return len(e.Roles) == 0 || slices.Contains(e.Roles, role)
}

// Registry maps each domain to its configuration.
type Registry struct {
	entries map[DomainID]Entry
}

// Lookup returns the entry for the domain.
func (r *Registry) Lookup(id DomainID) (Entry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownDomain, id)
	}
	return entry, nil
}

// IsEmpty applies the domain's emptiness predicate. Unknown domains are empty.
func (r *Registry) IsEmpty(id DomainID, data any) bool {
	entry, ok := r.entries[id]
	if !ok {
		return true
	}
	return entry.Empty(data)
}

// NewRegistry builds the domain table. The normalizer shapes dashboard
// payloads and supplies the dashboard's empty default.
func NewRegistry(normalizer *Normalizer) *Registry {
	if normalizer == nil {
		normalizer = NewNormalizer(false)
	}
	list := func(id DomainID, load LoadFunc, empty func() any) Entry {
		return Entry{ID: id, Kind: KindList, Load: load, emptyDefault: empty}
	}
	object := func(id DomainID, load LoadFunc, empty func() any) Entry {
		return Entry{ID: id, Kind: KindObject, Load: load, emptyDefault: empty}
	}

	entries := []Entry{
		{
			ID:    DomainDashboard,
			Kind:  KindObject,
			Roles: []Role{RoleAdmin, RoleManager},
			Load: func(ctx context.Context, api API, token string, p Params) (any, error) {
				period := p.Period
				if period == "" {
					period = PeriodToday
				}
				raw, err := api.GetDashboardData(ctx, token, period)
				if err != nil {
					return nil, err
				}
				return normalizer.Normalize(raw, period, p.Role), nil
			},
			emptyDefault: func() any {
				return EmptyDashboardStats("", normalizer.now())
			},
		},
		list(DomainStaff, func(ctx context.Context, api API, token string, _ Params) (any, error) {
			rows, err := api.GetStaffPerformance(ctx, token)
			return nonNil(rows), err
		}, func() any { return []StaffRecord{} }),
		object(DomainInventoryReport, func(ctx context.Context, api API, token string, _ Params) (any, error) {
			report, err := api.GetInventoryReport(ctx, token)
			return derefOrZero(report), err
		}, func() any { return &InventoryReport{Categories: []CategoryValue{}, Alerts: []StockAlert{}} }),
		object(DomainReports, func(ctx context.Context, api API, token string, p Params) (any, error) {
			report, err := api.GetReport(ctx, token, p.Subsection)
			return derefOrZero(report), err
		}, func() any { return &ReportPayload{Summary: map[string]float64{}, Rows: []map[string]any{}} }),
		list(DomainUsers, func(ctx context.Context, api API, token string, _ Params) (any, error) {
			rows, err := api.GetUsers(ctx, token)
			return nonNil(rows), err
		}, func() any { return []UserRecord{} }),
		{
			ID:     DomainMenu,
			Kind:   KindObject,
			Public: true,
			Load: func(ctx context.Context, api API, _ string, _ Params) (any, error) {
				menu, err := api.GetMenuData(ctx)
				return derefOrZero(menu), err
			},
			emptyDefault: func() any { return &MenuPayload{Categories: []MenuCategory{}, Items: []MenuItem{}} },
		},
		list(DomainTables, func(ctx context.Context, api API, token string, _ Params) (any, error) {
			rows, err := api.GetTables(ctx, token)
			return nonNil(rows), err
		}, func() any { return []TableRecord{} }),
		list(DomainOrders, func(ctx context.Context, api API, token string, _ Params) (any, error) {
			rows, err := api.GetOrders(ctx, token)
			return nonNil(rows), err
		}, func() any { return []OrderRecord{} }),
		object(DomainKitchen, func(ctx context.Context, api API, token string, _ Params) (any, error) {
			report, err := api.GetKitchenReport(ctx, token)
			return derefOrZero(report), err
		}, func() any { return &KitchenReport{Stations: []StationLoad{}, Tickets: []KitchenTicket{}} }),
		list(DomainStock, func(ctx context.Context, api API, token string, _ Params) (any, error) {
			rows, err := api.GetStock(ctx, token)
			return nonNil(rows), err
		}, func() any { return []StockItem{} }),
		list(DomainSuppliers, func(ctx context.Context, api API, token string, _ Params) (any, error) {
			rows, err := api.GetSuppliers(ctx, token)
			return nonNil(rows), err
		}, func() any { return []SupplierRecord{} }),
		list(DomainRecipes, func(ctx context.Context, api API, token string, _ Params) (any, error) {
			rows, err := api.GetRecipes(ctx, token)
			return nonNil(rows), err
		}, func() any { return []RecipeRecord{} }),
		object(DomainFinancial, func(ctx context.Context, api API, token string, p Params) (any, error) {
			report, err := api.GetFinancialReport(ctx, token, p.Subsection)
			return derefOrZero(report), err
		}, func() any { return &FinancialReport{Breakdown: map[string]float64{}} }),
	}

	reg := &Registry{entries: make(map[DomainID]Entry, len(entries))}
	for _, e := range entries {
		reg.entries[e.ID] = e
	}
	return reg
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

// derefOrZero keeps object payloads non-nil so a successful fetch with an
// empty body never reads as a cache miss.
func derefOrZero[T any](v *T) *T {
	if v == nil {
		return new(T)
	}
	return v
}
