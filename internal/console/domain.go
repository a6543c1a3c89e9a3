package console

import (
	"errors"
	"fmt"
	"time"
)

// DomainID identifies one independently cached data category.
type DomainID string

// Domains owned by the console. The set is closed.
const (
	DomainDashboard       DomainID = "dashboard"
	DomainStaff           DomainID = "staff"
	DomainInventoryReport DomainID = "inventory-report"
	DomainReports         DomainID = "reports"
	DomainUsers           DomainID = "users"
	DomainMenu            DomainID = "menu"
	DomainTables          DomainID = "tables"
	DomainOrders          DomainID = "orders"
	DomainKitchen         DomainID = "kitchen"
	DomainStock           DomainID = "stock"
	DomainSuppliers       DomainID = "suppliers"
	DomainRecipes         DomainID = "recipes"
	DomainFinancial       DomainID = "financial"
)

// AllDomains lists every domain in registry order.
var AllDomains = []DomainID{
	DomainDashboard,
	DomainStaff,
	DomainInventoryReport,
	DomainReports,
	DomainUsers,
	DomainMenu,
	DomainTables,
	DomainOrders,
	DomainKitchen,
	DomainStock,
	DomainSuppliers,
	DomainRecipes,
	DomainFinancial,
}

// View is a top-level navigation address.
type View string

// Navigable views.
const (
	ViewDashboard  View = "dashboard"
	ViewStaff      View = "staff"
	ViewInventory  View = "inventory"
	ViewReports    View = "reports"
	ViewSettings   View = "settings"
	ViewMenu       View = "menu"
	ViewOperations View = "operations"
	ViewStock      View = "stock"
	ViewSuppliers  View = "suppliers"
	ViewRecipes    View = "recipes"
	ViewFinancial  View = "financial"
)

// Subsection is the second navigation level. The empty value means no subsection.
type Subsection string

// Subsections referenced by the dispatch policy.
const (
	SubsectionNone               Subsection = ""
	SubsectionInventoryOverview  Subsection = "overview"
	SubsectionStockManagement    Subsection = "stock-management"
	SubsectionSuppliers          Subsection = "suppliers"
	SubsectionRecipes            Subsection = "recipes"
	SubsectionUserManagement     Subsection = "user-management"
	SubsectionTablesReservations Subsection = "tables-reservations"
	SubsectionOrdersService      Subsection = "orders-service"
	SubsectionKitchenOperations  Subsection = "kitchen-operations"
)

var viewSubsections = map[View][]Subsection{
	ViewDashboard:  nil,
	ViewStaff:      nil,
	ViewInventory:  {SubsectionInventoryOverview, SubsectionStockManagement, SubsectionSuppliers, SubsectionRecipes},
	ViewReports:    {"sales", "staff", "inventory", "customers"},
	ViewSettings:   {"general", SubsectionUserManagement, "roles"},
	ViewMenu:       nil,
	ViewOperations: {SubsectionTablesReservations, SubsectionOrdersService, SubsectionKitchenOperations},
	ViewStock:      nil,
	ViewSuppliers:  nil,
	ViewRecipes:    nil,
	ViewFinancial:  {"overview", "revenue", "expenses", "profit-loss"},
}

// Subsections returns the subsections declared by the view.
func (v View) Subsections() []Subsection {
	return append([]Subsection(nil), viewSubsections[v]...)
}

// Valid reports whether the view is known.
func (v View) Valid() bool {
	_, ok := viewSubsections[v]
	return ok
}

// ViewState is the navigation address of a console session.
type ViewState struct {
	ActiveView       View       `json:"active_view"`
	ActiveSubsection Subsection `json:"active_subsection,omitempty"`
}

// NewViewState validates the pair and returns the state.
func NewViewState(view View, sub Subsection) (ViewState, error) {
	if !view.Valid() {
		return ViewState{}, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	if sub == SubsectionNone {
		return ViewState{ActiveView: view}, nil
	}
	for _, declared := range viewSubsections[view] {
		if declared == sub {
			return ViewState{ActiveView: view, ActiveSubsection: sub}, nil
		}
	}
	return ViewState{}, fmt.Errorf("%w: %q under view %q", ErrInvalidSubsection, sub, view)
}

// PeriodKey selects the dashboard reporting window.
type PeriodKey string

// Dashboard periods.
const (
	PeriodToday PeriodKey = "today"
	PeriodWeek  PeriodKey = "week"
	PeriodMonth PeriodKey = "month"
)

// Periods lists the dashboard periods in display order.
var Periods = []PeriodKey{PeriodToday, PeriodWeek, PeriodMonth}

// ParsePeriod validates a period key.
func ParsePeriod(raw string) (PeriodKey, error) {
	switch p := PeriodKey(raw); p {
	case PeriodToday, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
}

// Role is the console user's role as issued by the identity provider.
type Role string

// Known roles.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleChef    Role = "chef"
	RoleWaiter  Role = "waiter"
)

// DomainState is the cached record of one domain.
type DomainState struct {
	Data       any       `json:"data"`
	Loading    bool      `json:"loading"`
	Error      string    `json:"error,omitempty"`
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Params carries the navigation context a fetch routine needs.
type Params struct {
	Period     PeriodKey
	Subsection Subsection
	// Role is filled in by the fetch routine from the resolved credentials.
	Role Role
}

var (
	// ErrAuthMissing indicates no token was available for a privileged call.
	ErrAuthMissing = errors.New("No authentication token found")
	// ErrAccessDenied indicates the role is not allowed to load the domain.
	ErrAccessDenied = errors.New("Access Denied")
	// ErrUnknownDomain indicates a domain outside the registry.
	ErrUnknownDomain = errors.New("unknown domain")
	// ErrUnknownView indicates a view outside the navigation tree.
	ErrUnknownView = errors.New("unknown view")
	// ErrInvalidSubsection indicates a subsection the view does not declare.
	ErrInvalidSubsection = errors.New("invalid subsection")
	// ErrInvalidPeriod indicates a period outside today, week and month.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("console session closed")
)
