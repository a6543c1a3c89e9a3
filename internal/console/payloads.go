package console

import "time"

// Trend is the direction of a metric against its previous value.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Metric is a single dashboard figure with its comparison.
type Metric struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Trend    Trend   `json:"trend"`
	Change   float64 `json:"change"`
}

// PeriodMetrics groups the named dashboard metrics of one period.
type PeriodMetrics struct {
	Revenue       Metric `json:"revenue"`
	Customers     Metric `json:"customers"`
	AverageOrder  Metric `json:"averageOrder"`
	TableTurnover Metric `json:"tableTurnover"`
}

// PerformanceStats always holds every period after normalization.
type PerformanceStats map[PeriodKey]PeriodMetrics

// StaffPerformance is a dashboard row ranking staff members.
type StaffPerformance struct {
	ID           string  `json:"id,omitempty"`
	Name         string  `json:"name"`
	Role         string  `json:"role,omitempty"`
	OrdersServed int     `json:"orders_served"`
	Revenue      float64 `json:"revenue"`
	Rating       float64 `json:"rating"`
}

// PopularItem is a best-selling menu item.
type PopularItem struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// RecentOrder is a dashboard feed entry.
type RecentOrder struct {
	ID        string    `json:"id"`
	Table     string    `json:"table,omitempty"`
	Total     float64   `json:"total"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RawMetric is a metric as sent by the backend; absent fields stay nil.
type RawMetric struct {
	Current  *float64 `json:"current"`
	Previous *float64 `json:"previous"`
	Trend    *Trend   `json:"trend"`
	Change   *float64 `json:"change"`
}

// RawPeriodMetrics is one period of the backend payload.
type RawPeriodMetrics struct {
	Revenue       *RawMetric `json:"revenue"`
	Customers     *RawMetric `json:"customers"`
	AverageOrder  *RawMetric `json:"averageOrder"`
	TableTurnover *RawMetric `json:"tableTurnover"`
}

// RawDashboard is the sparse dashboard payload returned by the reports API.
type RawDashboard struct {
	PerformanceStats map[PeriodKey]*RawPeriodMetrics `json:"performance_stats"`
	StaffPerformance []StaffPerformance             `json:"staff_performance"`
	PopularItems     []PopularItem                  `json:"popular_items"`
	RecentOrders     []RecentOrder                  `json:"recent_orders"`
	UserRole         *Role                          `json:"user_role"`
	GeneratedAt      *time.Time                     `json:"generated_at"`
}

// DashboardStats is the normalized, render-safe dashboard payload.
type DashboardStats struct {
	PerformanceStats PerformanceStats   `json:"performance_stats"`
	StaffPerformance []StaffPerformance `json:"staff_performance"`
	PopularItems     []PopularItem      `json:"popular_items"`
	RecentOrders     []RecentOrder      `json:"recent_orders"`
	UserRole         Role               `json:"user_role"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// StaffRecord is one row of the staff performance listing.
type StaffRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	Shift       string  `json:"shift,omitempty"`
	HoursWorked float64 `json:"hours_worked"`
	Sales       float64 `json:"sales"`
	Rating      float64 `json:"rating"`
	Active      bool    `json:"active"`
}

// InventoryReport summarises stock health.
type InventoryReport struct {
	TotalItems    int             `json:"total_items"`
	LowStockItems int             `json:"low_stock_items"`
	OutOfStock    int             `json:"out_of_stock"`
	TotalValue    float64         `json:"total_value"`
	Categories    []CategoryValue `json:"categories"`
	Alerts        []StockAlert    `json:"alerts"`
	GeneratedAt   *time.Time      `json:"generated_at,omitempty"`
}

// CategoryValue is the stock value held in one category.
type CategoryValue struct {
	Category string  `json:"category"`
	Items    int     `json:"items"`
	Value    float64 `json:"value"`
}

// StockAlert flags an item below its reorder level.
type StockAlert struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Reorder  float64 `json:"reorder_level"`
	Severity string  `json:"severity"`
}

// ReportPayload is a generic tabular report.
type ReportPayload struct {
	Kind     string               `json:"kind"`
	From     string               `json:"from,omitempty"`
	To       string               `json:"to,omitempty"`
	Summary  map[string]float64   `json:"summary"`
	Rows     []map[string]any     `json:"rows"`
	Series   map[string][]float64 `json:"series,omitempty"`
	Currency string               `json:"currency,omitempty"`
}

// UserRecord is a console account.
type UserRecord struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// MenuPayload is the published menu.
type MenuPayload struct {
	Categories []MenuCategory `json:"categories"`
	Items      []MenuItem     `json:"items"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
}

// MenuCategory groups menu items.
type MenuCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Sort int    `json:"sort"`
}

// MenuItem is a dish or drink.
type MenuItem struct {
	ID         string   `json:"id"`
	CategoryID string   `json:"category_id"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Available  bool     `json:"available"`
	Allergens  []string `json:"allergens,omitempty"`
	PrepMinute int      `json:"prep_minutes,omitempty"`
}

// TableRecord is a dining table with its reservation state.
type TableRecord struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	Status      string     `json:"status"`
	Capacity    int        `json:"capacity"`
	GuestCount  int        `json:"guest_count"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
	ReservedFor *time.Time `json:"reserved_for,omitempty"`
}

// OrderRecord is a service order.
type OrderRecord struct {
	ID        string     `json:"id"`
	TableID   string     `json:"table_id"`
	Status    string     `json:"status"`
	Items     []LineItem `json:"items"`
	Total     float64    `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
}

// LineItem is one ordered dish.
type LineItem struct {
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Notes      string  `json:"notes,omitempty"`
}

// KitchenReport is the kitchen operations board.
type KitchenReport struct {
	PendingTickets    int             `json:"pending_tickets"`
	InProgress        int             `json:"in_progress"`
	Completed         int             `json:"completed"`
	AveragePrepMinute float64         `json:"average_prep_minutes"`
	Stations          []StationLoad   `json:"stations"`
	Tickets           []KitchenTicket `json:"tickets"`
}

// StationLoad is the queue depth of one kitchen station.
type StationLoad struct {
	Station string `json:"station"`
	Queued  int    `json:"queued"`
}

// KitchenTicket is one ticket on the kitchen board.
type KitchenTicket struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Station   string    `json:"station"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// StockItem is an ingredient or supply on hand.
type StockItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
	ReorderLevel float64 `json:"reorder_level"`
	UnitCost     float64 `json:"unit_cost"`
	SupplierID   string  `json:"supplier_id,omitempty"`
}

// SupplierRecord is a vendor.
type SupplierRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Active  bool   `json:"active"`
}

// RecipeRecord is a dish recipe with costed ingredients.
type RecipeRecord struct {
	ID          string             `json:"id"`
	MenuItemID  string             `json:"menu_item_id,omitempty"`
	Name        string             `json:"name"`
	Yield       float64            `json:"yield"`
	Cost        float64            `json:"cost"`
	Ingredients []RecipeIngredient `json:"ingredients"`
}

// RecipeIngredient is a stock item consumed by a recipe.
type RecipeIngredient struct {
	StockItemID string  `json:"stock_item_id"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// FinancialReport is a financial statement for a reporting window.
type FinancialReport struct {
	Kind        string             `json:"kind"`
	Revenue     float64            `json:"revenue"`
	Expenses    float64            `json:"expenses"`
	NetProfit   float64            `json:"net_profit"`
	Margin      float64            `json:"margin"`
	Breakdown   map[string]float64 `json:"breakdown"`
	GeneratedAt *time.Time         `json:"generated_at,omitempty"`
}
