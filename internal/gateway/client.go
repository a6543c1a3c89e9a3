// Package gateway talks to the upstream restaurant REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tablewise/tablewise/internal/console"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 20 * time.Second

const maxBodyBytes = 8 << 20

// Default report kinds used when no subsection is active.
const (
	DefaultReportKind    console.Subsection = "sales"
	DefaultFinancialKind console.Subsection = "overview"
)

// RemoteError is a failure reported by the upstream API.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("gateway: %d %s", e.Status, e.Message)
}

// envelope is the standard upstream response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (e envelope) reason() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return "request was not successful"
}

// Client implements console.API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient constructs a new client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ console.API = (*Client)(nil)

// Ping checks if the upstream API is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// GetDashboardData loads the dashboard payload for the period.
func (c *Client) GetDashboardData(ctx context.Context, token string, period console.PeriodKey) (*console.RawDashboard, error) {
	q := url.Values{}
	q.Set("period", string(period))
	var out console.RawDashboard
	if err := c.get(ctx, "/reports/dashboard?"+q.Encode(), token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStaffPerformance lists staff performance rows.
func (c *Client) GetStaffPerformance(ctx context.Context, token string) ([]console.StaffRecord, error) {
	return getList[console.StaffRecord](ctx, c, "/staff/performance", token)
}

// GetInventoryReport loads the inventory summary.
func (c *Client) GetInventoryReport(ctx context.Context, token string) (*console.InventoryReport, error) {
	var out console.InventoryReport
	if err := c.get(ctx, "/inventory/report", token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReport loads the report of the given kind.
func (c *Client) GetReport(ctx context.Context, token string, kind console.Subsection) (*console.ReportPayload, error) {
	if kind == console.SubsectionNone {
		kind = DefaultReportKind
	}
	var out console.ReportPayload
	if err := c.get(ctx, "/reports/"+url.PathEscape(string(kind)), token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUsers lists console accounts.
func (c *Client) GetUsers(ctx context.Context, token string) ([]console.UserRecord, error) {
	return getList[console.UserRecord](ctx, c, "/users", token)
}

// GetMenuData loads the public menu.
func (c *Client) GetMenuData(ctx context.Context) (*console.MenuPayload, error) {
	var out console.MenuPayload
	if err := c.get(ctx, "/menu", "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTables lists dining tables.
func (c *Client) GetTables(ctx context.Context, token string) ([]console.TableRecord, error) {
	return getList[console.TableRecord](ctx, c, "/tables", token)
}

// GetOrders lists open orders.
func (c *Client) GetOrders(ctx context.Context, token string) ([]console.OrderRecord, error) {
	return getList[console.OrderRecord](ctx, c, "/orders", token)
}

// GetKitchenReport loads the kitchen load report.
func (c *Client) GetKitchenReport(ctx context.Context, token string) (*console.KitchenReport, error) {
	var out console.KitchenReport
	if err := c.get(ctx, "/kitchen/report", token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStock lists stock items.
func (c *Client) GetStock(ctx context.Context, token string) ([]console.StockItem, error) {
	return getList[console.StockItem](ctx, c, "/stock", token)
}

// GetSuppliers lists suppliers.
func (c *Client) GetSuppliers(ctx context.Context, token string) ([]console.SupplierRecord, error) {
	return getList[console.SupplierRecord](ctx, c, "/suppliers", token)
}

// GetRecipes lists recipes.
func (c *Client) GetRecipes(ctx context.Context, token string) ([]console.RecipeRecord, error) {
	return getList[console.RecipeRecord](ctx, c, "/recipes", token)
}

// GetFinancialReport loads the financial report of the given kind.
func (c *Client) GetFinancialReport(ctx context.Context, token string, kind console.Subsection) (*console.FinancialReport, error) {
	if kind == console.SubsectionNone {
		kind = DefaultFinancialKind
	}
	var out console.FinancialReport
	if err := c.get(ctx, "/financial/"+url.PathEscape(string(kind)), token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func getList[T any](ctx context.Context, c *Client, path, token string) ([]T, error) {
	var out []T
	if err := c.get(ctx, path, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// get fetches path and decodes the envelope data into target. Identical
// concurrent requests share one round trip.
func (c *Client) get(ctx context.Context, path, token string, target any) error {
	key := path + "\x00" + token
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Detached so one caller cancelling does not fail the others.
		return c.fetch(context.WithoutCancel(ctx), path, token)
	})
	var payload []byte
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		payload = res.Val.([]byte)
	}
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// fetch performs the request and returns the raw data member.
func (c *Client) fetch(ctx context.Context, path, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		var env envelope
		if json.Unmarshal(body, &env) == nil && (env.Message != "" || env.Error != "") {
			msg = env.reason()
		}
		return nil, &RemoteError{Status: resp.StatusCode, Message: msg}
	}

	return unwrap(body)
}

// unwrap extracts the data member of an envelope. A bare JSON array is
// accepted as successful data.
func unwrap(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return trimmed, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Success {
		return nil, &RemoteError{Message: env.reason()}
	}
	return env.Data, nil
}

// IsRemote reports whether err came from the upstream API, returning it.
func IsRemote(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
