package consolehttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablewise/tablewise/internal/app"
	"github.com/tablewise/tablewise/internal/console"
	consolehttp "github.com/tablewise/tablewise/internal/console/http"
	"github.com/tablewise/tablewise/internal/shared"
	_ "github.com/tablewise/tablewise/testing"
)

type stubAPI struct {
	staffCalls atomic.Int32
	menuCalls  atomic.Int32
}

func f64(v float64) *float64 { return &v }

func (s *stubAPI) GetDashboardData(context.Context, string, console.PeriodKey) (*console.RawDashboard, error) {
	return &console.RawDashboard{PerformanceStats: map[console.PeriodKey]*console.RawPeriodMetrics{
		console.PeriodToday: {Revenue: &console.RawMetric{Current: f64(10)}},
	}}, nil
}

func (s *stubAPI) GetStaffPerformance(context.Context, string) ([]console.StaffRecord, error) {
	s.staffCalls.Add(1)
	return []console.StaffRecord{{ID: "s1", Name: "Ana"}}, nil
}

func (s *stubAPI) GetInventoryReport(context.Context, string) (*console.InventoryReport, error) {
	return &console.InventoryReport{}, nil
}

func (s *stubAPI) GetReport(context.Context, string, console.Subsection) (*console.ReportPayload, error) {
	return &console.ReportPayload{}, nil
}

func (s *stubAPI) GetUsers(context.Context, string) ([]console.UserRecord, error) {
	return nil, nil
}

func (s *stubAPI) GetMenuData(context.Context) (*console.MenuPayload, error) {
	s.menuCalls.Add(1)
	return &console.MenuPayload{Items: []console.MenuItem{{ID: "m1"}}}, nil
}

func (s *stubAPI) GetTables(context.Context, string) ([]console.TableRecord, error) { return nil, nil }

func (s *stubAPI) GetOrders(context.Context, string) ([]console.OrderRecord, error) { return nil, nil }

func (s *stubAPI) GetKitchenReport(context.Context, string) (*console.KitchenReport, error) {
	return &console.KitchenReport{}, nil
}

func (s *stubAPI) GetStock(context.Context, string) ([]console.StockItem, error) { return nil, nil }

func (s *stubAPI) GetSuppliers(context.Context, string) ([]console.SupplierRecord, error) {
	return nil, nil
}

func (s *stubAPI) GetRecipes(context.Context, string) ([]console.RecipeRecord, error) { return nil, nil }

func (s *stubAPI) GetFinancialReport(context.Context, string, console.Subsection) (*console.FinancialReport, error) {
	return &console.FinancialReport{}, nil
}

type fixture struct {
	router  http.Handler
	api     *stubAPI
	manager *console.Manager
	cookie  *http.Cookie
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens := shared.NewSessionManager(client, "tw_session", "test-secret", time.Hour, false)
	api := &stubAPI{}
	manager := console.NewManager(console.SessionConfig{API: api, PollInterval: time.Hour})
	t.Cleanup(manager.Shutdown)

	handler := consolehttp.NewHandler(nil, manager, tokens, time.Second)
	r := chi.NewRouter()
	r.Use(app.SessionMiddleware(tokens, nil))
	handler.MountRoutes(r)
	return &fixture{router: r, api: api, manager: manager}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if f.cookie != nil {
		req.AddCookie(f.cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "tw_session" && c.MaxAge >= 0 {
			f.cookie = c
		}
	}
	return rec
}

func TestNavigateWithoutCredentialsRecordsAuthError(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/console/navigate?wait=1", `{"view":"staff"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Dispatched []string             `json:"dispatched"`
		State      console.SessionState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []string{"staff"}, out.Dispatched)
	assert.Equal(t, "No authentication token found", out.State.Domains[console.DomainStaff].Error)
	assert.Equal(t, int32(0), f.api.staffCalls.Load())
}

func TestAttachCredentialsThenNavigate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/session", `{"token":"tok","role":"manager"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, f.cookie)

	rec = f.do(t, http.MethodPost, "/console/navigate?wait=1", `{"view":"staff"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), f.api.staffCalls.Load())

	rec = f.do(t, http.MethodGet, "/console/domains/staff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Data    []console.StaffRecord `json:"data"`
		Loading bool                  `json:"loading"`
		Error   string                `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Len(t, state.Data, 1)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)

	// Cached: a second visit issues no call.
	rec = f.do(t, http.MethodPost, "/console/navigate?wait=1", `{"view":"staff"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), f.api.staffCalls.Load())
}

func TestNavigateDashboardWaitsForFirstRefresh(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/auth/session", `{"token":"tok","role":"admin"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPost, "/console/navigate?wait=1", `{"view":"dashboard"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Dispatched []string             `json:"dispatched"`
		State      console.SessionState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []string{"dashboard"}, out.Dispatched)
	assert.True(t, out.State.Polling.Active)
	dash := out.State.Domains[console.DomainDashboard]
	assert.False(t, dash.Loading)
	assert.Empty(t, dash.Error)
	assert.NotNil(t, dash.Data)
}

func TestNavigateValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/console/navigate", `{"view":"garage"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"view"`)

	rec = f.do(t, http.MethodPost, "/console/navigate", `{"view":"operations","subsection":"parking"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid subsection")

	rec = f.do(t, http.MethodPost, "/console/navigate", `{"view":"menu","extra":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPeriodUpdate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/console/period", `{"period":"week"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var state console.SessionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, console.PeriodWeek, state.Period)

	rec = f.do(t, http.MethodPut, "/console/period", `{"period":"year"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownDomainIsNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/console/domains/garage", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/console/domains/garage/retry", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetryRefetchesPublicMenu(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/console/navigate?wait=1", `{"view":"menu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int32(1), f.api.menuCalls.Load())

	rec = f.do(t, http.MethodPost, "/console/domains/menu/retry?wait=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), f.api.menuCalls.Load())
}

func TestCloseSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/console/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.manager.Len())

	rec = f.do(t, http.MethodDelete, "/console/session", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.manager.Len())
}

func TestSignOutClearsEverything(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/auth/session", `{"token":"tok","role":"admin"}`).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/console/state", "").Code)
	require.Equal(t, 1, f.manager.Len())

	rec := f.do(t, http.MethodDelete, "/auth/session", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.manager.Len())

	rec = f.do(t, http.MethodPost, "/auth/session", `{"token":"","role":"admin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
