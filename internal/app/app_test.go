package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/fundwise/fundwise/internal/config"
	"github.com/fundwise/fundwise/internal/telemetry"
	"github.com/fundwise/fundwise/internal/test_utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	pool, cleanup := test_utils.TestWithDB()
	db = pool
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func newTestApplication(t *testing.T) *Application {
	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"base":%q,"rates":{"EUR":0.9,"USD":1.1}}`, r.URL.Query().Get("base"))
	}))
	t.Cleanup(rates.Close)

	cfg := config.Defaults()
	cfg.Frontend.Enabled = false
	cfg.Rates.BaseURL = rates.URL
	return newApplication(cfg, db)
}

func call(t *testing.T, a *Application, method, path, userUid, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if userUid != "" {
		req.Header.Set("X-User-Id", userUid)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestApplication_SupervisesChildrenInBootOrder(t *testing.T) {
	a := newTestApplication(t)

	assert.Equal(t,
		[]string{ChildTelemetry, ChildDatabase, ChildPubSub, ChildHttpClient, ChildEndpoint},
		a.tree.Children())
}

func TestApplication_FixedErrorBodies(t *testing.T) {
	a := newTestApplication(t)

	w := call(t, a, http.MethodGet, "/api/nothing-here", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"errors":{"detail":"Not Found"}}`, w.Body.String())

	w = call(t, a, http.MethodPatch, "/api/account", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"errors":{"detail":"Method Not Allowed"}}`, w.Body.String())

	w = call(t, a, http.MethodGet, "/api/account", "no-such-user", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"errors":{"detail":"Forbidden"}}`, w.Body.String())

	w = call(t, a, http.MethodGet, "/api/account", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"errors":{"detail":"Forbidden"}}`, w.Body.String())
}

func TestNewRouter_PanicsCountAsServerErrors(t *testing.T) {
	// given
	a := newTestApplication(t)
	metrics := telemetry.NewHTTPMetrics("fundwise-test")
	r := NewRouter(a.deps, metrics, a.cfg)
	r.HandleFunc("/api/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	w := httptest.NewRecorder()

	// when
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/boom", nil))

	// then
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"errors":{"detail":"Internal Server Error"}}`, w.Body.String())
	assert.Equal(t, int64(1), metrics.Stats()["server_errors"])
}

func TestApplication_MonthlyReportFlow(t *testing.T) {
	// given
	a := newTestApplication(t)

	w := call(t, a, http.MethodPost, "/api/user", "",
		`{"username":"report-flow","displayName":"Report Flow","settings":{"currency":"EUR","timezone":"UTC","monthStartDay":1}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uid := decode[struct {
		Uid string `json:"uid"`
	}](t, w).Uid

	w = call(t, a, http.MethodPost, "/api/account", uid, `{"name":"Bank","type":"checking"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	accountId := decode[struct {
		Id int `json:"id"`
	}](t, w).Id

	w = call(t, a, http.MethodPost, "/api/category", uid, `{"name":"Food","kind":"expense"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	foodId := decode[struct {
		Id int `json:"id"`
	}](t, w).Id

	w = call(t, a, http.MethodPost, "/api/budgetplan", uid, `{"name":"Default"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	planId := decode[struct {
		Id int `json:"id"`
	}](t, w).Id

	w = call(t, a, http.MethodPost, fmt.Sprintf("/api/budgetplan/%d/item", planId), uid,
		fmt.Sprintf(`{"categoryId":%d,"monthlyLimit":"100"}`, foodId))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for _, body := range []string{
		fmt.Sprintf(`{"accountId":%d,"categoryId":%d,"amount":"-40","occurredAt":"2025-03-05T10:00:00Z"}`, accountId, foodId),
		fmt.Sprintf(`{"accountId":%d,"categoryId":%d,"amount":"-10","currency":"USD","occurredAt":"2025-03-06T10:00:00Z"}`, accountId, foodId),
		fmt.Sprintf(`{"accountId":%d,"amount":"2000","occurredAt":"2025-03-01T08:00:00Z"}`, accountId),
		fmt.Sprintf(`{"accountId":%d,"categoryId":%d,"amount":"-99","occurredAt":"2025-04-01T00:00:00Z"}`, accountId, foodId),
	} {
		w = call(t, a, http.MethodPost, "/api/transaction", uid, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	// when
	w = call(t, a, http.MethodGet, "/api/report/monthly?month=2025-03", uid, "")

	// then
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[struct {
		Currency   string `json:"currency"`
		Categories []struct {
			Name      string `json:"name"`
			Limit     string `json:"limit"`
			Spent     string `json:"spent"`
			Remaining string `json:"remaining"`
			Percent   string `json:"percent"`
		} `json:"categories"`
		TotalIncome  string `json:"totalIncome"`
		TotalExpense string `json:"totalExpense"`
	}](t, w)
	assert.Equal(t, "EUR", report.Currency)
	require.Len(t, report.Categories, 1)
	assert.Equal(t, "Food", report.Categories[0].Name)
	assert.Equal(t, "100", report.Categories[0].Limit)
	assert.Equal(t, "49", report.Categories[0].Spent)
	assert.Equal(t, "51", report.Categories[0].Remaining)
	assert.Equal(t, "49", report.Categories[0].Percent)
	assert.Equal(t, "2000", report.TotalIncome)
	assert.Equal(t, "49", report.TotalExpense)
}
