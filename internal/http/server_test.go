package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	now := time.Date(2024, 1, 22, 12, 0, 0, 0, time.UTC)
	tracker := services.NewTracker(store,
		services.WithClock(func() time.Time { return now }),
		services.WithLogger(log.Discard()))
	require.NoError(t, tracker.Start(context.Background()))

	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 1000
	}
	srv := NewServer(cfg, tracker, log.Discard())
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestAddListAndDeleteTransaction(t *testing.T) {
	srv, store := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Salary","date":"2024-01-10","amount":1000,"type":"Income"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Rent","date":"2024-01-11","amount":"400.50","type":"Housing"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	created := decodeBody[map[string]any](t, rr)
	assert.Equal(t, "housing", created["type"])

	summary := decodeBody[map[string]any](t, do(t, srv, http.MethodGet, "/api/summary", ""))
	assert.Equal(t, "599.5", summary["balance"])
	assert.Equal(t, "400.5", summary["outcomes"])
	assert.EqualValues(t, 2, summary["transactions"])

	list := decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "Rent", list.Entries[0].Transaction.Description)

	rr = do(t, srv, http.MethodDelete, "/api/transactions/0", "")
	require.Equal(t, http.StatusOK, rr.Code)

	summary = decodeBody[map[string]any](t, do(t, srv, http.MethodGet, "/api/summary", ""))
	assert.Equal(t, "1000", summary["balance"])

	raw, ok := store.Get(storage.KeyBalance)
	require.True(t, ok)
	assert.Contains(t, string(raw), "1000")
}

func TestAddTransaction_ErrorStatuses(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	valid := `{"description":"Coffee","date":"2024-01-20","amount":"3.5","type":"Food & Dining"}`
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/transactions", valid).Code)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate", valid, http.StatusConflict},
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"empty description", `{"description":" ","date":"2024-01-20","amount":"1","type":"x"}`, http.StatusBadRequest},
		{"bad amount", `{"description":"a","date":"2024-01-20","amount":"abc","type":"x"}`, http.StatusBadRequest},
		{"too far ahead", `{"description":"a","date":"2024-03-23","amount":"1","type":"x"}`, http.StatusBadRequest},
		{"bad period", `{"description":"a","date":"2024-01-20","amount":"1","type":"x","recurrencePeriod":0}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decodeBody[errorResponse](t, rr).Error)
		})
	}
}

func TestDeleteTransaction_BadIndex(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/transactions/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodDelete, "/api/transactions/abc", "").Code)
}

func TestPersistenceFailureIsServiceUnavailable(t *testing.T) {
	srv, store := newTestServer(t, Config{})
	store.FailWrites(errors.New("disk full"))

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Coffee","date":"2024-01-20","amount":"3.5","type":"food"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	list := decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	assert.Zero(t, list.Count)
}

func TestListTransactions_Months(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	do(t, srv, http.MethodPost, "/api/transactions", `{"description":"Old","date":"2023-10-01","amount":"1","type":"x"}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"description":"New","date":"2024-01-05","amount":"1","type":"x"}`)

	list := decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions?months=1", ""))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "New", list.Entries[0].Transaction.Description)
	assert.Equal(t, 0, list.Entries[0].Index)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/transactions?months=-1", "").Code)
}

func TestSearch_CacheInvalidatedOnChange(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	do(t, srv, http.MethodPost, "/api/transactions", `{"description":"Coffee beans","date":"2024-01-05","amount":"12","type":"food"}`)

	first := decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions/search?q=coffee", ""))
	require.Equal(t, 1, first.Count)
	assert.Equal(t, 1, srv.searchCache.Size())

	do(t, srv, http.MethodPost, "/api/transactions", `{"description":"Coffee shop","date":"2024-01-06","amount":"4","type":"food"}`)
	assert.Zero(t, srv.searchCache.Size())

	second := decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions/search?q=COFFEE", ""))
	assert.Equal(t, 2, second.Count)
}

func TestReadsSeeWritesFromAnotherProcess(t *testing.T) {
	srv, store := newTestServer(t, Config{})
	do(t, srv, http.MethodPost, "/api/transactions", `{"description":"Coffee beans","date":"2024-01-05","amount":"12","type":"food"}`)
	require.Equal(t, 1, decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions/search?q=coffee", "")).Count)

	other := services.NewTracker(store,
		services.WithClock(func() time.Time { return time.Date(2024, 1, 22, 12, 0, 0, 0, time.UTC) }),
		services.WithLogger(log.Discard()))
	require.NoError(t, other.Start(context.Background()))
	_, err := other.AddTransaction(context.Background(), services.TransactionInput{
		Description: "Coffee shop", Date: "2024-01-06", Amount: "4", Type: "food",
	})
	require.NoError(t, err)

	search := decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions/search?q=coffee", ""))
	assert.Equal(t, 2, search.Count)
	list := decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	assert.Equal(t, 2, list.Count)
}

func TestRecurringEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Gym","date":"2024-01-01","amount":"10","type":"Health & Fitness","recurrencePeriod":"weekly"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	list := decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	assert.Equal(t, 4, list.Count)
	summary := decodeBody[map[string]any](t, do(t, srv, http.MethodGet, "/api/summary", ""))
	assert.Equal(t, "-40", summary["balance"])

	tasks := decodeBody[[]recurringEntry](t, do(t, srv, http.MethodGet, "/api/recurring", ""))
	require.Len(t, tasks, 1)
	assert.Equal(t, 7, tasks[0].Task.Period())

	rr = do(t, srv, http.MethodPatch, "/api/recurring/0", `{"recurrencePeriod":14}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	tasks = decodeBody[[]recurringEntry](t, do(t, srv, http.MethodGet, "/api/recurring", ""))
	assert.Equal(t, 14, tasks[0].Task.Period())

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPatch, "/api/recurring/0", `{"recurrencePeriod":"fortnightly"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPatch, "/api/recurring/5", `{"recurrencePeriod":3}`).Code)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/recurring/0", "").Code)
	tasks = decodeBody[[]recurringEntry](t, do(t, srv, http.MethodGet, "/api/recurring", ""))
	assert.Empty(t, tasks)
	list = decodeBody[entriesResponse](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	assert.Equal(t, 4, list.Count)
}

func TestCategoryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	cats := decodeBody[categoriesResponse](t, do(t, srv, http.MethodGet, "/api/categories", ""))
	require.NotEmpty(t, cats.Categories)
	assert.Equal(t, "income", cats.Options[0].Value)
	n := len(cats.Categories)

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Pets"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	cats = decodeBody[categoriesResponse](t, rr)
	assert.Equal(t, "Pets", cats.Categories[n])

	rr = do(t, srv, http.MethodPut, "/api/categories/"+strconv.Itoa(n), `{"name":"Animals"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Animals", decodeBody[categoriesResponse](t, rr).Categories[n])

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/categories", `{"name":"  "}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/categories/"+strconv.Itoa(n), "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/categories/"+strconv.Itoa(n), "").Code)
}

func TestChart(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	do(t, srv, http.MethodPost, "/api/transactions", `{"description":"Pay","date":"2024-01-05","amount":"100","type":"income"}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"description":"Food","date":"2024-01-06","amount":"30","type":"food"}`)

	chart := decodeBody[map[string]string](t, do(t, srv, http.MethodGet, "/api/chart", ""))

	assert.Equal(t, "100", chart["incomeTotal"])
	assert.Equal(t, "30", chart["outcomeTotal"])
}

func TestMetricsEndpoint(t *testing.T) {
	enabled, _ := newTestServer(t, Config{MetricsEnabled: true})
	do(t, enabled, http.MethodGet, "/healthz", "")

	rr := do(t, enabled, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fintrack_http_requests_total")

	disabled, _ := newTestServer(t, Config{})
	assert.Equal(t, http.StatusNotFound, do(t, disabled, http.MethodGet, "/metrics", "").Code)
}

func TestRateLimitOnMutations(t *testing.T) {
	srv, _ := newTestServer(t, Config{RequestsPerMinute: 1})

	body := `{"name":"A"}`
	assert.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/categories", body).Code)
	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"B"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/categories", "").Code)
}
