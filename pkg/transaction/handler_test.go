package transaction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fundwise/fundwise/internal/utils"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(f fixture) *mux.Router {
	handler := NewTransactionHandler(f.service, &utils.MockClock{FixedNow: now})
	r := mux.NewRouter()
	r.HandleFunc("/api/transaction", handler.ListTransactions).Methods("GET")
	r.HandleFunc("/api/transaction", handler.RecordTransaction).Methods("POST")
	r.HandleFunc("/api/transaction/{transactionUid}", handler.GetTransaction).Methods("GET")
	r.HandleFunc("/api/transaction/{transactionUid}", handler.UpdateTransaction).Methods("PUT")
	r.HandleFunc("/api/transaction/{transactionUid}", handler.DeleteTransaction).Methods("DELETE")
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body)).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_RecordAndGet(t *testing.T) {
	f := setup(t)
	r := setupRouter(f)

	// when
	w := do(r, http.MethodPost, "/api/transaction",
		fmt.Sprintf(`{"accountId":%d,"amount":"-42.10","occurredAt":"2025-03-05T10:00:00Z"}`, f.bank.Id))

	// then
	require.Equal(t, http.StatusCreated, w.Code)
	var recorded TransactionDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&recorded))
	assert.True(t, decimal.RequireFromString("-42.1").Equal(recorded.Amount))

	w = do(r, http.MethodGet, "/api/transaction/"+recorded.Uid, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_ListTransactions_DefaultsToCurrentMonth(t *testing.T) {
	// given
	f := setup(t)
	r := setupRouter(f)
	for _, occurred := range []time.Time{
		time.Date(2025, 2, 27, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
	} {
		_, err := f.service.Record(ctx, Transaction{AccountId: f.bank.Id, Amount: decimal.NewFromInt(-1), OccurredAt: occurred})
		require.NoError(t, err)
	}

	// when
	w := do(r, http.MethodGet, "/api/transaction", "")

	// then
	require.Equal(t, http.StatusOK, w.Code)
	var list []TransactionDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, time.March, list[0].OccurredAt.Month())

	w = do(r, http.MethodGet, "/api/transaction?from=2025-02-01&to=2025-04-01", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Len(t, list, 2)

	w = do(r, http.MethodGet, "/api/transaction?last=1", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, time.March, list[0].OccurredAt.Month())
}

func TestHandler_ListTransactions_InvalidParams(t *testing.T) {
	f := setup(t)
	r := setupRouter(f)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/transaction?last=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/transaction?last=1000", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/transaction?from=yesterday", "").Code)
}

func TestHandler_DeleteTransaction_NotFound(t *testing.T) {
	f := setup(t)
	r := setupRouter(f)

	w := do(r, http.MethodDelete, "/api/transaction/missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"errors":{"detail":"Not Found"}}`, w.Body.String())
}

func TestHandler_ErrorBodies(t *testing.T) {
	t.Run("should hide repository failures behind the fixed 500 body", func(t *testing.T) {
		// given
		f := setup(t)
		repo := NewStubTransactionRepo()
		repo.ListErr = errors.New("pq: canceling statement due to user request")
		f.service = NewTransactionService(repo, f.accounts, nil, f.pubSub, &utils.MockClock{FixedNow: now})
		r := setupRouter(f)

		// when
		w := do(r, http.MethodGet, "/api/transaction?from=2025-03-01&to=2025-04-01", "")

		// then
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"errors":{"detail":"Internal Server Error"}}`, w.Body.String())
	})

	t.Run("should answer 403 when the request has no user", func(t *testing.T) {
		// given
		r := setupRouter(setup(t))
		w := httptest.NewRecorder()

		// when
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/transaction", nil))

		// then
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"errors":{"detail":"Forbidden"}}`, w.Body.String())
	})
}
