package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fundwise/fundwise/internal/rest"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler() (*mux.Router, *UserServiceImpl) {
	service, _ := setupService()
	handler := NewHandler(service)
	r := mux.NewRouter()
	r.HandleFunc("/api/user", handler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user", handler.GetAvailableUsers).Methods("GET")
	r.HandleFunc("/api/user/current", handler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", handler.UpdateUser).Methods("PUT")
	r.HandleFunc("/api/user/name-availability", handler.IsUsernameAvailable).Methods("GET")
	r.HandleFunc("/api/user/{userUid}", handler.DeleteUser).Methods("DELETE")
	return r, service
}

func TestHandler_CreateUser(t *testing.T) {
	r, _ := setupHandler()
	body, _ := json.Marshal(UserDTO{Username: "ada", DisplayName: "Ada", Settings: SettingsDTO{Currency: "EUR"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/user", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, w.Code)
	var created UserDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "ada", created.Username)
	assert.Equal(t, "EUR", created.Settings.Currency)
	assert.NotEmpty(t, created.Uid)
}

func TestHandler_CreateUser_Validation(t *testing.T) {
	r, _ := setupHandler()
	tests := []struct {
		name  string
		body  string
		error string
	}{
		{"malformed", "{", "Invalid request body format"},
		{"missing username", `{"displayName":"Ada"}`, "Username is required"},
		{"missing display name", `{"username":"ada"}`, "Display name is required"},
		{"bad currency", `{"username":"ada","displayName":"Ada","settings":{"currency":"EURO"}}`, "Invalid user data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/user", bytes.NewBufferString(tt.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp rest.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.error, resp.Error)
		})
	}
}

func TestHandler_CurrentUser(t *testing.T) {
	r, service := setupHandler()
	created, err := service.CreateUser(context.Background(), User{Username: "ada", DisplayName: "Ada"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/user/current", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req.WithContext(WithUser(req.Context(), created)))

	require.Equal(t, http.StatusOK, w.Code)
	var dto UserDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
	assert.Equal(t, created.Uid, dto.Uid)
}

func TestHandler_CurrentUser_Deleted(t *testing.T) {
	r, _ := setupHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/user/current", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req.WithContext(WithUser(req.Context(), User{Id: 404})))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"errors":{"detail":"Not Found"}}`, w.Body.String())
}

func TestHandler_NameAvailability(t *testing.T) {
	r, service := setupHandler()
	_, err := service.CreateUser(context.Background(), User{Username: "ada", DisplayName: "Ada"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user/name-availability?username=ada", nil))
	assert.JSONEq(t, `{"available":false}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user/name-availability?username=grace", nil))
	assert.JSONEq(t, `{"available":true}`, w.Body.String())
}

func TestHandler_DeleteUser(t *testing.T) {
	r, service := setupHandler()
	created, err := service.CreateUser(context.Background(), User{Username: "ada", DisplayName: "Ada"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/user/"+created.Uid, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/user/"+created.Uid, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ErrorBodies(t *testing.T) {
	t.Run("should hide repository failures behind the fixed 500 body", func(t *testing.T) {
		// given
		repo := NewStubUserRepository()
		repo.ListErr = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")
		r := mux.NewRouter()
		r.HandleFunc("/api/user", NewHandler(NewUserService(repo)).GetAvailableUsers).Methods("GET")
		w := httptest.NewRecorder()

		// when
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user", nil))

		// then
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"errors":{"detail":"Internal Server Error"}}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), "10.0.0.5")
	})

	t.Run("should answer 403 for the current user without a user", func(t *testing.T) {
		// given
		r, _ := setupHandler()
		w := httptest.NewRecorder()

		// when
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user/current", nil))

		// then
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"errors":{"detail":"Forbidden"}}`, w.Body.String())
	})
}
