package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorView_Render404(t *testing.T) {
	body := ErrorView{}.Render("404.json")

	assert.Equal(t, map[string]any{"errors": map[string]any{"detail": "Not Found"}}, body)
}

func TestErrorView_Render500(t *testing.T) {
	body := ErrorView{}.Render("500.json")

	assert.Equal(t, map[string]any{"errors": map[string]any{"detail": "Internal Server Error"}}, body)
}

func TestErrorView_RenderOtherTemplates(t *testing.T) {
	tests := []struct {
		template string
		detail   string
	}{
		{"405.json", "Method Not Allowed"},
		{"403.json", "Forbidden"},
		{"999.json", "Internal Server Error"},
		{"abc.json", "Internal Server Error"},
		{"404.html", "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			body := ErrorView{}.Render(tt.template)
			assert.Equal(t, tt.detail, body["errors"].(map[string]any)["detail"])
		})
	}
}

func TestWriteError_ExactBody(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"errors":{"detail":"Not Found"}}`, w.Body.String())
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected")
	}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/anything", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"errors":{"detail":"Internal Server Error"}}`, w.Body.String())
}

func TestRecoverer_AbortsStartedResponse(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("unexpected")
	}))
	w := httptest.NewRecorder()

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/anything", nil))
	})
	assert.Equal(t, "partial", w.Body.String())
}

type forbiddenError struct{}

func (forbiddenError) Error() string   { return "no access" }
func (forbiddenError) StatusCode() int { return http.StatusForbidden }

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"plain error", errors.New("connection refused"), http.StatusInternalServerError, `{"errors":{"detail":"Internal Server Error"}}`},
		{"wrapped status error", fmt.Errorf("failed to get current user: %w", forbiddenError{}), http.StatusForbidden, `{"errors":{"detail":"Forbidden"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteServiceError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, w.Body.String())
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestWriteValidationError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteValidationError(w, http.StatusBadRequest, "Invalid month format", "month must be YYYY-MM")

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid month format", resp.Error)
	assert.Equal(t, "month must be YYYY-MM", resp.Details)
}

func TestFrontendHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	handler := NewFrontendHandler(dir, "index.html")

	t.Run("serves existing file", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app.js", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "console.log(1)", w.Body.String())
	})

	t.Run("falls back to index for client routes", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/budgets/3", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "app")
	})

	t.Run("api paths get json 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"errors":{"detail":"Not Found"}}`, w.Body.String())
	})
}
