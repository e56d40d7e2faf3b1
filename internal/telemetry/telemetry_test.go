package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_ReportSamplesAllPollers(t *testing.T) {
	reporter := NewReporter(0)
	reporter.Register("static", func() map[string]any { return map[string]any{"value": 1} })
	reporter.Register("runtime", RuntimePoller)
	reporter.Register("broken", func() map[string]any { panic("no stats") })

	snapshot := reporter.Report()

	require.Contains(t, snapshot, "static")
	assert.Equal(t, 1, snapshot["static"]["value"])
	require.Contains(t, snapshot, "runtime")
	assert.Greater(t, snapshot["runtime"]["goroutines"], 0)
	assert.NotContains(t, snapshot, "broken")
}

func TestHTTPMetrics_CountsRequestsByClass(t *testing.T) {
	metrics := NewHTTPMetrics("fundwise-test")
	r := mux.NewRouter()
	r.Use(metrics.Middleware())
	r.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	r.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	r.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/missing", "/broken", "/ok"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	stats := metrics.Stats()
	assert.Equal(t, int64(4), stats["requests"])
	assert.Equal(t, int64(1), stats["client_errors"])
	assert.Equal(t, int64(1), stats["server_errors"])
}

func TestStatusWriter_KeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusInternalServerError)
	sw.Flush()

	assert.Equal(t, http.StatusCreated, sw.status)
	assert.True(t, rec.Flushed)
}
