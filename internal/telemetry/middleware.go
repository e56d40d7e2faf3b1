package telemetry

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics counts served requests. Counters are kept locally for the reporter
// and mirrored to the global OpenTelemetry meter.
type HTTPMetrics struct {
	serviceName string

	requests    atomic.Int64
	serverError atomic.Int64
	clientError atomic.Int64
	totalMillis atomic.Int64

	requestCounter  metric.Int64Counter
	durationHistory metric.Float64Histogram
}

func NewHTTPMetrics(serviceName string) *HTTPMetrics {
	meter := otel.Meter(serviceName)
	m := &HTTPMetrics{serviceName: serviceName}

	var err error
	m.requestCounter, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests served"))
	if err != nil {
		log.Warnf("failed to create request counter: %v", err)
	}
	m.durationHistory, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"))
	if err != nil {
		log.Warnf("failed to create duration histogram: %v", err)
	}
	return m
}

// Middleware instruments handlers with otelhttp and records request counters.
func (m *HTTPMetrics) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			m.record(r, sw.status, time.Since(start))
		})
		return otelhttp.NewHandler(counted, m.serviceName)
	}
}

func (m *HTTPMetrics) record(r *http.Request, status int, elapsed time.Duration) {
	m.requests.Add(1)
	m.totalMillis.Add(elapsed.Milliseconds())
	switch {
	case status >= 500:
		m.serverError.Add(1)
	case status >= 400:
		m.clientError.Add(1)
	}

	attrs := metric.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.Int("http.status_code", status),
	)
	if m.requestCounter != nil {
		m.requestCounter.Add(r.Context(), 1, attrs)
	}
	if m.durationHistory != nil {
		m.durationHistory.Record(r.Context(), float64(elapsed.Microseconds())/1000, attrs)
	}
}

// Stats is the reporter poller for HTTP traffic.
func (m *HTTPMetrics) Stats() map[string]any {
	requests := m.requests.Load()
	var avg int64
	if requests > 0 {
		avg = m.totalMillis.Load() / requests
	}
	return map[string]any{
		"requests":       requests,
		"client_errors":  m.clientError.Load(),
		"server_errors":  m.serverError.Load(),
		"avg_latency_ms": avg,
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
