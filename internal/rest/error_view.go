package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the body used for request validation failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ErrorView renders the fixed JSON body used for status-level errors:
//
//	{"errors":{"detail":"Not Found"}}
type ErrorView struct{}

// Render builds the body for a template named "<status>.json", e.g. "404.json".
// The detail is the standard status text. Unknown templates render as 500.
func (ErrorView) Render(template string) map[string]any {
	return map[string]any{
		"errors": map[string]any{
			"detail": statusMessage(template),
		},
	}
}

func statusMessage(template string) string {
	code, ok := strings.CutSuffix(template, ".json")
	if !ok {
		return http.StatusText(http.StatusInternalServerError)
	}
	status, err := strconv.Atoi(code)
	if err != nil {
		return http.StatusText(http.StatusInternalServerError)
	}
	text := http.StatusText(status)
	if text == "" {
		return http.StatusText(http.StatusInternalServerError)
	}
	return text
}

// WriteError writes the fixed error body for status.
func WriteError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := ErrorView{}.Render(strconv.Itoa(status) + ".json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to write error body: %v", err)
	}
}

// WriteValidationError writes an ErrorResponse with the given status.
func WriteValidationError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Details: details}); err != nil {
		log.Errorf("failed to write validation error: %v", err)
	}
}

// StatusCoder is implemented by errors that map to a specific response status.
type StatusCoder interface {
	StatusCode() int
}

// WriteServiceError writes the fixed body for a failed service call. Errors
// carrying a StatusCode anywhere in their chain keep it; anything else is logged
// and answered with 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	var coded StatusCoder
	if errors.As(err, &coded) {
		log.Debugf("request refused: %v", err)
		WriteError(w, coded.StatusCode())
		return
	}
	log.Errorf("request failed: %v", err)
	WriteError(w, http.StatusInternalServerError)
}

func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("no route for %s %s", r.Method, r.URL.Path)
		WriteError(w, http.StatusNotFound)
	})
}

func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed)
	})
}

// Recoverer turns a panicking handler into a 500 with the fixed error body.
// A response that was already started cannot be replaced, so the connection is
// aborted instead.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				if tw.started {
					panic(http.ErrAbortHandler)
				}
				WriteError(w, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(tw, r)
	})
}

type trackingWriter struct {
	http.ResponseWriter
	started bool
}

func (w *trackingWriter) WriteHeader(status int) {
	w.started = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(b)
}

func (w *trackingWriter) Flush() {
	w.started = true
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
