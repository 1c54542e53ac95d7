package http

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/telemetry"
)

// statusRecorder captures the status code written by a handler. It keeps
// the connection hijackable for WebSocket upgrades.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestLogger logs one line per request and records the HTTP metrics.
func RequestLogger(logger zerolog.Logger, metrics *telemetry.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			latency := time.Since(start)
			evt := logger.Info()
			if rec.status >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("latency", latency).
				Str("remote_ip", r.RemoteAddr).
				Msg("request")

			metrics.RecordHTTPRequest(r.Context(), r.Method, routeTemplate(r), rec.status, float64(latency.Microseconds())/1000)
		})
	}
}

// Recovery turns a panicking handler into a 500.
func Recovery(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					logger.Error().
						Str("path", r.URL.Path).
						Str("panic", fmt.Sprintf("%v", rv)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					respondError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// routeTemplate keeps metric cardinality bounded by ids.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
