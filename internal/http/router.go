package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/dashboard"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/telemetry"
)

// RouterDeps are the components the router serves.
type RouterDeps struct {
	ServiceName    string
	Patients       *patient.Handler
	Dashboard      *dashboard.Handler
	Live           http.Handler
	Gauges         *telemetry.DashboardGauges
	Metrics        *telemetry.Metrics
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// SetupRouter initializes all routes for the application
func SetupRouter(d RouterDeps) http.Handler {
	logger := d.Logger.With().Str("component", "http").Logger()

	r := mux.NewRouter()
	r.Use(
		otelmux.Middleware(d.ServiceName),
		Recovery(logger),
		RequestLogger(logger, d.Metrics),
	)

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": d.ServiceName})
	}).Methods(http.MethodGet)

	if d.Gauges != nil {
		r.Handle("/metrics", d.Gauges.Handler()).Methods(http.MethodGet)
	}
	if d.Live != nil {
		r.Handle("/ws", d.Live).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	d.Patients.RegisterRoutes(api)
	d.Dashboard.RegisterRoutes(r, api)

	return CORSMiddleware(d.AllowedOrigins)(r)
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
