package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/dashboard"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/telemetry"
)

func newTestRouter(t *testing.T, origins []string) http.Handler {
	t.Helper()

	store := docstore.NewMemory()
	mirror := patient.NewMirror(store, "patients", nil, zerolog.Nop())
	repo := patient.NewRepository(store, "patients", zerolog.Nop())
	service := patient.NewService(repo, mirror, nil, nil, zerolog.Nop())

	return SetupRouter(RouterDeps{
		ServiceName:    "patient-dashboard-test",
		Patients:       patient.NewHandler(service, mirror),
		Dashboard:      dashboard.NewHandler(mirror, service, nil, zerolog.Nop()),
		Gauges:         telemetry.NewDashboardGauges(),
		AllowedOrigins: origins,
		Logger:         zerolog.Nop(),
	})
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestRoutes_BeforeFirstSnapshot(t *testing.T) {
	router := newTestRouter(t, nil)

	testCases := []struct {
		path   string
		status int
	}{
		{"/api/patients", http.StatusServiceUnavailable},
		{"/api/stats", http.StatusServiceUnavailable},
		{"/api/taxonomy", http.StatusOK},
		{"/", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}

	for _, tc := range testCases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.path, tc.status, rr.Code)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	router := newTestRouter(t, []string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodOptions, "/api/patients", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow-origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin for unknown origin, got %q", got)
	}
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	r := mux.NewRouter()
	r.Use(Recovery(zerolog.New(&logs)))
	r.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(logs.String(), "panic recovered") {
		t.Errorf("expected panic to be logged, got %s", logs.String())
	}
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	r := mux.NewRouter()
	r.Use(RequestLogger(zerolog.New(&logs), nil))
	r.HandleFunc("/patients/{id}", func(w http.ResponseWriter, r *http.Request) {
		if routeTemplate(r) != "/patients/{id}" {
			t.Errorf("unexpected route template %q", routeTemplate(r))
		}
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/patients/42", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rr.Code)
	}
	if !strings.Contains(logs.String(), `"status":418`) || !strings.Contains(logs.String(), `"path":"/patients/42"`) {
		t.Errorf("unexpected log line %s", logs.String())
	}
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if _, _, err := rec.Hijack(); err == nil {
		t.Error("expected error from a writer that cannot hijack")
	}
}
