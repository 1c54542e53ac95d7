package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DashboardGauges exposes the current dashboard statistics for scraping.
type DashboardGauges struct {
	PatientsTotal      prometheus.Gauge
	PatientsNew        prometheus.Gauge
	PatientsDischarged prometheus.Gauge
	PatientsByCategory *prometheus.GaugeVec
	WebSocketClients   prometheus.Gauge
	registry           *prometheus.Registry
	refresh            func()
}

// NewDashboardGauges registers the gauges on a dedicated registry so tests
// can create more than one.
func NewDashboardGauges() *DashboardGauges {
	g := &DashboardGauges{
		PatientsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_patients_total",
			Help: "Number of patient records",
		}),
		PatientsNew: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_patients_new",
			Help: "Patients admitted within the last seven days",
		}),
		PatientsDischarged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_patients_discharged",
			Help: "Patients with status Discharged",
		}),
		PatientsByCategory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_patients_by_category",
			Help: "Patient records per condition category",
		}, []string{"category"}),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_websocket_clients",
			Help: "Connected live-update clients",
		}),
		registry: prometheus.NewRegistry(),
	}

	g.registry.MustRegister(
		g.PatientsTotal,
		g.PatientsNew,
		g.PatientsDischarged,
		g.PatientsByCategory,
		g.WebSocketClients,
	)
	return g
}

// SetStats replaces the stat gauges. byCategory fully replaces the
// per-category series.
func (g *DashboardGauges) SetStats(total, newCount, discharged int, byCategory map[string]int) {
	g.PatientsTotal.Set(float64(total))
	g.PatientsNew.Set(float64(newCount))
	g.PatientsDischarged.Set(float64(discharged))

	g.PatientsByCategory.Reset()
	for category, n := range byCategory {
		g.PatientsByCategory.WithLabelValues(category).Set(float64(n))
	}
}

// SetClients records the number of connected live-update clients.
func (g *DashboardGauges) SetClients(n int) {
	g.WebSocketClients.Set(float64(n))
}

// BeforeScrape sets a function run ahead of every scrape. The stat gauges
// depend on the clock as well as on the records, so they are recomputed
// there. Call it before the handler serves.
func (g *DashboardGauges) BeforeScrape(fn func()) {
	g.refresh = fn
}

// Handler returns the Prometheus HTTP handler for the gauges
func (g *DashboardGauges) Handler() http.Handler {
	h := promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.refresh != nil {
			g.refresh()
		}
		h.ServeHTTP(w, r)
	})
}
