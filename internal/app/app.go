// Package app assembles the dashboard from a document store: the mirror
// and its listeners, the patient service, and the HTTP handlers.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/dashboard"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
	httpserver "github.com/WailSalutem-Health-Care/patient-dashboard/internal/http"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/messaging"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/realtime"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/telemetry"
)

type Options struct {
	ServiceName    string
	Collection     string
	AllowedOrigins []string
	Store          docstore.Store
	// Publisher may be nil; events are then dropped.
	Publisher messaging.PublisherInterface
	// Metrics may be nil.
	Metrics *telemetry.Metrics
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger zerolog.Logger
}

// App is one running dashboard.
type App struct {
	Mirror  *patient.Mirror
	Service *patient.Service
	Hub     *realtime.Hub
	Gauges  *telemetry.DashboardGauges
	Handler http.Handler

	unsubscribe func()
	logger      zerolog.Logger
}

func New(opts Options) *App {
	gauges := telemetry.NewDashboardGauges()
	hub := realtime.NewHub(opts.Logger, gauges.SetClients)

	mirror := patient.NewMirror(opts.Store, opts.Collection, opts.Metrics, opts.Logger)
	feed := dashboard.NewFeed(hub, gauges, opts.Now)
	mirror.AddListener(feed)
	hub.SetReplay(feed.Replay(mirror))
	gauges.BeforeScrape(func() { feed.Refresh(mirror) })

	repo := patient.NewRepository(opts.Store, opts.Collection, opts.Logger)
	service := patient.NewService(repo, mirror, opts.Publisher, opts.Metrics, opts.Logger)

	handler := httpserver.SetupRouter(httpserver.RouterDeps{
		ServiceName:    opts.ServiceName,
		Patients:       patient.NewHandler(service, mirror),
		Dashboard:      dashboard.NewHandler(mirror, service, opts.Now, opts.Logger),
		Live:           realtime.NewHandler(hub, opts.AllowedOrigins),
		Gauges:         gauges,
		Metrics:        opts.Metrics,
		AllowedOrigins: opts.AllowedOrigins,
		Logger:         opts.Logger,
	})

	return &App{
		Mirror:  mirror,
		Service: service,
		Hub:     hub,
		Gauges:  gauges,
		Handler: handler,
		logger:  opts.Logger.With().Str("component", "app").Logger(),
	}
}

// Start opens the live query. A store that refuses the watch leaves the
// mirror in its terminal error state and the dashboard keeps serving the
// error page; only a second Start fails.
func (a *App) Start(ctx context.Context) error {
	unsubscribe, err := a.Mirror.Subscribe(ctx)
	if errors.Is(err, patient.ErrAlreadySubscribed) {
		return err
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("live query refused, serving the error state")
		return nil
	}
	a.unsubscribe = unsubscribe
	return nil
}

// Stop closes the live query and waits for the mirror to stop.
func (a *App) Stop() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}
