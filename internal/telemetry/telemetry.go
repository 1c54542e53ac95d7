package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/config"
)

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceNamespace string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	TracesSampler    string
	MetricsInterval  time.Duration
}

// ConfigFrom picks the OpenTelemetry settings out of the service config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		ServiceName:      cfg.OTelServiceName,
		ServiceNamespace: cfg.OTelNamespace,
		ServiceVersion:   cfg.OTelVersion,
		Environment:      cfg.Env,
		OTLPEndpoint:     cfg.OTelEndpoint,
		TracesSampler:    cfg.OTelSampler,
		MetricsInterval:  cfg.OTelMetricInterval,
	}
}

// Provider holds the OpenTelemetry providers
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	logger         zerolog.Logger
}

// InitProvider initializes OpenTelemetry tracer and meter providers.
// A collector that cannot be reached leaves the corresponding provider nil
// and the service keeps running.
func InitProvider(ctx context.Context, cfg Config, logger zerolog.Logger) (*Provider, error) {
	logger = logger.With().Str("component", "telemetry").Logger()
	logger.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("initializing OpenTelemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider, err := initTracerProvider(ctx, cfg, res)
	if err != nil {
		logger.Warn().Err(err).Msg("continuing without distributed tracing")
		tracerProvider = nil
	} else {
		otel.SetTracerProvider(tracerProvider)
		logger.Info().Msg("tracer provider initialized")
	}

	meterProvider, err := initMeterProvider(ctx, cfg, res)
	if err != nil {
		logger.Warn().Err(err).Msg("continuing without metrics export")
		meterProvider = nil
	} else {
		otel.SetMeterProvider(meterProvider)
		logger.Info().Msg("meter provider initialized")
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		logger:         logger,
	}, nil
}

// samplerFor maps OTEL_TRACES_SAMPLER to a sampler. Unknown names sample
// everything.
func samplerFor(name string) trace.Sampler {
	switch name {
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(0.1)
	default:
		return trace.AlwaysSample()
	}
}

func initTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(samplerFor(cfg.TracesSampler)),
		trace.WithBatcher(traceExporter,
			trace.WithBatchTimeout(5*time.Second),
			trace.WithMaxExportBatchSize(512),
		),
	), nil
}

func initMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlpmetricgrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter,
			metric.WithInterval(interval),
		)),
	), nil
}

// Shutdown flushes and stops both providers
func (p *Provider) Shutdown(ctx context.Context) error {
	p.logger.Info().Msg("shutting down OpenTelemetry providers")

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
