package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry instruments of the service. A nil
// *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	PatientOperationsTotal metric.Int64Counter
	SnapshotsTotal         metric.Int64Counter
	SnapshotSize           metric.Int64Histogram
}

// InitMetrics initializes all custom metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/WailSalutem-Health-Care/patient-dashboard")

	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	httpDurationMs, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	patientOperationsTotal, err := meter.Int64Counter(
		"patient_operations_total",
		metric.WithDescription("Total number of patient mutations by operation and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	snapshotsTotal, err := meter.Int64Counter(
		"patient_snapshots_total",
		metric.WithDescription("Total number of patient snapshots received from the store"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram(
		"patient_snapshot_size",
		metric.WithDescription("Number of patients in each received snapshot"),
		metric.WithUnit("{patient}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		HTTPRequestsTotal:      httpRequestsTotal,
		HTTPDurationMs:         httpDurationMs,
		PatientOperationsTotal: patientOperationsTotal,
		SnapshotsTotal:         snapshotsTotal,
		SnapshotSize:           snapshotSize,
	}, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)

	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

// RecordPatientOperation records a patient mutation and whether it succeeded
func (m *Metrics) RecordPatientOperation(ctx context.Context, operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.PatientOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordSnapshot records a snapshot of size patients
func (m *Metrics) RecordSnapshot(ctx context.Context, size int) {
	if m == nil {
		return
	}
	m.SnapshotsTotal.Add(ctx, 1)
	m.SnapshotSize.Record(ctx, int64(size))
}
