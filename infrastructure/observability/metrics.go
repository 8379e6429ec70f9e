package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"drawpool/config"
	"drawpool/domain/entities"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var severities = []entities.IssueSeverity{
	entities.SeverityLow,
	entities.SeverityMedium,
	entities.SeverityHigh,
	entities.SeverityCritical,
}

// MetricsProvider manages OpenTelemetry metrics for the draw pool service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	allocationsCounter           metric.Int64Counter
	sharesAllocatedCounter       metric.Int64Counter
	allocationDurationHist       metric.Float64Histogram
	drawsCounter                 metric.Int64Counter
	drawDurationHist             metric.Float64Histogram
	correctionsCounter           metric.Int64Counter
	consistencyIssuesGauge       metric.Int64Gauge
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		// Schemaless so the merge never conflicts with the SDK default schema URL
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("drawpool")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.allocationsCounter, err = mp.meter.Int64Counter(
		AllocationsTotal,
		metric.WithDescription("Total number of allocation attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create allocations counter: %w", err)
	}

	mp.sharesAllocatedCounter, err = mp.meter.Int64Counter(
		SharesAllocated,
		metric.WithDescription("Total number of shares allocated"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create shares allocated counter: %w", err)
	}

	mp.allocationDurationHist, err = mp.meter.Float64Histogram(
		AllocationDuration,
		metric.WithDescription("Duration of allocation transactions in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return fmt.Errorf("failed to create allocation duration histogram: %w", err)
	}

	mp.drawsCounter, err = mp.meter.Int64Counter(
		DrawsTotal,
		metric.WithDescription("Total number of draw attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draws counter: %w", err)
	}

	mp.drawDurationHist, err = mp.meter.Float64Histogram(
		DrawDuration,
		metric.WithDescription("Duration of draw transactions in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create draw duration histogram: %w", err)
	}

	mp.correctionsCounter, err = mp.meter.Int64Counter(
		CorrectionsTotal,
		metric.WithDescription("Total number of applied corrections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create corrections counter: %w", err)
	}

	mp.consistencyIssuesGauge, err = mp.meter.Int64Gauge(
		ConsistencyIssues,
		metric.WithDescription("Consistency issues found by the last audit pass"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create consistency issues gauge: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordAllocation records one allocation attempt
func (mp *MetricsProvider) RecordAllocation(kind entities.ParticipationKind, outcome string, shares int, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String(LabelKind, string(kind)),
		attribute.String(LabelOutcome, outcome),
	)
	mp.allocationsCounter.Add(ctx, 1, attrs)
	mp.allocationDurationHist.Record(ctx, duration.Seconds(), attrs)
	if outcome == OutcomeSuccess {
		mp.sharesAllocatedCounter.Add(ctx, int64(shares), metric.WithAttributes(attribute.String(LabelKind, string(kind))))
	}
}

// RecordDraw records one draw attempt
func (mp *MetricsProvider) RecordDraw(trigger entities.DrawTrigger, outcome string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelTrigger, string(trigger)),
		attribute.String(LabelOutcome, outcome),
	)
	mp.drawsCounter.Add(context.Background(), 1, attrs)
	mp.drawDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordCorrection records an applied correction
func (mp *MetricsProvider) RecordCorrection(targetType entities.CorrectionTarget, field string) {
	if !mp.isEnabled() {
		return
	}

	mp.correctionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelTarget, string(targetType)),
			attribute.String(LabelField, field),
		),
	)
}

// RecordConsistencyReport sets the issue gauge for every severity, including the ones
// the report did not contain, so a cleared issue drops back to zero
func (mp *MetricsProvider) RecordConsistencyReport(report *entities.ConsistencyReport) {
	if !mp.isEnabled() || report == nil {
		return
	}

	for _, severity := range severities {
		mp.consistencyIssuesGauge.Record(context.Background(), int64(report.Summary[severity]),
			metric.WithAttributes(attribute.String(LabelSeverity, string(severity))),
		)
	}
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// isEnabled checks if metrics are initialized with a live exporter
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
