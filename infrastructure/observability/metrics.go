package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lending/config"

	"github.com/shopspring/decimal"
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

// MetricsProvider manages OpenTelemetry metrics for the lending service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	ledgerTransactionsCounter    metric.Int64Counter
	yieldPayoutsCounter          metric.Int64Counter
	yieldPaidAmountCounter       metric.Float64Counter
	importRowsCounter            metric.Int64Counter
	natsMessagesReceivedCounter  metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
	operationDurationHist        metric.Float64Histogram
	databaseQueryDurationHist    metric.Float64Histogram
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

	if err := mp.useMeter(mp.meterProvider.Meter("lending")); err != nil {
		return err
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// useMeter binds the provider to a meter and creates every instrument on it
func (mp *MetricsProvider) useMeter(meter metric.Meter) error {
	mp.meter = meter
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.ledgerTransactionsCounter, err = mp.meter.Int64Counter(
		LedgerTransactionsTotal,
		metric.WithDescription("Total number of ledger entries written"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger transactions counter: %w", err)
	}

	mp.yieldPayoutsCounter, err = mp.meter.Int64Counter(
		YieldPayoutsTotal,
		metric.WithDescription("Total number of daily yield payouts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create yield payouts counter: %w", err)
	}

	mp.yieldPaidAmountCounter, err = mp.meter.Float64Counter(
		YieldPaidAmount,
		metric.WithDescription("Total yield paid out"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create yield paid amount counter: %w", err)
	}

	mp.importRowsCounter, err = mp.meter.Int64Counter(
		ImportRowsTotal,
		metric.WithDescription("Total number of batch import rows by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create import rows counter: %w", err)
	}

	mp.natsMessagesReceivedCounter, err = mp.meter.Int64Counter(
		NATSMessagesReceivedTotal,
		metric.WithDescription("Total number of NATS messages received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages received counter: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	mp.operationDurationHist, err = mp.meter.Float64Histogram(
		OperationDuration,
		metric.WithDescription("Duration of ledger engine operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 30.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	mp.databaseQueryDurationHist, err = mp.meter.Float64Histogram(
		DatabaseQueryDuration,
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create database query duration histogram: %w", err)
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

// RecordLedgerTransaction records one ledger entry of the given type
func (mp *MetricsProvider) RecordLedgerTransaction(transactionType string) {
	if !mp.isEnabled() {
		return
	}

	mp.ledgerTransactionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelType, transactionType),
		),
	)
}

// RecordYieldPayouts records the outcome of a daily yield run
func (mp *MetricsProvider) RecordYieldPayouts(count int, total decimal.Decimal) {
	if !mp.isEnabled() || count == 0 {
		return
	}

	mp.yieldPayoutsCounter.Add(context.Background(), int64(count))
	mp.yieldPaidAmountCounter.Add(context.Background(), total.InexactFloat64())
}

// RecordImportRows records import rows by outcome
func (mp *MetricsProvider) RecordImportRows(outcome string, count int) {
	if !mp.isEnabled() || count == 0 {
		return
	}

	mp.importRowsCounter.Add(context.Background(), int64(count),
		metric.WithAttributes(
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordNATSMessageReceived records a NATS message being received
func (mp *MetricsProvider) RecordNATSMessageReceived(subject string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelSubject, subject),
		),
	)
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

// RecordOperation records the duration of an engine operation
func (mp *MetricsProvider) RecordOperation(operation string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	mp.operationDurationHist.Record(context.Background(), duration.Seconds(),
		metric.WithAttributes(
			attribute.String(LabelOperation, operation),
		),
	)
}

// MeasureOperation returns a function to measure an engine operation
// Usage:
//
//	defer mp.MeasureOperation("daily_yield")()
func (mp *MetricsProvider) MeasureOperation(operation string) func() {
	start := time.Now()
	return func() {
		mp.RecordOperation(operation, time.Since(start))
	}
}

// RecordDatabaseQuery records the duration of one database statement
func (mp *MetricsProvider) RecordDatabaseQuery(statement string, failed bool, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	outcome := OutcomeSucceeded
	if failed {
		outcome = OutcomeFailed
	}
	mp.databaseQueryDurationHist.Record(context.Background(), duration.Seconds(),
		metric.WithAttributes(
			attribute.String(LabelStatement, statement),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// isEnabled checks if metrics are enabled and have instruments to record on
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
