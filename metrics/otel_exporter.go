package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/marcelsud/inbound-processor/inbound"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter exports the processor metrics in Prometheus format.
// It is also an inbound.Listener counting call outcomes.
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector
	gatherer      prom.Gatherer

	meter              metric.Meter
	calls              metric.Int64Counter
	queueLengthGauge   metric.Int64ObservableGauge
	pendingJobsGauge   metric.Int64ObservableGauge
	recordsGauge       metric.Int64ObservableGauge
	activeWorkersGauge metric.Int64ObservableGauge
}

// NewOTelExporter creates an exporter registering on reg.
// A nil reg uses the Prometheus default registry and sets the global meter provider.
func NewOTelExporter(collector Collector, reg *prom.Registry) (*OTelExporter, error) {
	var (
		opts     []prometheus.Option
		gatherer prom.Gatherer = prom.DefaultGatherer
	)
	if reg != nil {
		opts = append(opts, prometheus.WithRegisterer(reg))
		gatherer = reg
	}

	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	if reg == nil {
		otel.SetMeterProvider(meterProvider)
	}

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		gatherer:      gatherer,
		meter:         meterProvider.Meter("inbound-processor", metric.WithInstrumentationVersion("1.0.0")),
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.calls, err = oe.meter.Int64Counter(
		"inbound.calls",
		metric.WithDescription("Number of inbound calls by endpoint and outcome"),
		metric.WithUnit("{calls}"),
	)
	if err != nil {
		return fmt.Errorf("creating calls counter: %w", err)
	}

	if oe.collector == nil {
		return nil
	}

	oe.queueLengthGauge, err = oe.meter.Int64ObservableGauge(
		"inbound.queue.length",
		metric.WithDescription("Number of entries in the job stream per endpoint"),
		metric.WithUnit("{jobs}"),
		metric.WithInt64Callback(oe.observe(oe.collector.QueueLengths)),
	)
	if err != nil {
		return fmt.Errorf("creating queue length gauge: %w", err)
	}

	oe.pendingJobsGauge, err = oe.meter.Int64ObservableGauge(
		"inbound.jobs.pending",
		metric.WithDescription("Number of delivered but unacknowledged jobs per endpoint"),
		metric.WithUnit("{jobs}"),
		metric.WithInt64Callback(oe.observe(oe.collector.PendingJobs)),
	)
	if err != nil {
		return fmt.Errorf("creating pending jobs gauge: %w", err)
	}

	oe.recordsGauge, err = oe.meter.Int64ObservableGauge(
		"inbound.records",
		metric.WithDescription("Number of stored records per endpoint"),
		metric.WithUnit("{records}"),
		metric.WithInt64Callback(oe.observe(oe.collector.RecordCounts)),
	)
	if err != nil {
		return fmt.Errorf("creating records gauge: %w", err)
	}

	oe.activeWorkersGauge, err = oe.meter.Int64ObservableGauge(
		"inbound.workers.active",
		metric.WithDescription("Number of active workers per endpoint"),
		metric.WithUnit("{workers}"),
		metric.WithInt64Callback(oe.observeActiveWorkers),
	)
	if err != nil {
		return fmt.Errorf("creating active workers gauge: %w", err)
	}

	return nil
}

// observe adapts a per-endpoint collector method to a gauge callback
func (oe *OTelExporter) observe(fn func(context.Context) (map[string]int64, error)) metric.Int64Callback {
	return func(ctx context.Context, observer metric.Int64Observer) error {
		values, err := fn(ctx)
		if err != nil {
			return err
		}
		for endpoint, v := range values {
			observer.Observe(v, metric.WithAttributes(attribute.String("endpoint", endpoint)))
		}
		return nil
	}
}

func (oe *OTelExporter) observeActiveWorkers(ctx context.Context, observer metric.Int64Observer) error {
	workers, err := oe.collector.ActiveWorkers(ctx)
	if err != nil {
		return err
	}

	for endpoint, list := range workers {
		observer.Observe(int64(len(list)), metric.WithAttributes(attribute.String("endpoint", endpoint)))
	}
	return nil
}

// Notify counts the outcome of a call
func (oe *OTelExporter) Notify(ctx context.Context, ev inbound.Event) {
	oe.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", ev.Endpoint),
		attribute.String("outcome", string(ev.Kind)),
	))
}

// Handler serves the Prometheus-formatted metrics
func (oe *OTelExporter) Handler() http.Handler {
	return promhttp.HandlerFor(oe.gatherer, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
