package sink

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"rmf-simulator/internal/model"
)

const meterName = "rmf-simulator"

type OTLPOptions struct {
	Endpoint string
	Insecure bool
	Interval time.Duration
}

// OTLPSink records every sample on OpenTelemetry instruments that are pushed
// to a collector by a periodic reader.
type OTLPSink struct {
	provider   *sdkmetric.MeterProvider
	gauges     map[model.MetricName]metric.Float64Gauge
	histograms map[model.MetricName]metric.Float64Histogram
}

func OpenOTLP(ctx context.Context, opts OTLPOptions, sysplex string) (*OTLPSink, error) {
	expOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		expOpts = append(expOpts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, expOpts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(meterName),
		attribute.String("rmf.sysplex", sysplex),
	)
	return newOTLPSink(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval)), res)
}

func newOTLPSink(reader sdkmetric.Reader, res *resource.Resource) (*OTLPSink, error) {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	meter := provider.Meter(meterName)

	s := &OTLPSink{
		provider:   provider,
		gauges:     make(map[model.MetricName]metric.Float64Gauge),
		histograms: make(map[model.MetricName]metric.Float64Histogram),
	}
	for _, def := range model.Catalog {
		if def.Prom.Kind == model.PromHistogram {
			h, err := meter.Float64Histogram(def.Prom.Name,
				metric.WithDescription(def.Help),
				metric.WithExplicitBucketBoundaries(def.Prom.Buckets...))
			if err != nil {
				return nil, fmt.Errorf("histogram %s: %w", def.Prom.Name, err)
			}
			s.histograms[def.Name] = h
			continue
		}
		g, err := meter.Float64Gauge(def.Prom.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("gauge %s: %w", def.Prom.Name, err)
		}
		s.gauges[def.Name] = g
	}
	return s, nil
}

func (s *OTLPSink) Name() string {
	return "otlp"
}

func (s *OTLPSink) Write(ctx context.Context, batch model.MetricBatch) error {
	for _, smp := range batch.Samples {
		def, ok := model.LookupMetric(smp.Metric)
		if !ok {
			return fmt.Errorf("unknown metric %q", smp.Metric)
		}
		attrs := make([]attribute.KeyValue, 0, len(def.Prom.Labels)+2)
		attrs = append(attrs, attribute.String("sysplex", smp.Sysplex), attribute.String("lpar", smp.LPAR))
		for _, l := range def.Prom.Labels {
			attrs = append(attrs, attribute.String(l, smp.Label(l)))
		}
		v := smp.Value
		if def.Prom.Scale != 0 {
			v *= def.Prom.Scale
		}

		opt := metric.WithAttributes(attrs...)
		if h, ok := s.histograms[smp.Metric]; ok {
			h.Record(ctx, v, opt)
		} else {
			s.gauges[smp.Metric].Record(ctx, v, opt)
		}
	}
	return nil
}

// Close flushes pending data points and stops the exporter.
func (s *OTLPSink) Close(ctx context.Context) error {
	return s.provider.Shutdown(ctx)
}
