package rdapclient

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/datum-labs/addrdap"

	metricCacheHits   = "rdap.cache.hits"
	metricCacheMisses = "rdap.cache.misses"
	metricFetches     = "rdap.fetches"
)

// telemetry bundles the tracer, counters and logger a Client reports to.
// The zero providers are the global otel ones, no-ops unless the program
// installs an SDK.
type telemetry struct {
	log     *slog.Logger
	tracer  trace.Tracer
	hits    metric.Int64Counter
	misses  metric.Int64Counter
	fetches metric.Int64Counter
}

func newTelemetry(log *slog.Logger, tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	t := &telemetry{
		log:    log,
		tracer: tp.Tracer(instrumentationName),
	}
	t.hits = counter(meter, log, metricCacheHits, "ip lookups answered from a service cache")
	t.misses = counter(meter, log, metricCacheMisses, "ip lookups not found in a service cache")
	t.fetches = counter(meter, log, metricFetches, "HTTP fetches issued, bootstrap included")
	return t
}

func counter(meter metric.Meter, log *slog.Logger, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("1"))
	if err != nil {
		log.Warn("rdap: create counter failed", "name", name, "err", err)
		return noop.Int64Counter{}
	}
	return c
}

func (t *telemetry) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

// end closes span, recording err when non-nil.
func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// add records on a context that outlives cancellation so failed requests
// are still counted.
func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	c.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attrs...))
}
