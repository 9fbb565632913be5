package convert

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// instrumentation scope of meters and tracers
const scope = "github.com/woozymasta/speckle2geojson/internal/convert"

// Option configures a Converter.
type Option func(*Converter)

// WithMeterProvider records run metrics on mp.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Converter) {
		if mp != nil {
			c.meter = mp.Meter(scope)
		}
	}
}

// WithTracerProvider records one span per run on tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Converter) {
		if tp != nil {
			c.tracer = tp.Tracer(scope)
		}
	}
}

// telemetry holds the metric instruments of a converter.
type telemetry struct {
	// createDuration records the feature assembly phase in milliseconds
	createDuration metric.Float64Histogram

	// transformDuration records the bulk transform phase in milliseconds
	transformDuration metric.Float64Histogram

	// converted counts emitted features and comments
	converted metric.Int64Counter

	// skipped counts nodes dropped by kind
	skipped metric.Int64Counter
}

func newTelemetry(meter metric.Meter) (*telemetry, error) {
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(scope)
	}

	t := &telemetry{}
	var err error

	t.createDuration, err = meter.Float64Histogram(
		"speckle2geojson.features.create.duration",
		metric.WithDescription("Time spent walking the scene and assembling features"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	t.transformDuration, err = meter.Float64Histogram(
		"speckle2geojson.transform.duration",
		metric.WithDescription("Time spent transforming buffered coordinates"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create transform histogram: %w", err)
	}

	t.converted, err = meter.Int64Counter(
		"speckle2geojson.features.converted",
		metric.WithDescription("Number of emitted features"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create converted counter: %w", err)
	}

	t.skipped, err = meter.Int64Counter(
		"speckle2geojson.nodes.skipped",
		metric.WithDescription("Number of scene nodes skipped, by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create skipped counter: %w", err)
	}

	return t, nil
}

func (c *Converter) startSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	tracer := c.tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(scope)
	}
	return tracer.Start(ctx, "speckle2geojson.convert",
		trace.WithAttributes(attribute.String("run.id", runID)))
}

// record publishes the report of a finished run. err is the run error, if any.
func (c *Converter) record(ctx context.Context, span trace.Span, r *Report, err error) {
	ms := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

	c.metrics.createDuration.Record(ctx, ms(r.CreateDuration))
	if r.TransformDuration > 0 {
		c.metrics.transformDuration.Record(ctx, ms(r.TransformDuration))
	}
	c.metrics.converted.Add(ctx, int64(r.Returned+r.Comments))
	if r.SkippedUnsupported > 0 {
		c.metrics.skipped.Add(ctx, int64(r.SkippedUnsupported), metric.WithAttributes(attribute.String("reason", "unsupported")))
	}
	if r.SkippedMalformed > 0 {
		c.metrics.skipped.Add(ctx, int64(r.SkippedMalformed), metric.WithAttributes(attribute.String("reason", "malformed")))
	}
	if r.Filtered > 0 {
		c.metrics.skipped.Add(ctx, int64(r.Filtered), metric.WithAttributes(attribute.String("reason", "filtered")))
	}

	span.SetAttributes(
		attribute.Int("features.matched", r.Matched),
		attribute.Int("features.returned", r.Returned),
		attribute.Int("comments", r.Comments),
		attribute.Int("nodes.skipped.unsupported", r.SkippedUnsupported),
		attribute.Int("nodes.skipped.malformed", r.SkippedMalformed),
		attribute.Bool("truncated", r.Truncated()),
	)
	if r.CRS != nil {
		span.SetAttributes(
			attribute.String("crs.name", r.CRS.Name),
			attribute.String("crs.source", string(r.CRS.Source)),
		)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
