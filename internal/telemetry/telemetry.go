// Package telemetry attaches OpenTelemetry exporters to the converter from command line options.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/woozymasta/speckle2geojson/internal/convert"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporters accepted by the telemetry option.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Telemetry holds telemetry options shared by every command.
type Telemetry struct {
	Exporter string        `long:"telemetry"          env:"TELEMETRY"          description:"Export conversion metrics and spans" choice:"none" choice:"stdout" default:"none"`
	Interval time.Duration `long:"telemetry-interval" env:"TELEMETRY_INTERVAL" description:"Metric export interval" default:"1m"`
}

// Providers are the SDK providers built from the options.
// Without an exporter they are empty and the converter stays on noop providers.
type Providers struct {
	meter  *sdkmetric.MeterProvider
	tracer *sdktrace.TracerProvider
}

// Setup builds providers exporting to stderr, keeping stdout for command output.
func (t Telemetry) Setup() (*Providers, error) {
	return t.setup(os.Stderr)
}

func (t Telemetry) setup(w io.Writer) (*Providers, error) {
	switch t.Exporter {
	case "", ExporterNone:
		return &Providers{}, nil
	case ExporterStdout:
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", t.Exporter)
	}

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	spanExporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if t.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(t.Interval))
	}

	return &Providers{
		meter: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, readerOpts...)),
		),
		tracer: sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(spanExporter)),
		),
	}, nil
}

// Enabled reports whether an exporter is attached.
func (p *Providers) Enabled() bool {
	return p != nil && p.meter != nil
}

// Options returns the converter options recording on the providers.
func (p *Providers) Options() []convert.Option {
	if !p.Enabled() {
		return nil
	}
	return []convert.Option{
		convert.WithMeterProvider(p.meter),
		convert.WithTracerProvider(p.tracer),
	}
}

// Shutdown flushes pending spans and metrics.
func (p *Providers) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return errors.Join(p.tracer.Shutdown(ctx), p.meter.Shutdown(ctx))
}
