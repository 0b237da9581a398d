// Package telemetry wires OpenTelemetry trace export. Disabled, it hands
// out noop tracers so instrumented code needs no conditionals.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds telemetry construction options.
type Config struct {
	// Enabled turns trace export on.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector address, host:port.
	Endpoint string

	// ServiceName tags exported spans. Defaults to "confidant".
	ServiceName string

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = "confidant"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Telemetry owns the tracer provider lifecycle.
type Telemetry struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Setup initializes trace export. With Enabled false it returns a noop
// telemetry handle and no error.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With("component", "telemetry")

	if !cfg.Enabled {
		return &Telemetry{
			tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName),
			logger: logger,
		}, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Info("trace export enabled", "endpoint", cfg.Endpoint)
	return &Telemetry{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
		logger:   logger,
	}, nil
}

// Tracer returns the tracer instrumented components should use.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// Shutdown flushes pending spans, bounded by a 5s deadline.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}
