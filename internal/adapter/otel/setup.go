// Package otel wires OpenTelemetry tracing and metrics for the agent host:
// OTLP/gRPC export when an endpoint is configured and a Prometheus scrape
// handler when enabled.
package otel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(ctx context.Context) error

// Config selects which exporters Setup installs.
type Config struct {
	ServiceName string
	// Endpoint is the OTLP/gRPC collector address. Empty disables OTLP export.
	Endpoint string
	Insecure bool
	// Prometheus exposes metrics on the handler returned in Telemetry.
	Prometheus bool
}

// Telemetry is the result of Setup.
type Telemetry struct {
	// MetricsHandler serves the Prometheus exposition format. Nil when
	// Prometheus is disabled.
	MetricsHandler http.Handler
	Shutdown       ShutdownFunc
}

// Setup installs global tracer and meter providers. With no endpoint and
// Prometheus disabled the otel globals stay no-op.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	tel := &Telemetry{Shutdown: func(context.Context) error { return nil }}
	if cfg.Endpoint == "" && !cfg.Prometheus {
		slog.Info("otel disabled", "service", cfg.ServiceName)
		return tel, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))
	var shutdowns []ShutdownFunc
	var readers []sdkmetric.Option

	if cfg.Endpoint != "" {
		traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
			metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		}

		traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)

		metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("otlp metric exporter: %w", err), tp.Shutdown(ctx))
		}
		readers = append(readers, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
	}

	if cfg.Prometheus {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		promExp, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		readers = append(readers, sdkmetric.WithReader(promExp))
		tel.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	mp := sdkmetric.NewMeterProvider(append(readers, sdkmetric.WithResource(res))...)
	otel.SetMeterProvider(mp)
	shutdowns = append(shutdowns, mp.Shutdown)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tel.Shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}

	slog.Info("otel initialized", "service", cfg.ServiceName, "otlp", cfg.Endpoint != "", "prometheus", cfg.Prometheus)
	return tel, nil
}
