package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) enabled() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
}

var (
	mu             sync.Mutex
	tracerProvider *trace.TracerProvider
	meterProvider  *metric.MeterProvider
)

// InitSlog sets the default slog logger, verbose enables debug logs.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

// Setup installs the global tracer and meter providers. A signal whose exporter
// has no endpoint keeps the no-op provider.
func Setup(ctx context.Context, serviceName string, config Config) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if config.Otlp.Traces.enabled() {
		tp, err := newTraceProvider(ctx, r, config)
		if err != nil {
			return err
		}
		otel.SetTracerProvider(tp)
		tracerProvider = tp
	}
	if config.Otlp.Metrics.enabled() {
		mp, err := newMetricProvider(ctx, r, config)
		if err != nil {
			return err
		}
		otel.SetMeterProvider(mp)
		meterProvider = mp
	}
	return nil
}

// Shutdown flushes and stops whatever Setup installed.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	var errs []error
	if tracerProvider != nil {
		errs = append(errs, tracerProvider.Shutdown(ctx))
		tracerProvider = nil
	}
	if meterProvider != nil {
		errs = append(errs, meterProvider.Shutdown(ctx))
		meterProvider = nil
	}
	return errors.Join(errs...)
}
