// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package telemetry supplies the otel tracer accessor used by the cache
// engine's Ensure and Purge. When DLCACHE_OTLP_ENDPOINT is unset,
// spans are created against the global no-op provider, so tracing carries
// no overhead and no network dependency unless explicitly configured.
package telemetry

import (
	"context"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/dotandev/dlcache/internal/logger"
)

const tracerName = "github.com/dotandev/dlcache"

var (
	initOnce    sync.Once
	shutdownFns []func(context.Context) error
)

// GetTracer returns the package-wide tracer, configuring the global
// provider on first use from DLCACHE_OTLP_ENDPOINT if set.
func GetTracer() trace.Tracer {
	initOnce.Do(initProvider)
	return otel.Tracer(tracerName)
}

func initProvider() {
	endpoint := os.Getenv("DLCACHE_OTLP_ENDPOINT")
	if endpoint == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		logger.Logger.Warn("failed to configure OTLP exporter, tracing disabled", "error", err)
		return
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName("dlcache")))
	if err != nil {
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	shutdownFns = append(shutdownFns, tp.Shutdown)
}

// Shutdown flushes any configured exporters. Safe to call even when no
// endpoint was configured.
func Shutdown(ctx context.Context) error {
	var firstErr error
	for _, fn := range shutdownFns {
		if err := fn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
