// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires a global OpenTelemetry TracerProvider so spans
// started anywhere in the pipeline (internal/pipeline, internal/llmclient)
// are actually exported, not silently dropped by the SDK's no-op default.
package telemetry

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config controls where spans go. A zero-value Config discards spans.
type Config struct {
	// ServiceName tags every span's resource attributes.
	ServiceName string
	// Enabled turns on the stdout span exporter. False discards spans
	// via an io.Discard writer, so instrumentation never costs more than
	// the span bookkeeping itself.
	Enabled bool
}

// Init installs a process-wide TracerProvider and returns a shutdown func
// that flushes and detaches it. Callers should defer the returned func.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	var dest io.Writer = io.Discard
	if cfg.Enabled {
		dest = os.Stderr
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(dest), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}

	name := cfg.ServiceName
	if name == "" {
		name = "forge"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(name)))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
