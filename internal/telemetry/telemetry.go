// Copyright (C) 2025 Argus Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telemetry wraps agent turns and tool dispatch in Prometheus
// counters/histograms and OpenTelemetry spans.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "argus"

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "argus",
		Subsystem: "agent",
		Name:      "turns_total",
		Help:      "Total agent turns by outcome (ok, error)",
	}, []string{"outcome"})

	turnDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "argus",
		Subsystem: "agent",
		Name:      "turn_duration_seconds",
		Help:      "Agent turn duration including all tool-call rounds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"outcome"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "argus",
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Total tool dispatches by tool name and outcome",
	}, []string{"tool", "outcome"})

	toolDispatchSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "argus",
		Subsystem: "tools",
		Name:      "dispatch_seconds",
		Help:      "Tool dispatch latency by tool name",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"tool"})

	mcpCallSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "argus",
		Subsystem: "mcp",
		Name:      "call_seconds",
		Help:      "External tool server call latency by server name",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"server"})
)

// InitTracing installs a TracerProvider that exports spans to stdout,
// returning a shutdown func to flush on exit. Passing an empty writer
// target defaults to os.Stdout via stdouttrace's own default.
func InitTracing(ctx context.Context) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// StartTurnSpan starts a span wrapping one agent turn.
func StartTurnSpan(ctx context.Context) (context.Context, oteltrace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent.turn")
}

// RecordTurn records a completed turn's outcome and duration.
func RecordTurn(span oteltrace.Span, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	duration := time.Since(start).Seconds()
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDurationSeconds.WithLabelValues(outcome).Observe(duration)
	span.End()
}

// StartToolSpan starts a span wrapping one tool dispatch.
func StartToolSpan(ctx context.Context, toolName string) (context.Context, oteltrace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "tool.dispatch",
		oteltrace.WithAttributes(attribute.String("tool.name", toolName)),
	)
	return ctx, span
}

// RecordToolCall records a completed tool dispatch's outcome and latency.
func RecordToolCall(span oteltrace.Span, toolName string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	toolCallsTotal.WithLabelValues(toolName, outcome).Inc()
	toolDispatchSeconds.WithLabelValues(toolName).Observe(time.Since(start).Seconds())
	span.End()
}

// RecordMCPCall records an external tool server call's latency.
func RecordMCPCall(serverName string, start time.Time) {
	mcpCallSeconds.WithLabelValues(serverName).Observe(time.Since(start).Seconds())
}
