package service

import (
	"context"
	"log/slog"
	"time"
)

// TelemetryHooks are extension points for tracing integrations.
type TelemetryHooks interface {
	OnHTTPRequestStart(ctx context.Context, route string, requestID string)
	OnHTTPRequestDone(
		ctx context.Context,
		route string,
		requestID string,
		statusCode int,
		duration time.Duration,
		err error,
	)
	OnInference(
		ctx context.Context,
		backend string,
		duration time.Duration,
		err error,
	)
}

type NopTelemetryHooks struct{}

func (NopTelemetryHooks) OnHTTPRequestStart(
	_ context.Context,
	_ string,
	_ string,
) {
}

func (NopTelemetryHooks) OnHTTPRequestDone(
	_ context.Context,
	_ string,
	_ string,
	_ int,
	_ time.Duration,
	_ error,
) {
}

func (NopTelemetryHooks) OnInference(
	_ context.Context,
	_ string,
	_ time.Duration,
	_ error,
) {
}

// LogTelemetryHooks reports hook events as debug log lines.
type LogTelemetryHooks struct {
	Logger *slog.Logger
}

func (h LogTelemetryHooks) OnHTTPRequestStart(ctx context.Context, route string, requestID string) {
	h.Logger.DebugContext(ctx, "telemetry_request_start", "route", route, "request_id", requestID)
}

func (h LogTelemetryHooks) OnHTTPRequestDone(
	ctx context.Context,
	route string,
	requestID string,
	statusCode int,
	duration time.Duration,
	err error,
) {
	attrs := []any{
		"route", route,
		"request_id", requestID,
		"status", statusCode,
		"duration_ms", durationMillis(duration),
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	h.Logger.DebugContext(ctx, "telemetry_request_done", attrs...)
}

func (h LogTelemetryHooks) OnInference(ctx context.Context, backend string, duration time.Duration, err error) {
	attrs := []any{"backend", backend, "duration_ms", durationMillis(duration)}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	h.Logger.DebugContext(ctx, "telemetry_inference", attrs...)
}

func durationMillis(value time.Duration) float64 {
	if value < 0 {
		return 0.0
	}
	return float64(value) / float64(time.Millisecond)
}
