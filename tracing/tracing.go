// Package tracing turns scheduler flushes into OpenTelemetry spans.
package tracing

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/delaneyj/watchparty/observer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "watchparty"

// SpanName is the name of every flush span.
const SpanName = "scheduler.flush"

type Config struct {
	// TracerName is the name of the tracer (default: "watchparty").
	TracerName string

	// TracerProvider supplies the tracer. Default: otel.GetTracerProvider()
	TracerProvider trace.TracerProvider

	// Context parents the flush spans. Default: context.Background()
	Context context.Context
}

type Option func(*Config)

func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

func WithContext(ctx context.Context) Option {
	return func(c *Config) {
		c.Context = ctx
	}
}

// Hook is an observer.FlushHook recording one span per flush.
type Hook struct {
	ctx    context.Context
	tracer trace.Tracer
}

var _ observer.FlushHook = (*Hook)(nil)

func New(opts ...Option) *Hook {
	config := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}
	return &Hook{ctx: config.Context, tracer: tracer}
}

func (h *Hook) OnFlush(info observer.FlushInfo) {
	attrs := []attribute.KeyValue{
		attribute.Int("watchparty.flush.runs", info.Total()),
		attribute.Int("watchparty.flush.activated", info.Activated),
		attribute.Int("watchparty.flush.updated", info.Updated),
		attribute.Int("watchparty.flush.abandoned", len(info.Abandoned)),
	}
	for _, kind := range slices.Sorted(maps.Keys(info.Runs)) {
		attrs = append(attrs, attribute.Int("watchparty.flush.runs."+kind, info.Runs[kind]))
	}

	_, span := h.tracer.Start(h.ctx, SpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(info.Started),
		trace.WithAttributes(attrs...),
	)
	if len(info.Abandoned) > 0 {
		span.SetAttributes(attribute.StringSlice("watchparty.flush.abandoned_watchers", info.Abandoned))
		span.SetStatus(codes.Error, fmt.Sprintf("abandoned %s", strings.Join(info.Abandoned, ", ")))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(info.Started.Add(info.Duration)))
}
