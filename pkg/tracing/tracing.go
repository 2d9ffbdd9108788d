// Package tracing records depwatch scheduler flushes as OpenTelemetry spans:
// one span per flush with a child span per watcher run.
package tracing

import (
	"context"
	"time"

	"github.com/delaneyj/watchparty/depwatch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "depwatch"

// Config configures the tracing monitor.
type Config struct {
	// TracerName is the name of the tracer (default: "depwatch").
	TracerName string

	// TracerProvider provides the tracer.
	// Default: the global provider from otel.GetTracerProvider.
	TracerProvider trace.TracerProvider

	// Context is the parent of every flush span (default: context.Background()).
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

// Monitor implements depwatch.Monitor. Like the system it observes, it must
// only be used from one goroutine.
type Monitor struct {
	tracer trace.Tracer
	parent context.Context

	flushCtx  context.Context
	flushSpan trace.Span
	watcher   trace.Span
}

var _ depwatch.Monitor = (*Monitor)(nil)

func New(opts ...Option) *Monitor {
	cfg := Config{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	return &Monitor{
		tracer: cfg.TracerProvider.Tracer(cfg.TracerName),
		parent: cfg.Context,
	}
}

func (m *Monitor) FlushStarted(queued int) {
	m.flushCtx, m.flushSpan = m.tracer.Start(m.parent, "depwatch.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("depwatch.queued", queued)),
	)
}

func (m *Monitor) WatcherStarted(w *depwatch.Watcher) {
	ctx := m.flushCtx
	if ctx == nil {
		ctx = m.parent
	}

	attrs := []attribute.KeyValue{
		attribute.Int("depwatch.watcher_id", w.ID()),
		attribute.Bool("depwatch.user", w.IsUser()),
	}
	if expr := w.Expression(); expr != "" {
		attrs = append(attrs, attribute.String("depwatch.expression", expr))
	}
	_, m.watcher = m.tracer.Start(ctx, "depwatch.watcher", trace.WithAttributes(attrs...))
}

func (m *Monitor) WatcherFinished(_ *depwatch.Watcher, elapsed time.Duration, err error) {
	span := m.watcher
	if span == nil {
		return
	}
	m.watcher = nil

	end(span, err)
}

func (m *Monitor) FlushFinished(ran int, elapsed time.Duration, err error) {
	span := m.flushSpan
	if span == nil {
		return
	}
	m.flushCtx, m.flushSpan = nil, nil

	span.SetAttributes(attribute.Int("depwatch.ran", ran))
	end(span, err)
}

func (m *Monitor) RunawayAborted(w *depwatch.Watcher, err error) {
	if m.flushSpan == nil {
		return
	}
	m.flushSpan.AddEvent("runaway watcher", trace.WithAttributes(
		attribute.Int("depwatch.watcher_id", w.ID()),
		attribute.String("depwatch.error", err.Error()),
	))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
