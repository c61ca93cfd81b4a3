// Package instrument traces scheduler flush cycles and event
// dispatches with OpenTelemetry.
//
// The tracer uses the global OpenTelemetry tracer provider. Configure
// it in main() before mounting:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
package instrument

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/WangZhekun/vue/pkg/reactive"
)

const defaultTracerName = "vue"

// Config configures the tracing hooks.
type Config struct {
	// TracerName is the name of the tracer (default: "vue").
	TracerName string

	// Attributes are added to every flush span.
	Attributes []attribute.KeyValue

	tracer trace.Tracer
}

// Option configures the tracing hooks.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithAttributes adds constant attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(c *Config) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

func defaultConfig() Config {
	return Config{TracerName: defaultTracerName}
}

// Hooks returns scheduler hooks that open one span per flush cycle,
// annotated with the number of watcher runs. Combine with other
// consumers through reactive.CombineFlushHooks.
func Hooks(opts ...Option) reactive.FlushHooks {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	// The scheduler serializes flush cycles, so one pending span is
	// enough.
	var span trace.Span

	return reactive.FlushHooks{
		OnFlushStart: func() {
			_, span = config.tracer.Start(
				context.Background(),
				"vue.flush",
				trace.WithAttributes(config.Attributes...),
			)
		},
		OnFlushEnd: func(ran int, d time.Duration) {
			if span == nil {
				return
			}
			span.SetAttributes(attribute.Int("vue.watcher_runs", ran))
			span.End()
			span = nil
		},
		OnCircuitBreak: func(watcherID uint64) {
			if span == nil {
				return
			}
			span.SetStatus(codes.Error, "infinite update loop")
			span.SetAttributes(attribute.Int64("vue.watcher_id", int64(watcherID)))
		},
	}
}

// EventSpan opens a span covering one client event dispatch. The
// server wraps each delivered event and the flush it triggers.
func EventSpan(ctx context.Context, eventType, target string) (context.Context, trace.Span) {
	tracer := otel.Tracer(defaultTracerName)
	return tracer.Start(ctx, "vue.event",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("vue.event_type", eventType),
			attribute.String("vue.event_target", target),
		),
	)
}
