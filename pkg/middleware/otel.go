package middleware

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/consoleroutes/pkg/router"
)

const defaultTracerName = "consoleroutes"

// OTelConfig configures Trace.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "consoleroutes").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// Filter determines which targets are traced. If nil, all are.
	Filter func(to string) bool

	// AttributeExtractor adds attributes from the resolved location.
	// It is only called for successful navigations.
	AttributeExtractor func(loc *router.Location) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures Trace.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithNavigationFilter sets a filter on navigation targets.
func WithNavigationFilter(filter func(to string) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(loc *router.Location) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// Trace wraps p so every Push runs inside a span. The span's context is
// passed on, so guards and loaders see it.
func Trace(p router.Pusher, opts ...OTelOption) router.Pusher {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	config.tracer = config.TracerProvider.Tracer(config.TracerName)

	return router.PushFunc(func(ctx context.Context, to string) (*router.Location, error) {
		if config.Filter != nil && !config.Filter(to) {
			return p.Push(ctx, to)
		}

		spanCtx, span := config.tracer.Start(ctx, "navigate",
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attribute.String("route.target", to)),
		)
		defer span.End()

		loc, err := p.Push(spanCtx, to)
		if err != nil {
			var nf *router.NavigationError
			if errors.As(err, &nf) {
				span.SetAttributes(attribute.String("route.failure", nf.Kind.String()))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return loc, err
		}

		attrs := []attribute.KeyValue{
			attribute.String("route.path", loc.FullPath),
			attribute.String("route.name", loc.Name),
		}
		if loc.RedirectedFrom != "" {
			attrs = append(attrs, attribute.String("route.redirected_from", loc.RedirectedFrom))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(loc)...)
		}
		span.SetAttributes(attrs...)
		span.SetStatus(codes.Ok, "")
		return loc, nil
	})
}
