// Package obs carries the tracer and meter providers that domain services
// instrument themselves with.
package obs

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Config holds telemetry providers. The zero value is not usable; build one
// with New.
type Config struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Option configures Config.
type Option func(*Config)

// WithTracerProvider sets the tracer provider. Nil is ignored.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		if tp != nil {
			c.TracerProvider = tp
		}
	}
}

// WithMeterProvider sets the meter provider. Nil is ignored.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Config) {
		if mp != nil {
			c.MeterProvider = mp
		}
	}
}

// New applies opts on top of the global otel providers.
func New(opts ...Option) Config {
	c := Config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
