// Package httpmiddleware contains the HTTP middleware chain of the ledger API.
package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Middleware is a net/http middleware.
type Middleware = func(http.Handler) http.Handler

// Wrap handler using given middlewares. The first middleware is the
// outermost one.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// InjectLogger injects logger into request context.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(zctx.Base(r.Context(), lg)))
		})
	}
}

// Route describes a matched API route.
type Route struct {
	// Name is the operation name given to the route.
	Name string
	// Template is the path template, e.g. /api/cart/{username}.
	Template string
}

// RouteFinder finds the route serving a request.
type RouteFinder func(r *http.Request) (Route, bool)

// MakeRouteFinder creates a RouteFinder for the given router.
func MakeRouteFinder(router *mux.Router) RouteFinder {
	return func(r *http.Request) (Route, bool) {
		var match mux.RouteMatch
		if !router.Match(r, &match) || match.MatchErr != nil || match.Route == nil {
			return Route{}, false
		}
		tmpl, err := match.Route.GetPathTemplate()
		if err != nil {
			return Route{}, false
		}
		return Route{Name: match.Route.GetName(), Template: tmpl}, true
	}
}

// TelemetryProvider provides the OpenTelemetry providers used by Instrument.
type TelemetryProvider interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Instrument setups otelhttp.
func Instrument(serviceName string, find RouteFinder, m TelemetryProvider) Middleware {
	return func(h http.Handler) http.Handler {
		return otelhttp.NewHandler(h, "",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
			otelhttp.WithServerName(serviceName),
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				if route, ok := find(r); ok && route.Name != "" {
					return serviceName + "." + route.Name
				}
				return operation
			}),
		)
	}
}

// Labeler adds route attributes to the otelhttp metrics of the request. It
// must run inside Instrument.
func Labeler(find RouteFinder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := find(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			attrs := []attribute.KeyValue{attribute.String("http.route", route.Template)}
			if route.Name != "" {
				attrs = append(attrs, attribute.String("ledger.operation", route.Name))
			}
			labeler, _ := otelhttp.LabelerFromContext(r.Context())
			labeler.Add(attrs...)

			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// LogRequests logs incoming requests using context logger.
func LogRequests(find RouteFinder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			if sw.status == 0 {
				sw.status = http.StatusOK
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("url", r.URL.String()),
				zap.Int("status", sw.status),
				zap.Int("bytes", sw.bytes),
				zap.Duration("duration", time.Since(start)),
			}
			if route, ok := find(r); ok {
				fields = append(fields, zap.String("route", route.Template))
			}

			lg := zctx.From(r.Context())
			switch {
			case sw.status >= http.StatusInternalServerError:
				lg.Error("Request", fields...)
			case sw.status >= http.StatusBadRequest:
				lg.Warn("Request", fields...)
			default:
				lg.Debug("Request", fields...)
			}
		})
	}
}

// writeError writes the API error body {"code","message"}.
func writeError(w http.ResponseWriter, code int, message string) {
	e := jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
