package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var trace []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mark("outer"), mark("middle"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "middle", "inner"}, trace)

	assert.NotNil(t, Wrap(okHandler()))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated", incoming: "", keep: false},
		{name: "echoed", incoming: "custom-request-id-12345", keep: true},
		{name: "too long", incoming: strings.Repeat("a", 129), keep: false},
		{name: "control chars", incoming: "bad\x01id", keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			require.NotEmpty(t, got)
			assert.Equal(t, got, seen)
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.NotEqual(t, tt.incoming, got)
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Wrap(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		InjectLogger(zap.New(core)),
		Recovery(),
	)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/item", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, w.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestInjectLogger_RequestIDField(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Wrap(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			zctx.From(r.Context()).Info("inside")
		}),
		InjectLogger(zap.New(core)),
		RequestID(),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-1", logs.All()[0].ContextMap()["request_id"])
}

func testRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/cart/{username}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet).Name("getCart")
	r.HandleFunc("/api/fail", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}).Methods(http.MethodGet).Name("fail")
	return r
}

func TestMakeRouteFinder(t *testing.T) {
	find := MakeRouteFinder(testRouter())

	route, ok := find(httptest.NewRequest(http.MethodGet, "/api/cart/david", nil))
	require.True(t, ok)
	assert.Equal(t, "getCart", route.Name)
	assert.Equal(t, "/api/cart/{username}", route.Template)

	_, ok = find(httptest.NewRequest(http.MethodPost, "/api/cart/david", nil))
	assert.False(t, ok)

	_, ok = find(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.False(t, ok)
}

func TestLogRequests(t *testing.T) {
	router := testRouter()
	core, logs := observer.New(zapcore.DebugLevel)
	h := Wrap(router, InjectLogger(zap.New(core)), LogRequests(MakeRouteFinder(router)))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cart/david", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/fail", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/cart/{username}", fields["route"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusInternalServerError), entries[1].ContextMap()["status"])
}
