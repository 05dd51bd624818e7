// Package health serves Kubernetes-style liveness and readiness probes.
//
// Every registered check runs in its own goroutine. A check turns unhealthy
// after FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive successes, so a single slow ping does not
// flap the probe.
package health

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// CheckFunc reports a component's health; nil means healthy.
type CheckFunc func(ctx context.Context) error

// Thresholds configure how many consecutive results flip a check.
type Thresholds struct {
	Failure int
	Success int
}

// DefaultThresholds are used unless WithThresholds is given.
var DefaultThresholds = Thresholds{Failure: 3, Success: 1}

// Option configures Health.
type Option func(h *Health)

// WithLogger logs check state transitions to lg.
func WithLogger(lg *zap.Logger) Option {
	return func(h *Health) {
		if lg != nil {
			h.lg = lg
		}
	}
}

// WithThresholds overrides DefaultThresholds. Non-positive values are
// ignored.
func WithThresholds(t Thresholds) Option {
	return func(h *Health) {
		if t.Failure > 0 {
			h.thresholds.Failure = t.Failure
		}
		if t.Success > 0 {
			h.thresholds.Success = t.Success
		}
	}
}

type probe struct {
	name    string
	kind    string
	timeout time.Duration
	fn      CheckFunc
	limits  Thresholds
	lg      *zap.Logger

	// Written only by the probe's own goroutine, read by HTTP handlers.
	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Owned by the probe's goroutine.
	fails, successes int
}

// run executes the check once. Calls must not overlap.
func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)
	if err == nil {
		p.lastErr.Store(nil)
		p.fails = 0
		p.successes++
		if p.successes >= p.limits.Success && !p.healthy.Swap(true) {
			p.lg.Info("Health check recovered", zap.String("check", p.name), zap.String("kind", p.kind))
		}
		return
	}

	msg := err.Error()
	p.lastErr.Store(&msg)
	p.successes = 0
	p.fails++
	if p.fails >= p.limits.Failure && p.healthy.Swap(false) {
		p.lg.Warn("Health check failing",
			zap.String("check", p.name),
			zap.String("kind", p.kind),
			zap.Int("consecutive_failures", p.fails),
			zap.Error(err),
		)
	}
}

// failure returns the reason the probe is unhealthy, or "" when healthy.
func (p *probe) failure() string {
	if p.healthy.Load() {
		return ""
	}
	if msg := p.lastErr.Load(); msg != nil {
		return *msg
	}
	return "check is unhealthy"
}

func (p *probe) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Health aggregates liveness and readiness checks. It starts not ready.
type Health struct {
	lg         *zap.Logger
	thresholds Thresholds
	ready      atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New creates a Health without checks.
func New(opts ...Option) *Health {
	h := &Health{
		lg:         zap.NewNop(),
		thresholds: DefaultThresholds,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Health) newProbe(kind, name string, timeout time.Duration, fn CheckFunc) *probe {
	p := &probe{
		name:    name,
		kind:    kind,
		timeout: timeout,
		fn:      fn,
		limits:  h.thresholds,
		lg:      h.lg,
	}
	p.healthy.Store(true)
	return p
}

// AddLivenessCheck registers a check of process health, such as goroutine
// count or GC pauses.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, h.newProbe("liveness", name, timeout, fn))
}

// AddReadinessCheck registers a check of a dependency the service needs to
// serve traffic, such as the database or Redis.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, h.newProbe("readiness", name, timeout, fn))
}

// Start runs every registered check each interval until Stop is called or
// ctx is done. Register all checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = cancel
	probes := slices.Concat(h.liveness, h.readiness)
	h.mu.Unlock()

	for _, p := range probes {
		go p.loop(ctx, interval)
	}
}

// Stop cancels the check goroutines. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady marks the service (not) ready, e.g. false while draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(false))) == 0
}

func (h *Health) snapshot(live bool) []*probe {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if live {
		return slices.Clone(h.liveness)
	}
	return slices.Clone(h.readiness)
}

func failures(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		if msg := p.failure(); msg != "" {
			out[p.name] = msg
		}
	}
	return out
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} or 503 with the failing
// checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(true)))
}

// ReadyEndpoint serves /readyz. Besides the readiness checks it fails with
// the "_readiness" entry while the service is not marked ready.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(false))
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	e := jx.Encoder{}
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if len(failed) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range slices.Sorted(maps.Keys(failed)) {
			e.FieldStart(name)
			e.Str(failed[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
