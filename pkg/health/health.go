// Package health serves liveness, readiness and uptime endpoints.
//
// Registered checks run in the background. A check turns unhealthy after
// FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive successes.
package health

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Default probe thresholds.
const (
	FailureThreshold = 3
	SuccessThreshold = 1
)

type probe struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Owned by the probe goroutine.
	fails, oks int
}

func newProbe(name string, timeout time.Duration, fn CheckFunc) *probe {
	p := &probe{name: name, timeout: timeout, fn: fn}
	p.healthy.Store(true)
	return p
}

// run executes the check once. It reports whether the health state flipped.
func (p *probe) run(ctx context.Context) (changed bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	was := p.healthy.Load()
	if err := p.fn(ctx); err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.oks = 0
		p.fails++
		if p.fails >= FailureThreshold {
			p.healthy.Store(false)
		}
	} else {
		p.lastErr.Store(nil)
		p.fails = 0
		p.oks++
		if p.oks >= SuccessThreshold {
			p.healthy.Store(true)
		}
	}
	return was != p.healthy.Load()
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if msg := p.lastErr.Load(); msg != nil {
		return *msg, true
	}
	return "check is unhealthy", true
}

// Health tracks probe state and serves the health endpoints.
type Health struct {
	started time.Time
	ready   atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New creates a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{started: time.Now()}
}

// AddLivenessCheck registers a check that tells whether the process works.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, fn))
}

// AddReadinessCheck registers a check that gates traffic, e.g. a database
// ping.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, fn))
}

// Start runs every registered check immediately and then every interval
// until Stop or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := append(append([]*probe(nil), h.liveness...), h.readiness...)
	h.mu.Unlock()

	for _, p := range probes {
		go h.loop(ctx, p, interval)
	}
}

func (h *Health) loop(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if p.run(ctx) {
			lg := zctx.From(ctx).With(zap.String("check", p.name))
			if msg, failed := p.failure(); failed {
				lg.Warn("Health check failing", zap.String("error", msg))
			} else {
				lg.Info("Health check recovered")
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop halts background checks. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady toggles the manual readiness gate.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and all readiness checks pass.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(&h.readiness))) == 0
}

func (h *Health) snapshot(probes *[]*probe) []*probe {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*probe(nil), *probes...)
}

type statusResponse struct {
	Status string            `json:"status"`
	Uptime *float64          `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(&h.liveness)))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(&h.readiness))
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

// StatusEndpoint serves the public /health endpoint: always 200 with the
// process uptime in seconds.
func (h *Health) StatusEndpoint(w http.ResponseWriter, _ *http.Request) {
	uptime := math.Round(time.Since(h.started).Seconds()*1000) / 1000
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Uptime: &uptime})
}

func failures(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		if msg, failed := p.failure(); failed {
			out[p.name] = msg
		}
	}
	return out
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unhealthy", Checks: failed})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
