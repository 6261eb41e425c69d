// Package health serves Kubernetes-style liveness and readiness probes.
//
// Probes are evaluated on demand when the endpoint is hit, each under its own
// timeout. The service additionally carries a manual ready gate: readiness
// reports ok only after SetReady(true), and flipping it back to false during
// shutdown drains traffic before the listener closes.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc probes one component. Nil means healthy.
type CheckFunc func(ctx context.Context) error

type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc
}

func (p probe) run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.check(ctx)
}

// Probes holds the registered liveness and readiness checks.
type Probes struct {
	ready atomic.Bool

	mu    sync.RWMutex
	live  []probe
	readi []probe
}

// New returns an empty probe set. The service starts not ready.
func New() *Probes {
	return &Probes{}
}

// AddLive registers a liveness probe. Liveness answers "is the process
// functioning", e.g. goroutine count or GC pause length.
func (p *Probes) AddLive(name string, timeout time.Duration, check CheckFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live = append(p.live, probe{name: name, timeout: timeout, check: check})
}

// AddReady registers a readiness probe. Readiness answers "may traffic be
// routed here", e.g. database connectivity.
func (p *Probes) AddReady(name string, timeout time.Duration, check CheckFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readi = append(p.readi, probe{name: name, timeout: timeout, check: check})
}

// SetReady flips the manual ready gate. Call with true once startup finishes
// and with false when shutdown begins.
func (p *Probes) SetReady(ready bool) {
	p.ready.Store(ready)
}

// IsReady reports whether the gate is open and all readiness probes pass.
func (p *Probes) IsReady(ctx context.Context) bool {
	if !p.ready.Load() {
		return false
	}
	return len(p.evaluate(ctx, p.snapshot(&p.readi))) == 0
}

// LiveEndpoint answers /livez: 200 when every liveness probe passes, 503 with
// per-probe failure details otherwise.
func (p *Probes) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	failures := p.evaluate(r.Context(), p.snapshot(&p.live))
	writeStatus(w, failures)
}

// ReadyEndpoint answers /readyz: 200 when the gate is open and every
// readiness probe passes, 503 with details otherwise.
func (p *Probes) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	failures := p.evaluate(r.Context(), p.snapshot(&p.readi))
	if !p.ready.Load() {
		failures = append(failures, failure{name: "_gate", detail: "service is not ready"})
	}
	writeStatus(w, failures)
}

func (p *Probes) snapshot(list *[]probe) []probe {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]probe, len(*list))
	copy(out, *list)
	return out
}

type failure struct {
	name   string
	detail string
}

func (p *Probes) evaluate(ctx context.Context, probes []probe) []failure {
	var failures []failure
	for _, pr := range probes {
		if err := pr.run(ctx); err != nil {
			failures = append(failures, failure{name: pr.name, detail: err.Error()})
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, failures []failure) {
	w.Header().Set("Content-Type", "application/json")

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	if len(failures) == 0 {
		e.Str("ok")
	} else {
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		for _, f := range failures {
			e.FieldStart(f.name)
			e.Str(f.detail)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	if len(failures) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_, _ = w.Write(e.Bytes())
}
