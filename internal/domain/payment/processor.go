package payment

import (
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// Method identifies how the customer pays. Both methods are simulated; no
// payment network is ever contacted.
type Method string

const (
	MethodCard     Method = "card"
	MethodApplePay Method = "apple_pay"
)

// ErrUnknownMethod is returned for payment methods the store does not offer.
var ErrUnknownMethod = errors.New("unknown payment method")

// ParseMethod maps a wire value to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodCard, MethodApplePay:
		return Method(s), nil
	default:
		return "", ErrUnknownMethod
	}
}

// Label returns the display name recorded on completed orders.
func (m Method) Label() string {
	switch m {
	case MethodApplePay:
		return "Apple Pay"
	default:
		return "Credit Card"
	}
}

// ErrInProgress is returned when a session already has a charge in flight.
var ErrInProgress = errors.New("payment already in progress")

// Delays configures the simulated processing time per payment method.
// Zero values complete synchronously, which is what tests use.
type Delays struct {
	Card     time.Duration
	ApplePay time.Duration
}

// DefaultDelays mirrors the latencies the original store faked: one second
// for a manual card, two for Apple Pay.
func DefaultDelays() Delays {
	return Delays{
		Card:     time.Second,
		ApplePay: 2 * time.Second,
	}
}

// Processor simulates backend payment latency. A charge is a fire-and-forget
// timer with a single completion callback: once started it cannot be
// cancelled, retried, or escalated. The per-session in-flight flag only
// blocks re-submission; it does not stop the running timer.
type Processor struct {
	delays Delays

	// schedule runs f after d. Replaceable in tests to run synchronously.
	schedule func(d time.Duration, f func())

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewProcessor returns a Processor using real timers.
func NewProcessor(delays Delays) *Processor {
	return &Processor{
		delays: delays,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		inflight: make(map[string]struct{}),
	}
}

// NewSyncProcessor returns a Processor whose charges complete inline with
// zero delay. Intended for tests.
func NewSyncProcessor() *Processor {
	p := NewProcessor(Delays{})
	p.schedule = func(_ time.Duration, f func()) { f() }
	return p
}

// Charge starts a simulated charge for the session. done is invoked exactly
// once, after the method's configured delay, from the timer goroutine.
// While a charge is in flight, further charges for the same session fail
// with ErrInProgress.
func (p *Processor) Charge(sessionToken string, method Method, done func()) error {
	p.mu.Lock()
	if _, busy := p.inflight[sessionToken]; busy {
		p.mu.Unlock()
		return ErrInProgress
	}
	p.inflight[sessionToken] = struct{}{}
	p.mu.Unlock()

	delay := p.delays.Card
	if method == MethodApplePay {
		delay = p.delays.ApplePay
	}

	p.schedule(delay, func() {
		p.mu.Lock()
		delete(p.inflight, sessionToken)
		p.mu.Unlock()
		done()
	})
	return nil
}

// Processing reports whether the session has a charge in flight.
func (p *Processor) Processing(sessionToken string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, busy := p.inflight[sessionToken]
	return busy
}
