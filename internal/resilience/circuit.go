// Package resilience provides the circuit breaker guarding optional
// enrichment calls. The breaker is an explicit state machine: CLOSED opens
// after a threshold of consecutive failures, OPEN transitions to HALF_OPEN
// after a cooldown, and a successful probe closes it again.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed is normal operation; calls flow through.
	StateClosed State = iota
	// StateOpen rejects calls immediately until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows a single probe call to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a call is rejected because the circuit is open.
var ErrOpen = eris.New("circuit breaker is open")

// Breaker is a circuit breaker for a single external dependency.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	onChange  func(from, to State)

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and stays open for the cooldown window.
func NewBreaker(threshold int, cooldown time.Duration, onChange func(from, to State)) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		onChange:  onChange,
		state:     StateClosed,
		nowFunc:   time.Now,
	}
}

// Do runs fn through the breaker, returning ErrOpen without calling fn when
// the circuit is open.
func Do[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the effective state, accounting for cooldown expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.nowFunc().Sub(b.lastFailure) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count, for telemetry.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failures = 0
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.nowFunc().Sub(b.lastFailure) >= b.cooldown {
			b.transition(StateHalfOpen)
			return nil // probe
		}
		return ErrOpen
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != StateClosed {
			b.transition(StateClosed)
		}
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = b.nowFunc()

	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		// A failed probe reopens immediately.
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onChange != nil {
		b.onChange(from, to)
	}
}
