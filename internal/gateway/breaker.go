package gateway

import (
	"errors"
	"sync"
	"time"
)

// ErrUnavailable is returned when the circuit is open: the completion
// service is presumed down and no network call was issued. Callers may skip
// enrichment for the cycle instead of blocking.
var ErrUnavailable = errors.New("completion service temporarily unavailable")

// State identifies the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// breaker is a mutex-guarded Closed/Open/Half-Open state machine. The open →
// half-open transition happens lazily on the next allow call once the
// recovery window has elapsed; exactly one trial request is admitted while
// half-open.
type breaker struct {
	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	nextAttempt time.Time
}

func newBreaker(failureThreshold int, recoveryTimeout time.Duration) *breaker {
	return &breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
		state:            StateClosed,
	}
}

// allow reports whether a request may proceed. It returns ErrUnavailable
// when the circuit is open, or when a half-open trial is already in flight.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Before(b.nextAttempt) {
			return ErrUnavailable
		}
		// Recovery window elapsed: admit one trial request.
		b.state = StateHalfOpen
		return nil
	case StateHalfOpen:
		return ErrUnavailable
	}
	return nil
}

// success resets the failure count and closes the circuit.
func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = StateClosed
}

// failure records one failed call. The circuit opens after failureThreshold
// consecutive failures, or immediately when a half-open trial fails.
func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.nextAttempt = b.now().Add(b.recoveryTimeout)
	}
}

// currentState returns the state for logging and inspection.
func (b *breaker) currentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
