package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerConfig configures one circuit breaker instance.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
}

// DefaultBreakerConfig guards the scrape operation class.
var DefaultBreakerConfig = BreakerConfig{
	FailureThreshold: 5,
	RecoveryTimeout:  time.Minute,
}

// Breaker is a three-state circuit breaker. One instance guards exactly
// one operation class and is mutated only by calls attempting that
// operation. The clock is injectable for tests.
type Breaker struct {
	mu          sync.Mutex
	cfg         BreakerConfig
	state       BreakerState
	failures    int
	lastFailure time.Time
	now         func() time.Time

	onState func(BreakerState)
}

// NewBreaker creates a breaker in the closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig.FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultBreakerConfig.RecoveryTimeout
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// WithClock replaces the time source. Test hook.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

// OnStateChange registers a callback invoked (under the breaker lock, so
// keep it cheap) whenever the state transitions.
func (b *Breaker) OnStateChange(fn func(BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onState = fn
}

// Allow reports whether a call may proceed. In the open state it flips to
// half-open once the recovery timeout has elapsed, admitting exactly one
// trial call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) > b.cfg.RecoveryTimeout {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		// The single trial call is already in flight.
		return false
	default:
		return true
	}
}

// RecordSuccess resets the breaker after a successful protected call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// RecordFailure counts a failed protected call and opens the breaker at
// the failure threshold. A half-open trial failure reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	if b.state == StateHalfOpen {
		b.transition(StateOpen)
		return
	}

	b.failures++
	if b.failures >= b.cfg.FailureThreshold && b.state == StateClosed {
		b.transition(StateOpen)
	}
}

// State returns the current state without advancing it.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker closed regardless of current state.
// Administrative recovery hook.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.lastFailure = time.Time{}
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

func (b *Breaker) transition(next BreakerState) {
	if b.state == next {
		return
	}
	slog.Info("Circuit breaker state change", "from", b.state.String(), "to", next.String())
	b.state = next
	if b.onState != nil {
		b.onState(next)
	}
}
