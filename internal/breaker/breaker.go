// Package breaker implements a circuit breaker for storage operations:
// fail fast after repeated failures instead of letting every lookup hang
// on a broken database.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the circuit is open.
var ErrOpen = errors.New("circuit open")

// State is the breaker position.
type State int

const (
	// Closed: normal operation, calls pass through.
	Closed State = iota
	// Open: failing fast, calls rejected until the cooldown expires.
	Open
	// HalfOpen: probing; limited calls pass to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Config tunes the breaker thresholds.
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // time open before probing
	SuccessThreshold int           // half-open successes needed to close
}

// DatabaseConfig is the preset for local database access.
func DatabaseConfig() Config {
	return Config{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		SuccessThreshold: 2,
	}
}

// Metrics is a snapshot of breaker counters.
type Metrics struct {
	State               State
	ConsecutiveFailures int
	TotalFailures       int64
	TotalSuccesses      int64
	TimesOpened         int64
}

// Breaker tracks consecutive failures and trips to fail-fast mode.
// All synchronization is internal; callers see only Allow and the two
// Record methods.
type Breaker struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	failures  int
	successes int
	openedAt  time.Time
	metrics   Metrics
	now       func() time.Time
}

// New creates a breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a call may proceed. In the open state it returns
// ErrOpen until the cooldown expires, then transitions to half-open and
// lets a probe through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		b.state = HalfOpen
		b.successes = 0
	}
	return nil
}

// RecordSuccess notes a successful call. Enough half-open successes
// close the circuit; a closed-state success clears the failure streak.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.TotalSuccesses++
	switch b.state {
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = Closed
			b.failures = 0
		}
	case Closed:
		b.failures = 0
	}
}

// RecordFailure notes a failed call. Reaching the threshold — or any
// failure while half-open — opens the circuit.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.TotalFailures++
	switch b.state {
	case HalfOpen:
		b.open()
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.open()
		}
	}
}

// Reset forces the breaker closed, e.g. after an explicit health check.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.successes = 0
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns current metrics.
func (b *Breaker) Snapshot() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.metrics
	m.State = b.state
	m.ConsecutiveFailures = b.failures
	return m
}

func (b *Breaker) open() {
	b.state = Open
	b.openedAt = b.now()
	b.metrics.TimesOpened++
}
