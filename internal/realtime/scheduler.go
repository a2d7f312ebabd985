package realtime

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Scheduler computes bounded exponential reconnect delays:
// min(base * factor^attempts, maxDelay), up to maxAttempts tries. Attempt
// count resets on every successful connection.
type Scheduler struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	factor      float64
	maxAttempts int

	mu       sync.Mutex
	attempts int
	bo       *backoff.ExponentialBackOff
}

func NewScheduler(baseDelay, maxDelay time.Duration, factor float64, maxAttempts int) *Scheduler {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if maxDelay < baseDelay {
		maxDelay = 30 * time.Second
	}
	if factor <= 1 {
		factor = 2
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	s := &Scheduler{
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		factor:      factor,
		maxAttempts: maxAttempts,
	}
	s.bo = s.freshBackoff()
	return s
}

// freshBackoff builds the underlying stateful backoff. RandomizationFactor is
// zero: the delay sequence is deterministic and testable.
func (s *Scheduler) freshBackoff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     s.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          s.factor,
		MaxInterval:         s.maxDelay,
	}
}

// Next consumes one attempt and returns its delay. The second return is false
// once the attempt ceiling is reached; after that no delay is handed out
// until Reset.
func (s *Scheduler) Next() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts >= s.maxAttempts {
		return 0, false
	}
	s.attempts++
	delay := s.bo.NextBackOff()
	if delay <= 0 || delay > s.maxDelay {
		delay = s.maxDelay
	}
	return delay, true
}

// Reset zeroes the attempt count and the delay progression. Called on every
// successful connection and on manual reconnect.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = 0
	s.bo = s.freshBackoff()
}

// Attempts returns how many attempts have been consumed since the last reset.
func (s *Scheduler) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Exhausted reports whether the ceiling has been reached.
func (s *Scheduler) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts >= s.maxAttempts
}

// MaxAttempts returns the configured ceiling.
func (s *Scheduler) MaxAttempts() int {
	return s.maxAttempts
}
