package realtime

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// ReconnectPolicy defines the reconnect backoff strategy.
type ReconnectPolicy struct {
	// BaseDelay is the delay before the first reconnect attempt. Each
	// following attempt doubles it.
	BaseDelay time.Duration
	// MaxAttempts is the number of automatic reconnects made before giving up.
	MaxAttempts int
}

// DefaultReconnectPolicy waits 1s, 2s, 4s, 8s and 16s before giving up.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:   time.Second,
		MaxAttempts: 5,
	}
}

// maxDelay is returned once BaseDelay * 2^(attempt-1) no longer fits in a
// time.Duration.
const maxDelay = time.Duration(math.MaxInt64)

// Delay returns the wait before the given attempt (1-based):
// BaseDelay * 2^(attempt-1), saturating at the largest Duration.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if p.BaseDelay <= 0 {
		return 0
	}
	shift := uint(attempt - 1)
	if shift >= 63 || p.BaseDelay > maxDelay>>shift {
		return maxDelay
	}
	return p.BaseDelay << shift
}

// ReconnectState is the snapshot of the reconnect budget.
type ReconnectState struct {
	Attempt     int
	MaxAttempts int
	BaseDelay   time.Duration
}

// scheduler owns the attempt counter and the single pending reconnect timer.
// It is not safe for concurrent use; the Client guards it with its mutex.
type scheduler struct {
	clock   clockwork.Clock
	policy  ReconnectPolicy
	attempt int
	timer   clockwork.Timer
	token   uint64
}

func newScheduler(clock clockwork.Clock, policy ReconnectPolicy) *scheduler {
	return &scheduler{clock: clock, policy: policy}
}

// next consumes one attempt and returns its delay. It returns false once
// MaxAttempts attempts have been made.
func (s *scheduler) next() (time.Duration, bool) {
	if s.attempt >= s.policy.MaxAttempts {
		return 0, false
	}
	s.attempt++
	return s.policy.Delay(s.attempt), true
}

// arm replaces any pending timer with one that calls fire after delay.
// fire receives the token identifying this arming.
func (s *scheduler) arm(delay time.Duration, fire func(token uint64)) {
	s.cancel()
	token := s.token
	s.timer = s.clock.AfterFunc(delay, func() { fire(token) })
}

// cancel stops the pending timer. A callback already running for it will
// see a stale token in claim.
func (s *scheduler) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.token++
}

// claim reports whether token belongs to the pending timer and, if so,
// marks it as no longer pending.
func (s *scheduler) claim(token uint64) bool {
	if s.timer == nil || token != s.token {
		return false
	}
	s.timer = nil
	return true
}

func (s *scheduler) pending() bool {
	return s.timer != nil
}

func (s *scheduler) reset() {
	s.attempt = 0
}

func (s *scheduler) snapshot() ReconnectState {
	return ReconnectState{
		Attempt:     s.attempt,
		MaxAttempts: s.policy.MaxAttempts,
		BaseDelay:   s.policy.BaseDelay,
	}
}
