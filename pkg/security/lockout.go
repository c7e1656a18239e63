package security

import "time"

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 2 * time.Hour
)

// LockState is the failed-login bookkeeping of one account.
type LockState struct {
	Attempts  int
	LockUntil *time.Time
}

// IsLocked reports whether a lock is present and still in the future.
func (s LockState) IsLocked(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// LockoutPolicy describes when an account locks and for how long.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

// normalize turns an expired lock back into a clean unlocked state.
func (p LockoutPolicy) normalize(s LockState, now time.Time) LockState {
	if s.LockUntil != nil && !s.LockUntil.After(now) {
		return LockState{}
	}
	return s
}

// Failure applies one failed attempt. ok is false when the account is
// currently locked, in which case the state is returned unchanged.
func (p LockoutPolicy) Failure(s LockState, now time.Time) (next LockState, ok bool) {
	if s.IsLocked(now) {
		return s, false
	}

	next = p.normalize(s, now)
	next.Attempts++
	if next.LockUntil == nil && next.Attempts >= p.Threshold {
		until := now.Add(p.Duration)
		next.LockUntil = &until
	}
	return next, true
}

// Success clears the counters. ok is false when the account is locked.
func (p LockoutPolicy) Success(s LockState, now time.Time) (next LockState, ok bool) {
	if s.IsLocked(now) {
		return s, false
	}
	return LockState{}, true
}
