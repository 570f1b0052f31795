package sharedlock

import (
	"sync/atomic"
	"time"
)

// LockStats tracks statistics for one lock type of a SharedMutex
type LockStats struct {
	totalAcquired    atomic.Int64
	totalContentions atomic.Int64
	totalTimeHeld    atomic.Int64 // in nanoseconds
	maxTimeHeld      atomic.Int64 // in nanoseconds
	totalWaitTime    atomic.Int64 // in nanoseconds
	totalWaitEvents  atomic.Int64
	maxWaitTime      atomic.Int64 // in nanoseconds
}

// recordAcquire records a successful acquisition and the time spent waiting
// for it. contended marks acquisitions that exceeded the warning timeout.
func (s *LockStats) recordAcquire(wait time.Duration, contended bool) {
	s.totalAcquired.Add(1)
	if contended {
		s.totalContentions.Add(1)
	}
	s.totalWaitTime.Add(int64(wait))
	s.totalWaitEvents.Add(1)
	updateMax(&s.maxWaitTime, int64(wait))
}

// recordRelease records how long the lock was held.
func (s *LockStats) recordRelease(held time.Duration) {
	s.totalTimeHeld.Add(int64(held))
	updateMax(&s.maxTimeHeld, int64(held))
}

// recordFailure records a try/timed acquisition that did not obtain the lock.
func (s *LockStats) recordFailure(wait time.Duration) {
	s.totalContentions.Add(1)
	s.totalWaitTime.Add(int64(wait))
	s.totalWaitEvents.Add(1)
	updateMax(&s.maxWaitTime, int64(wait))
}

func updateMax(max *atomic.Int64, v int64) {
	for {
		current := max.Load()
		if v <= current {
			return
		}
		if max.CompareAndSwap(current, v) {
			return
		}
	}
}

// snapshot returns the counters as a plain map for reporting.
func (s *LockStats) snapshot() map[string]int64 {
	return map[string]int64{
		"total_acquired":    s.totalAcquired.Load(),
		"total_contentions": s.totalContentions.Load(),
		"total_time_held":   s.totalTimeHeld.Load(),
		"max_time_held":     s.maxTimeHeld.Load(),
		"total_wait_time":   s.totalWaitTime.Load(),
		"total_wait_events": s.totalWaitEvents.Load(),
		"max_wait_time":     s.maxWaitTime.Load(),
	}
}
