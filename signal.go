package sharedlock

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Signal is a low-level acquire/release primitive built on a weighted
// semaphore. A binary signal has a single owner; a counting signal admits up
// to n concurrent holders. SharedMutex uses two binary signals internally,
// one as the write-ownership token and one to guard its bookkeeping state.
type Signal struct {
	sem *semaphore.Weighted
}

// NewBinarySignal returns a signal with single-owner semantics.
func NewBinarySignal() *Signal {
	return NewCountingSignal(1)
}

// NewCountingSignal returns a signal admitting up to n concurrent holders.
func NewCountingSignal(n int64) *Signal {
	return &Signal{sem: semaphore.NewWeighted(n)}
}

// Acquire blocks until the signal is obtained.
func (s *Signal) Acquire() {
	// Acquire only fails when the context is cancelled; the background
	// context never is.
	_ = s.sem.Acquire(context.Background(), 1)
}

// AcquireTimeout attempts to obtain the signal for at most d and reports
// whether it succeeded.
func (s *Signal) AcquireTimeout(d time.Duration) bool {
	if s.TryAcquire() {
		return true
	}
	if d <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.sem.Acquire(ctx, 1) == nil
}

// AcquireContext blocks until the signal is obtained or ctx is done,
// returning the context's error in the latter case.
func (s *Signal) AcquireContext(ctx context.Context) error {
	return s.sem.Acquire(ctx, 1)
}

// TryAcquire obtains the signal without blocking and reports whether it
// succeeded.
func (s *Signal) TryAcquire() bool {
	return s.sem.TryAcquire(1)
}

// Release returns the signal. Releasing more than was acquired panics in the
// underlying semaphore.
func (s *Signal) Release() {
	s.sem.Release(1)
}
