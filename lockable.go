package sharedlock

import (
	"time"
)

// DefaultWarningTimeout is the warning timeout applied to mutexes created by
// NewLockable.
var DefaultWarningTimeout = GetDurationEnvOrDefault("SHAREDLOCK_WARNING_TIMEOUT", 1*time.Second)

// Lockable owns a value of type T and the SharedMutex protecting it, and is
// the sole point of access to the value. All access happens through scoped
// Access handles or the View/Update callbacks; nothing exposes the value by
// reference outside a held lock.
type Lockable[T any] struct {
	mu    *SharedMutex
	value T
}

// NewLockable creates a Lockable around the zero value of T, with a mutex
// named after it and default instrumentation.
func NewLockable[T any](name string) *Lockable[T] {
	return NewLockableWith[T](NewSharedMutex(name, DefaultWarningTimeout, nil))
}

// NewLockableWith creates a Lockable protected by an existing mutex. The
// mutex must not be shared with another Lockable.
func NewLockableWith[T any](m *SharedMutex) *Lockable[T] {
	return &Lockable[T]{mu: m}
}

// Mutex returns the protecting mutex, for inspection and stats. Locking it
// directly bypasses the scoped-access discipline; prefer the accessors.
func (l *Lockable[T]) Mutex() *SharedMutex {
	return l.mu
}

// ReadAccess returns a shared access without blocking the caller beyond the
// bounded bookkeeping retry. While a writer is waiting or active the
// returned access is not holding; check Held.
func (l *Lockable[T]) ReadAccess() Access[T] {
	return Access[T]{guard: TryReadGuard(l.mu), value: &l.value}
}

// ReadAccessTimeout returns a shared access, waiting up to d for shared
// access to become available. Timeouts below MinAccessTimeout are raised to
// the floor so rapid polling cannot starve the bookkeeping signal.
func (l *Lockable[T]) ReadAccessTimeout(d time.Duration) Access[T] {
	return Access[T]{guard: ReadGuardTimeout(l.mu, l.clampTimeout(d)), value: &l.value}
}

// WriteAccess returns an exclusive access, blocking until it is granted.
func (l *Lockable[T]) WriteAccess() Access[T] {
	return Access[T]{guard: WriteGuard(l.mu), value: &l.value}
}

// WriteAccessTimeout returns an exclusive access, waiting at most d. The
// access is not holding if the deadline passed.
func (l *Lockable[T]) WriteAccessTimeout(d time.Duration) Access[T] {
	return Access[T]{guard: WriteGuardTimeout(l.mu, l.clampTimeout(d)), value: &l.value}
}

// Reset acquires exclusive access, blocking until granted, and replaces the
// value with the zero value of T.
func (l *Lockable[T]) Reset() {
	if a := l.WriteAccess(); a.Held() {
		defer a.Release()
		var zero T
		*a.Value() = zero
	}
}

// View runs f under a shared lock obtained without blocking, reporting
// whether f ran. The pointer passed to f must not escape the callback.
func (l *Lockable[T]) View(f func(*T)) bool {
	a := l.ReadAccess()
	if !a.Held() {
		return false
	}
	defer a.Release()
	f(a.Value())
	return true
}

// Update runs f under the exclusive lock, blocking until it is granted. The
// pointer passed to f must not escape the callback.
func (l *Lockable[T]) Update(f func(*T)) {
	a := l.WriteAccess()
	defer a.Release()
	f(a.Value())
}

func (l *Lockable[T]) clampTimeout(d time.Duration) time.Duration {
	if d < MinAccessTimeout {
		LogOncef(l.mu.logger, "[%s] WARNING: access timeout %v below floor %v, clamping", l.mu.name, d, MinAccessTimeout)
		return MinAccessTimeout
	}
	return d
}
