package sharedlock

import "time"

// Guard is a scope-bound handle for one acquisition of a SharedMutex. A
// guard is created acquiring or attempting to acquire, reports whether it
// holds the lock, and releases exactly once: the first Release returns the
// lock, later calls are no-ops. The zero Guard holds nothing and releases
// nothing.
//
// A Guard must not be copied while held, and must be released on the
// goroutine that created it.
type Guard struct {
	mu         *SharedMutex
	lockType   LockType
	held       bool
	acquiredAt time.Time
}

// WriteGuard acquires the exclusive lock, blocking until it is granted.
func WriteGuard(m *SharedMutex) Guard {
	m.Lock()
	return Guard{mu: m, lockType: WriteLock, held: true, acquiredAt: time.Now()}
}

// TryWriteGuard attempts the exclusive lock without blocking.
func TryWriteGuard(m *SharedMutex) Guard {
	return Guard{mu: m, lockType: WriteLock, held: m.TryLock(), acquiredAt: time.Now()}
}

// WriteGuardTimeout attempts the exclusive lock for at most d.
func WriteGuardTimeout(m *SharedMutex, d time.Duration) Guard {
	return Guard{mu: m, lockType: WriteLock, held: m.LockTimeout(d), acquiredAt: time.Now()}
}

// ReadGuard acquires a shared lock, blocking while a writer is waiting or
// active.
func ReadGuard(m *SharedMutex) Guard {
	m.RLock()
	return Guard{mu: m, lockType: ReadLock, held: true, acquiredAt: time.Now()}
}

// TryReadGuard attempts a shared lock without blocking beyond the bounded
// bookkeeping retry of TryRLock.
func TryReadGuard(m *SharedMutex) Guard {
	return Guard{mu: m, lockType: ReadLock, held: m.TryRLock(), acquiredAt: time.Now()}
}

// ReadGuardTimeout attempts a shared lock for at most d.
func ReadGuardTimeout(m *SharedMutex, d time.Duration) Guard {
	return Guard{mu: m, lockType: ReadLock, held: m.RLockTimeout(d), acquiredAt: time.Now()}
}

// Held reports whether the guard currently holds its lock.
func (g *Guard) Held() bool {
	return g.held
}

// Type returns the kind of lock the guard was created for.
func (g *Guard) Type() LockType {
	return g.lockType
}

// Release returns the lock if held. Only the first call releases; a guard
// that never acquired, or was already released, does nothing.
func (g *Guard) Release() {
	if !g.held {
		return
	}
	g.held = false
	switch g.lockType {
	case WriteLock:
		g.mu.Unlock()
	case ReadLock:
		g.mu.RUnlock()
		g.mu.recordReadHold(time.Since(g.acquiredAt))
	}
}
