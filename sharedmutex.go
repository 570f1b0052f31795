package sharedlock

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

// Tunable policy constants. The retry window and interval smooth contention
// on the bookkeeping signal under heavy concurrent read pressure; they are
// empirically chosen and load-dependent, so both can be overridden via the
// environment.
var (
	// ReadRetryWindow bounds the total time TryRLock spends retrying the
	// bookkeeping signal before giving up.
	ReadRetryWindow = GetDurationEnvOrDefault("SHAREDLOCK_READ_RETRY_WINDOW", 50*time.Millisecond)

	// ReadRetryInterval bounds each individual attempt at the bookkeeping
	// signal inside TryRLock.
	ReadRetryInterval = GetDurationEnvOrDefault("SHAREDLOCK_READ_RETRY_INTERVAL", 5*time.Millisecond)

	// MinAccessTimeout is the floor applied to caller-supplied accessor
	// timeouts, so rapid polling cannot starve the bookkeeping signal.
	MinAccessTimeout = GetDurationEnvOrDefault("SHAREDLOCK_MIN_ACCESS_TIMEOUT", 5*time.Millisecond)
)

// SharedMutex is a reader-writer mutex with writer-priority fairness, built
// on two binary signals: one write-ownership token and one bookkeeping
// signal guarding the reader count and writer flags. Once a writer announces
// itself, no new shared acquisition is granted until that writer has
// acquired and released the exclusive lock.
//
// Blocking, non-blocking, and timed acquisition are all modes of the same
// primitive. A SharedMutex is not reentrant: a goroutine holding the write
// lock panics if it attempts to reacquire it.
//
// Like the rest of the package, misuse (unlocking a lock that is not held,
// unlocking from the wrong goroutine) is a programming error and panics.
type SharedMutex struct {
	name           string
	warningTimeout time.Duration
	logger         *log.Logger

	excl  *Signal // write-ownership token, held exactly while a writer is active
	state *Signal // bookkeeping signal, guards the fields below

	readerCount    int
	waitingWriters int
	writerActive   bool
	changed        chan struct{} // closed and replaced on every state change

	writerID    atomic.Uint64 // goroutine holding the write lock, 0 if none
	writerSince time.Time     // guarded by state

	readStats  LockStats
	writeStats LockStats
}

// NewSharedMutex creates a named SharedMutex. Acquisitions or holds that
// exceed warningTimeout are logged through logger (log.Default() if nil).
// The mutex is registered with the global registry under its name.
func NewSharedMutex(name string, warningTimeout time.Duration, logger *log.Logger) *SharedMutex {
	if logger == nil {
		logger = log.Default()
	}
	m := &SharedMutex{
		name:           name,
		warningTimeout: warningTimeout,
		logger:         logger,
		excl:           NewBinarySignal(),
		state:          NewBinarySignal(),
		changed:        make(chan struct{}),
	}
	globalRegistry.register(m)
	return m
}

// Name returns the name the mutex was registered under.
func (m *SharedMutex) Name() string { return m.name }

// Close unregisters the mutex from the global registry. Closing a mutex with
// outstanding locks is refused with a warning.
func (m *SharedMutex) Close() {
	m.state.Acquire()
	if m.readerCount > 0 || m.waitingWriters > 0 || m.writerActive {
		readers, writerActive := m.readerCount, m.writerActive
		m.state.Release()
		m.logger.Printf("[%s] WARNING: Attempting to close mutex with active locks (readers: %d, writer active: %v)",
			m.name, readers, writerActive)
		return
	}
	m.state.Release()
	globalRegistry.unregister(m.name)
}

// notifyLocked wakes every goroutine waiting in awaitLocked. Caller must
// hold m.state.
func (m *SharedMutex) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

// awaitLocked blocks until cond holds or the deadline passes (zero deadline
// means wait forever). Caller must hold m.state; it is held again on return.
func (m *SharedMutex) awaitLocked(cond func() bool, deadline time.Time) bool {
	for !cond() {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return false
		}
		ch := m.changed
		m.state.Release()
		if deadline.IsZero() {
			<-ch
		} else {
			timer := time.NewTimer(time.Until(deadline))
			select {
			case <-ch:
				timer.Stop()
			case <-timer.C:
			}
		}
		m.state.Acquire()
	}
	return true
}

// Lock acquires the exclusive lock, blocking until it is granted. The writer
// announces itself first so that no further shared acquisitions start, waits
// for the reader count to drain to zero, then claims the write token.
func (m *SharedMutex) Lock() {
	m.lockExclusive(time.Time{})
}

// LockTimeout acquires the exclusive lock, waiting at most d. It reports
// whether the lock was acquired; on failure all state is left unchanged.
func (m *SharedMutex) LockTimeout(d time.Duration) bool {
	return m.lockExclusive(time.Now().Add(d))
}

func (m *SharedMutex) lockExclusive(deadline time.Time) bool {
	gid := CurrentGoroutineID()
	if m.writerID.Load() == gid {
		panic(fmt.Sprintf("sharedlock: [%s] recursive write lock by goroutine %d", m.name, gid))
	}

	start := time.Now()
	m.state.Acquire()
	m.waitingWriters++
	if !m.awaitLocked(func() bool { return m.readerCount == 0 && !m.writerActive }, deadline) {
		m.waitingWriters--
		m.notifyLocked()
		m.state.Release()
		m.writeStats.recordFailure(time.Since(start))
		return false
	}
	m.writerActive = true
	m.waitingWriters--
	m.writerSince = time.Now()
	m.state.Release()

	// The write token is free whenever no writer is active, so this claim
	// does not wait beyond a departing writer's final release.
	m.excl.Acquire()
	m.writerID.Store(gid)

	wait := time.Since(start)
	m.writeStats.recordAcquire(wait, wait > m.warningTimeout)
	m.warnSlow(wait, "Write lock acquisition")
	return true
}

// TryLock acquires the exclusive lock without blocking. It succeeds only if
// no reader is active, no writer is waiting or active, and the write token
// is immediately obtainable.
func (m *SharedMutex) TryLock() bool {
	gid := CurrentGoroutineID()
	if m.writerID.Load() == gid {
		panic(fmt.Sprintf("sharedlock: [%s] recursive write lock by goroutine %d", m.name, gid))
	}
	if !m.state.TryAcquire() {
		return false
	}
	if m.readerCount > 0 || m.waitingWriters > 0 || m.writerActive || !m.excl.TryAcquire() {
		m.state.Release()
		m.writeStats.recordFailure(0)
		return false
	}
	m.writerActive = true
	m.writerSince = time.Now()
	m.writerID.Store(gid)
	m.state.Release()
	m.writeStats.recordAcquire(0, false)
	return true
}

// Unlock releases the exclusive lock. It panics if the lock is not held, or
// if the calling goroutine is not the one that acquired it.
func (m *SharedMutex) Unlock() {
	gid := CurrentGoroutineID()
	m.state.Acquire()
	if !m.writerActive {
		m.state.Release()
		panic(fmt.Sprintf("sharedlock: [%s] Unlock of unlocked SharedMutex (goroutine %d)", m.name, gid))
	}
	if holder := m.writerID.Load(); holder != gid {
		m.state.Release()
		panic(fmt.Sprintf("sharedlock: [%s] Unlock by goroutine %d of write lock held by goroutine %d",
			m.name, gid, holder))
	}
	held := time.Since(m.writerSince)
	m.writerActive = false
	m.writerID.Store(0)
	m.notifyLocked()
	m.state.Release()
	m.excl.Release()

	m.writeStats.recordRelease(held)
	m.warnSlow(held, "Write lock held")
}

// RLock acquires a shared lock, blocking while a writer is waiting or
// active. Any number of shared holders may coexist.
func (m *SharedMutex) RLock() {
	m.lockShared(time.Time{})
}

// RLockTimeout acquires a shared lock, waiting at most d. It reports whether
// the lock was acquired.
func (m *SharedMutex) RLockTimeout(d time.Duration) bool {
	return m.lockShared(time.Now().Add(d))
}

func (m *SharedMutex) lockShared(deadline time.Time) bool {
	start := time.Now()
	m.state.Acquire()
	if !m.awaitLocked(func() bool { return m.waitingWriters == 0 && !m.writerActive }, deadline) {
		m.state.Release()
		m.readStats.recordFailure(time.Since(start))
		return false
	}
	m.readerCount++
	m.state.Release()

	wait := time.Since(start)
	m.readStats.recordAcquire(wait, wait > m.warningTimeout)
	m.warnSlow(wait, "Read lock acquisition")
	return true
}

// TryRLock acquires a shared lock without blocking on the lock itself. The
// bookkeeping signal may be briefly contended by other readers, so up to
// ReadRetryWindow is spent retrying it in ReadRetryInterval attempts; once
// the signal is obtained the call fails fast if a writer is waiting or
// active. The retry is contention smoothing, not a fairness guarantee.
func (m *SharedMutex) TryRLock() bool {
	deadline := time.Now().Add(ReadRetryWindow)
	for {
		if m.state.AcquireTimeout(ReadRetryInterval) {
			if m.waitingWriters > 0 || m.writerActive {
				m.state.Release()
				m.readStats.recordFailure(0)
				return false
			}
			m.readerCount++
			m.state.Release()
			m.readStats.recordAcquire(0, false)
			return true
		}
		if !time.Now().Before(deadline) {
			m.readStats.recordFailure(ReadRetryWindow)
			return false
		}
	}
}

// RUnlock releases one shared lock. It panics if no shared lock is held.
func (m *SharedMutex) RUnlock() {
	m.state.Acquire()
	if m.readerCount == 0 {
		m.state.Release()
		panic(fmt.Sprintf("sharedlock: [%s] RUnlock of unlocked SharedMutex", m.name))
	}
	m.readerCount--
	if m.readerCount == 0 {
		m.notifyLocked()
	}
	m.state.Release()
}

// recordReadHold is called by a read Guard on release with the duration the
// lock was held.
func (m *SharedMutex) recordReadHold(held time.Duration) {
	m.readStats.recordRelease(held)
	m.warnSlow(held, "Read lock held")
}

func (m *SharedMutex) warnSlow(d time.Duration, action string) {
	if m.warningTimeout <= 0 || d <= m.warningTimeout {
		return
	}
	m.logger.Printf("[%s] WARNING: %s for %v exceeding timeout of %v (goroutine %d)",
		m.name, action, d, m.warningTimeout, CurrentGoroutineID())
}

// StateInfo returns a consistent snapshot of the bookkeeping state.
func (m *SharedMutex) StateInfo() (readers, waitingWriters int, writerActive bool) {
	m.state.Acquire()
	readers, waitingWriters, writerActive = m.readerCount, m.waitingWriters, m.writerActive
	m.state.Release()
	return readers, waitingWriters, writerActive
}

// Stats returns the acquisition statistics per lock type.
func (m *SharedMutex) Stats() map[string]map[string]int64 {
	return map[string]map[string]int64{
		ReadLock.String():  m.readStats.snapshot(),
		WriteLock.String(): m.writeStats.snapshot(),
	}
}
