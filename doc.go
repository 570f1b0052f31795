/*
Package sharedlock provides a reader-writer mutex with writer-priority
fairness and a generic, scope-bound accessor that makes holding a protected
value past lock release structurally impossible.

The core is SharedMutex, built from two binary signals: a write-ownership
token and a bookkeeping signal guarding the reader count and writer flags.
Once a writer announces itself no new reader is admitted until that writer
has acquired and released the lock, which prevents writer starvation under
continuous read load. Blocking, non-blocking, and timed acquisition are
modes of the same primitive.

Key Features:
  - Writer-priority reader-writer locking with blocking, try, and timed modes
  - Scope-bound Guard and Access handles that release exactly once
  - Generic Lockable[T] container, the sole point of access to its value
  - Named mutexes with wait/hold warnings, per-lock-type statistics, and a
    global registry report
  - Panics on contract violations: unlock without hold, reentrant write
    locking, unlocking from the wrong goroutine

Basic Usage:

	type Config struct {
		Settings map[string]string
	}

	db := sharedlock.NewLockable[Config]("configdb")

	// Write access blocks until granted.
	if a := db.WriteAccess(); a.Held() {
		a.Value().Settings = map[string]string{"mode": "dark"}
		a.Release()
	}

	// Read access never blocks the caller; while a writer is waiting or
	// active it simply reports not holding.
	if a := db.ReadAccess(); a.Held() {
		_ = a.Value().Settings["mode"]
		a.Release()
	}

Call sites that cannot otherwise reach a shared Lockable can use the typed
instance registry (RegisterInstance, Instance, LookupInstance); the
registered Lockable must outlive all uses.

This package exists because the platform reader-writer lock it replaces was
unreliable under real contention; the policy constants that smooth
bookkeeping contention (retry window, retry interval, timeout floor) are
load-dependent tunables and can be overridden through the environment, see
GetDurationEnvOrDefault.
*/
package sharedlock
