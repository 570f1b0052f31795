package sharedlock

import "fmt"

// Access is a pointer-like, scope-bound view of a Lockable's value. It
// combines a Guard with a reference to the value and is the only way the
// value can be reached: the reference stays valid exactly as long as the
// Access holds its lock, so callers cannot retain the value past release.
//
// Held is the sanctioned branch condition; use it so the success check and
// the accessor's scope coincide:
//
//	if a := db.WriteAccess(); a.Held() {
//		defer a.Release()
//		a.Value().Settings["mode"] = "dark"
//	}
type Access[T any] struct {
	guard Guard
	value *T
}

// Held reports whether the underlying guard holds the lock.
func (a *Access[T]) Held() bool {
	return a.guard.Held()
}

// Value returns the protected value. It panics if the access does not hold
// its lock; callers must check Held first. The returned pointer must not
// outlive the Access.
func (a *Access[T]) Value() *T {
	if !a.guard.Held() {
		panic(fmt.Sprintf("sharedlock: Value on %s access that does not hold its lock", a.guard.Type()))
	}
	return a.value
}

// Release returns the lock if held; only the first call releases.
func (a *Access[T]) Release() {
	a.guard.Release()
}
