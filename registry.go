// registry.go keeps track of all SharedMutex instances and of the
// designated process-wide Lockable per payload type.
package sharedlock

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// Global registry of all SharedMutex instances
	globalRegistry = &registry{
		mutexes: make(map[string]*SharedMutex),
	}
)

type registry struct {
	sync.RWMutex
	mutexes map[string]*SharedMutex
}

// register adds a mutex to the global registry
func (r *registry) register(m *SharedMutex) {
	r.Lock()
	defer r.Unlock()
	r.mutexes[m.name] = m
}

// unregister removes a mutex from the global registry
func (r *registry) unregister(name string) {
	r.Lock()
	defer r.Unlock()
	delete(r.mutexes, name)
}

// getAllMutexes returns a sorted list of all registered mutexes
func (r *registry) getAllMutexes() []*SharedMutex {
	r.RLock()
	defer r.RUnlock()

	mutexes := make([]*SharedMutex, 0, len(r.mutexes))
	for _, m := range r.mutexes {
		mutexes = append(mutexes, m)
	}

	// Sort by name for consistent output
	sort.Slice(mutexes, func(i, j int) bool {
		return mutexes[i].name < mutexes[j].name
	})

	return mutexes
}

// DumpAllLockInfo returns a report of every registered mutex: current
// readers, waiting writers, writer activity, and per-lock-type statistics.
func DumpAllLockInfo() string {
	var output strings.Builder
	mutexes := globalRegistry.getAllMutexes()

	output.WriteString("=== SharedMutex Global Status ===\n\n")
	output.WriteString(fmt.Sprintf("Total Registered Mutexes: %d\n\n", len(mutexes)))

	for _, m := range mutexes {
		readers, waiting, active := m.StateInfo()
		output.WriteString(fmt.Sprintf("• %s: readers=%d, waiting writers=%d, writer active=%v\n",
			m.Name(), readers, waiting, active))

		stats := m.Stats()
		for _, lt := range []LockType{ReadLock, WriteLock} {
			s := stats[lt.String()]
			output.WriteString(fmt.Sprintf("  %s: acquired=%d contentions=%d wait(total=%v max=%v) held(total=%v max=%v)\n",
				lt,
				s["total_acquired"], s["total_contentions"],
				nanos(s["total_wait_time"]), nanos(s["max_wait_time"]),
				nanos(s["total_time_held"]), nanos(s["max_time_held"])))
		}
	}

	return output.String()
}

func nanos(n int64) string {
	return time.Duration(n).String()
}

// Typed instance registry. This replaces a static "the instance" pointer
// with an explicitly-owned registry keyed by payload type: call sites that
// cannot otherwise reach a shared Lockable register it once and look it up
// later. The registry holds plain references, not ownership; a registered
// Lockable must outlive all uses.
var instances = struct {
	sync.RWMutex
	byType map[reflect.Type]interface{}
}{
	byType: make(map[reflect.Type]interface{}),
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterInstance designates l as the process-wide Lockable for payload
// type T, replacing any previous designation.
func RegisterInstance[T any](l *Lockable[T]) {
	instances.Lock()
	defer instances.Unlock()
	instances.byType[typeKey[T]()] = l
}

// UnregisterInstance removes the designation for payload type T (mainly for
// testing).
func UnregisterInstance[T any]() {
	instances.Lock()
	defer instances.Unlock()
	delete(instances.byType, typeKey[T]())
}

// LookupInstance returns the designated Lockable for payload type T, or
// false if none was registered.
func LookupInstance[T any]() (*Lockable[T], bool) {
	instances.RLock()
	defer instances.RUnlock()
	v, ok := instances.byType[typeKey[T]()]
	if !ok {
		return nil, false
	}
	return v.(*Lockable[T]), true
}

// Instance returns the designated Lockable for payload type T. Calling it
// before RegisterInstance is a configuration defect, not a runtime
// condition, and panics.
func Instance[T any]() *Lockable[T] {
	l, ok := LookupInstance[T]()
	if !ok {
		panic(fmt.Sprintf("sharedlock: Instance called before RegisterInstance for %v", typeKey[T]()))
	}
	return l
}
