package sharedlock

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestNewSharedMutex(t *testing.T) {
	name := "test-mutex"
	timeout := 100 * time.Millisecond
	var buf bytes.Buffer
	logger := log.New(&buf, "", log.LstdFlags)

	m := NewSharedMutex(name, timeout, logger)
	defer m.Close()

	if m.name != name {
		t.Errorf("Expected name %v, got %v", name, m.name)
	}
	if m.warningTimeout != timeout {
		t.Errorf("Expected timeout %v, got %v", timeout, m.warningTimeout)
	}
	if m.logger != logger {
		t.Errorf("Expected logger to be set")
	}

	readers, waiting, active := m.StateInfo()
	if readers != 0 || waiting != 0 || active {
		t.Errorf("Expected pristine state, got readers=%d waiting=%d active=%v", readers, waiting, active)
	}
}

func TestExclusiveBlocksShared(t *testing.T) {
	m := NewSharedMutex("excl-blocks-shared", time.Second, nil)
	defer m.Close()

	m.Lock()
	if m.TryRLock() {
		t.Error("TryRLock succeeded while write lock held")
	}
	m.Unlock()

	if !m.TryRLock() {
		t.Error("TryRLock failed after write lock released")
	}
	m.RUnlock()
}

func TestSharedBlocksExclusive(t *testing.T) {
	m := NewSharedMutex("shared-blocks-excl", time.Second, nil)
	defer m.Close()

	m.RLock()
	if m.TryLock() {
		t.Error("TryLock succeeded while read lock held")
	}
	m.RUnlock()

	if !m.TryLock() {
		t.Error("TryLock failed after read lock released")
	}
	m.Unlock()
}

func TestConcurrentSharedHolders(t *testing.T) {
	m := NewSharedMutex("concurrent-shared", time.Second, nil)
	defer m.Close()

	// Same goroutine may take several shared locks while no writer is around.
	if !m.TryRLock() {
		t.Fatal("first TryRLock failed")
	}
	if !m.TryRLock() {
		t.Fatal("second TryRLock failed")
	}

	readers, _, _ := m.StateInfo()
	if readers != 2 {
		t.Errorf("Expected 2 readers, got %d", readers)
	}
	m.RUnlock()
	m.RUnlock()
}

func TestWriterPriorityBlocksNewReaders(t *testing.T) {
	m := NewSharedMutex("writer-priority", time.Second, nil)
	defer m.Close()

	m.RLock()

	writerHolds := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		m.Lock() // blocks until the reader below releases
		close(writerHolds)
		time.Sleep(50 * time.Millisecond)
		m.Unlock()
		close(writerDone)
	}()

	// Let the writer announce itself.
	deadline := time.Now().Add(time.Second)
	for {
		_, waiting, _ := m.StateInfo()
		if waiting == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("writer never registered as waiting")
		}
		time.Sleep(time.Millisecond)
	}

	// A waiting writer blocks new readers even though one reader is active.
	if m.TryRLock() {
		t.Error("TryRLock succeeded while a writer was waiting")
	}

	m.RUnlock()
	<-writerHolds
	<-writerDone

	if !m.TryRLock() {
		t.Error("TryRLock failed after the writer released")
	}
	m.RUnlock()
}

func TestLockTimeout(t *testing.T) {
	m := NewSharedMutex("lock-timeout", time.Second, nil)
	defer m.Close()

	m.RLock()
	start := time.Now()
	if m.LockTimeout(50 * time.Millisecond) {
		t.Fatal("LockTimeout succeeded while a reader was active")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("LockTimeout returned after %v, before the deadline", elapsed)
	}
	m.RUnlock()

	if !m.LockTimeout(50 * time.Millisecond) {
		t.Fatal("LockTimeout failed on an uncontended mutex")
	}
	m.Unlock()
}

func TestRLockTimeout(t *testing.T) {
	m := NewSharedMutex("rlock-timeout", time.Second, nil)
	defer m.Close()

	m.Lock()
	if m.RLockTimeout(50 * time.Millisecond) {
		t.Fatal("RLockTimeout succeeded while the write lock was held")
	}
	m.Unlock()

	if !m.RLockTimeout(50 * time.Millisecond) {
		t.Fatal("RLockTimeout failed on an uncontended mutex")
	}
	m.RUnlock()
}

func TestTimedLockEventuallySucceeds(t *testing.T) {
	m := NewSharedMutex("timed-eventually", time.Second, nil)
	defer m.Close()

	m.RLock()
	go func() {
		time.Sleep(30 * time.Millisecond)
		m.RUnlock()
	}()

	if !m.LockTimeout(time.Second) {
		t.Fatal("LockTimeout failed although the reader released within the deadline")
	}
	m.Unlock()
}

func TestMixedWorkloadInvariants(t *testing.T) {
	m := NewSharedMutex("mixed-workload", time.Second, nil)
	defer m.Close()

	const writers = 3
	const readers = 9 // 3 readers per writer
	stop := time.Now().Add(300 * time.Millisecond)

	var activeReaders atomic.Int32
	var activeWriters atomic.Int32

	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			for time.Now().Before(stop) {
				m.Lock()
				if w := activeWriters.Add(1); w != 1 {
					return fmt.Errorf("%d writers active at once", w)
				}
				if r := activeReaders.Load(); r != 0 {
					return fmt.Errorf("writer active with %d readers", r)
				}
				time.Sleep(time.Millisecond)
				activeWriters.Add(-1)
				m.Unlock()
				time.Sleep(time.Millisecond)
			}
			return nil
		})
	}
	for i := 0; i < readers; i++ {
		g.Go(func() error {
			for time.Now().Before(stop) {
				m.RLock()
				activeReaders.Add(1)
				if w := activeWriters.Load(); w != 0 {
					return fmt.Errorf("reader active with %d writers", w)
				}
				time.Sleep(time.Millisecond)
				activeReaders.Add(-1)
				m.RUnlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	rd, waiting, active := m.StateInfo()
	if rd != 0 || waiting != 0 || active {
		t.Errorf("State not drained: readers=%d waiting=%d active=%v", rd, waiting, active)
	}
}

func TestUnlockWithoutHoldPanics(t *testing.T) {
	m := NewSharedMutex("unlock-unheld", time.Second, nil)
	defer m.Close()

	defer func() {
		if recover() == nil {
			t.Error("Expected panic from Unlock of unlocked SharedMutex")
		}
	}()
	m.Unlock()
}

func TestRUnlockWithoutHoldPanics(t *testing.T) {
	m := NewSharedMutex("runlock-unheld", time.Second, nil)
	defer m.Close()

	defer func() {
		if recover() == nil {
			t.Error("Expected panic from RUnlock of unlocked SharedMutex")
		}
	}()
	m.RUnlock()
}

func TestRecursiveWriteLockPanics(t *testing.T) {
	m := NewSharedMutex("recursive-write", time.Second, nil)
	defer m.Close()

	m.Lock()
	defer m.Unlock()

	defer func() {
		if recover() == nil {
			t.Error("Expected panic from recursive write lock")
		}
	}()
	m.Lock()
}

func TestUnlockFromWrongGoroutinePanics(t *testing.T) {
	m := NewSharedMutex("wrong-goroutine", time.Second, nil)
	defer m.Close()

	m.Lock()
	panicked := make(chan bool)
	go func() {
		defer func() {
			panicked <- recover() != nil
		}()
		m.Unlock()
	}()
	if !<-panicked {
		t.Error("Expected panic from Unlock on a non-holding goroutine")
	}
	m.Unlock()
}

func TestSlowAcquisitionWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", log.LstdFlags)
	m := NewSharedMutex("warn-slow", 20*time.Millisecond, logger)
	defer m.Close()

	// The writer goroutine locks and unlocks on its own goroutine; Unlock
	// from anywhere else would panic.
	holding := make(chan struct{})
	released := make(chan struct{})
	go func() {
		m.Lock()
		close(holding)
		time.Sleep(80 * time.Millisecond)
		m.Unlock()
		close(released)
	}()

	<-holding
	m.RLock()
	m.RUnlock()
	<-released // the writer goroutine logs its own hold warning

	if !strings.Contains(buf.String(), "WARNING: Read lock acquisition") {
		t.Errorf("Expected slow-acquisition warning, log was: %q", buf.String())
	}
}

func TestStats(t *testing.T) {
	m := NewSharedMutex("stats", time.Second, nil)
	defer m.Close()

	m.Lock()
	m.Unlock()
	if !m.TryRLock() {
		t.Fatal("TryRLock failed on an uncontended mutex")
	}
	m.RUnlock()

	stats := m.Stats()
	if got := stats[WriteLock.String()]["total_acquired"]; got != 1 {
		t.Errorf("Expected 1 write acquisition, got %d", got)
	}
	if got := stats[ReadLock.String()]["total_acquired"]; got != 1 {
		t.Errorf("Expected 1 read acquisition, got %d", got)
	}

	m.Lock()
	if m.TryRLock() {
		t.Fatal("TryRLock succeeded while write lock held")
	}
	m.Unlock()
	if got := m.Stats()[ReadLock.String()]["total_contentions"]; got != 1 {
		t.Errorf("Expected 1 read contention, got %d", got)
	}
}

func TestCloseWithActiveLocksRefused(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", log.LstdFlags)
	m := NewSharedMutex("close-active", time.Second, logger)

	m.RLock()
	m.Close()
	if !strings.Contains(buf.String(), "Attempting to close mutex with active locks") {
		t.Error("Expected a warning when closing a mutex with active locks")
	}
	if !strings.Contains(DumpAllLockInfo(), "close-active") {
		t.Error("Mutex should still be registered after refused Close")
	}
	m.RUnlock()
	m.Close()
}
