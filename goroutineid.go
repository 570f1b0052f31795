package sharedlock

import (
	"bytes"
	"runtime"
	"sync"
)

// Pool of reusable buffers to minimize allocations during stack header
// capture. Uses a pointer to the slice to avoid copying on Put.
var stackBufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 64)
		return &b
	},
}

var goroutinePrefix = []byte("goroutine ")

// CurrentGoroutineID returns the runtime's ID for the calling goroutine,
// taken from the first line of its stack trace ("goroutine N [running]:").
// IDs start at 1, so 0 is usable as a sentinel for "no goroutine".
//
// The lock uses this only for contract-violation checks (reentrant write
// locking, unlock by a non-holder); it never keys long-lived state on it.
func CurrentGoroutineID() uint64 {
	buf := *(stackBufPool.Get().(*[]byte))
	defer stackBufPool.Put(&buf)

	n := runtime.Stack(buf, false)
	line := buf[:n]
	if idx := bytes.IndexByte(line, '\n'); idx > 0 {
		line = line[:idx]
	}
	line = bytes.TrimPrefix(line, goroutinePrefix)

	var id uint64
	for _, c := range line {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
