package sharedlock

import (
	"fmt"
	"log"
	"sync"
)

var (
	// Global map to track emitted messages
	loggedMessages sync.Map
)

// LogOnce logs a message through logger only once during the process
// lifetime. Returns true if the message was logged, false if it had been
// logged before.
func LogOnce(logger *log.Logger, msg string) bool {
	if logger == nil {
		logger = log.Default()
	}
	_, loaded := loggedMessages.LoadOrStore(msg, true)
	if !loaded {
		logger.Printf("%s", msg)
	}
	return !loaded
}

// LogOncef formats and logs a message only once during the process lifetime.
// Returns true if the message was logged, false if it had been logged before.
func LogOncef(logger *log.Logger, format string, args ...interface{}) bool {
	return LogOnce(logger, fmt.Sprintf(format, args...))
}

// ResetLogOnce clears all tracked messages (mainly for testing)
func ResetLogOnce() {
	loggedMessages = sync.Map{}
}
