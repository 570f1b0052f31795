package sharedlock

// LockType is the type of lock
type LockType int

const (
	ReadLock LockType = iota
	WriteLock
)

// stringer for LockType
func (lt LockType) String() string {
	return []string{"ReadLock", "WriteLock"}[lt]
}
