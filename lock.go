package arc

import (
	"runtime"
	"sync/atomic"
)

// NopLock is a sync.Locker that does nothing. Use it via WithLock when a
// cache is only ever touched from one goroutine and the mutex overhead
// is measurable.
type NopLock struct{}

func (NopLock) Lock()         {}
func (NopLock) Unlock()       {}
func (NopLock) TryLock() bool { return true }

// SpinLock is a test-and-set spinlock. It exists for benchmark runs that
// want to measure engine work without futex round trips; production
// callers should stay with the default mutex.
//
// The zero value is unlocked. A SpinLock must not be copied after first
// use.
type SpinLock struct {
	state atomic.Int32
}

// Lock spins until the lock is acquired, yielding the processor between
// attempts.
func (l *SpinLock) Lock() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

// Unlock releases the lock.
func (l *SpinLock) Unlock() {
	l.state.Store(0)
}

// TryLock acquires the lock without spinning. Reports whether the lock
// was acquired.
func (l *SpinLock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}
