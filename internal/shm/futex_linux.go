//go:build linux

package shm

import (
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"
)

// Linux futex operations, shared flavour: the semaphore words live in a
// mapping shared between two cooperating processes, so FUTEX_PRIVATE_FLAG
// (which restricts a futex to a single process) must not be set, or a post
// in one process would never wake a waiter in the other. Grounded directly
// in the teacher's shm_futex_linux.go futexWait, generalized here to also
// accept a bounded timeout the way that file's own futexWaitTimeout does.
const (
	futexWaitShared = 0 // FUTEX_WAIT
	futexWakeShared = 1 // FUTEX_WAKE
)

type timespec struct {
	sec  int64
	nsec int64
}

// futexWait parks the calling goroutine until *addr != val, another thread
// wakes this address, timeout elapses, or the call is spuriously
// interrupted. Callers must always re-check the logical condition on
// return; a return with no error is not a promise the condition holds.
func futexWait(addr *uint32, val uint32, timeout time.Duration) {
	if atomic.LoadUint32(addr) != val {
		return
	}

	var ts *timespec
	if timeout > 0 {
		ts = &timespec{
			sec:  int64(timeout / time.Second),
			nsec: int64(timeout % time.Second),
		}
	}

	syscall.RawSyscall6(
		syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitShared,
		uintptr(val),
		uintptr(unsafe.Pointer(ts)),
		0,
		0,
	)
}

// futexWake wakes every goroutine/thread parked on addr via futexWait.
func futexWake(addr *uint32) {
	syscall.RawSyscall6(
		syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWakeShared,
		^uintptr(0), // wake all waiters
		0,
		0,
		0,
	)
}
