//go:build !linux

package shm

import (
	"sync/atomic"
	"time"
)

// Non-Linux platforms have no futex syscall reachable without cgo, so this
// is the portable poll fallback SPEC_FULL.md §4.2.1 calls for: a short
// nanosleep loop bounded by the same timeout the Linux path would honor.
// Correctness does not depend on this being woken promptly — semaphore.wait
// re-checks the word in a CAS loop around every call — only latency does.
const pollInterval = 500 * time.Microsecond

func futexWait(addr *uint32, val uint32, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for atomic.LoadUint32(addr) == val {
		if timeout > 0 && time.Now().After(deadline) {
			return
		}
		time.Sleep(pollInterval)
	}
}

func futexWake(addr *uint32) {
	// No parked waiters to signal explicitly; pollers observe the new
	// value on their next wake.
}
