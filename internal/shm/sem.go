package shm

import (
	"sync/atomic"
	"time"

	"github.com/cuihairu/duct/status"
)

// pollCap bounds how long a single blocking wait ever sleeps before
// rechecking the ring's closed flag, even when the caller asked to block
// forever. Without this a Close() racing a waiter that missed its wake
// could leave that waiter parked indefinitely.
const pollCap = 200 * time.Millisecond

// semaphore is a counting semaphore whose count lives in a single uint32
// word inside the shared-memory segment, so both processes observe the
// same count (spec.md §3: "Counting semaphores (not auto-reset events) are
// the sole arbiter of capacity"). There is no POSIX sem_open/sem_wait
// available without cgo, so the word doubles as both the count and the
// futex key: Post increments it and wakes waiters; Wait decrements it via
// CAS when non-zero, else parks on it. This generalizes
// markrussinovich-grpc-go-shmem's single-bit sequence-counter futex word
// (shm_futex_linux.go) into a true multi-value counting semaphore.
type semaphore struct {
	word   *uint32
	closed func() bool
}

func (s semaphore) post() {
	atomic.AddUint32(s.word, 1)
	futexWake(s.word)
}

// wake rouses any parked waiter without incrementing the count, used by
// Close to make a closed ring's waiters notice promptly instead of only on
// their next pollCap tick.
func (s semaphore) wake() {
	futexWake(s.word)
}

// wait blocks until the count is non-zero (and atomically decrements it),
// the ring closes, or timeout elapses. timeout of 0 blocks until close.
func (s semaphore) wait(timeout time.Duration) *status.Status {
	var deadline time.Time
	hasDeadline := timeout > 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		for {
			cur := atomic.LoadUint32(s.word)
			if cur == 0 {
				break
			}
			if atomic.CompareAndSwapUint32(s.word, cur, cur-1) {
				return nil
			}
		}

		if s.closed != nil && s.closed() {
			return status.Closedf("shm pipe closed")
		}

		chunk := pollCap
		if hasDeadline {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return status.Timeoutf("shm wait timed out")
			}
			if remaining < chunk {
				chunk = remaining
			}
		}
		futexWait(s.word, 0, chunk)
	}
}
