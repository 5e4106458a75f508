// Package queue implements the thread-safe bounded FIFO of spec.md §4.4:
// byte-bounded backpressure (block/drop-new/drop-old/fail-fast), TTL-based
// expiry, and close-aware wait primitives. Both the send-side of the QoS
// wrapper (qos package) and tests of the invariants in spec.md §8 use it
// directly.
package queue

import (
	"sync"
	"time"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/status"
)

// entry is a queued message plus its enqueue metadata (spec.md §3).
type entry struct {
	msg      message.Message
	enqueued time.Time
	deadline time.Time // zero if no TTL
}

// Queue is a single-producer/single-consumer-agnostic bounded FIFO: any
// number of goroutines may call Push/Pop concurrently, each serialized by
// an internal mutex, mirroring the original's std::mutex-guarded deque.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	entries []entry
	bytes   int
	closed  bool

	hwmBytes int
	policy   core.BackpressurePolicy
	ttl      time.Duration
}

// New constructs a Queue. hwmBytes of 0 disables the high water mark
// (spec.md §4.4).
func New(hwmBytes int, policy core.BackpressurePolicy, ttl time.Duration) *Queue {
	q := &Queue{hwmBytes: hwmBytes, policy: policy, ttl: ttl}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push enqueues msg, applying the configured backpressure policy if the
// queue is at or above its high water mark (spec.md §4.4).
func (q *Queue) Push(msg message.Message, timeout time.Duration) *status.Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return status.Closedf("queue closed")
	}

	if q.hwmBytes > 0 && msg.Size() > q.hwmBytes {
		return status.InvalidArgumentf("message of %d bytes exceeds high water mark of %d bytes", msg.Size(), q.hwmBytes)
	}

	if q.hwmBytes > 0 && q.bytes+msg.Size() > q.hwmBytes {
		switch q.policy {
		case core.DropNew:
			return nil
		case core.DropOld:
			for q.hwmBytes > 0 && q.bytes+msg.Size() > q.hwmBytes && len(q.entries) > 0 {
				q.popFrontLocked()
			}
		case core.FailFast:
			return status.IoErrorf("queue at HWM")
		case core.Block:
			if st := q.waitNotFullLocked(msg.Size(), timeout); !st.Ok() {
				return st
			}
		}
	}

	q.pushBackLocked(msg)
	q.notEmpty.Signal()
	return nil
}

// waitNotFullLocked blocks (mu held) until msg of the given size would fit,
// the queue closes, or timeout elapses. timeout of 0 blocks forever.
func (q *Queue) waitNotFullLocked(size int, timeout time.Duration) *status.Status {
	if timeout <= 0 {
		for q.hwmBytes > 0 && q.bytes+size > q.hwmBytes && !q.closed {
			q.notFull.Wait()
		}
		if q.closed {
			return status.Closedf("queue closed")
		}
		return nil
	}

	deadline := time.Now().Add(timeout)
	for q.hwmBytes > 0 && q.bytes+size > q.hwmBytes && !q.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return status.Timeoutf("push timed out")
		}
		condWaitTimeout(q.notFull, remaining)
	}
	if q.closed {
		return status.Closedf("queue closed")
	}
	return nil
}

// Pop dequeues the oldest message, purging expired-at-head entries first.
// Blocks until a message is available, the queue closes, or timeout
// elapses.
func (q *Queue) Pop(timeout time.Duration) (message.Message, *status.Status) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.purgeExpiredLocked()

	if timeout <= 0 {
		for len(q.entries) == 0 && !q.closed {
			q.notEmpty.Wait()
			q.purgeExpiredLocked()
		}
	} else {
		deadline := time.Now().Add(timeout)
		for len(q.entries) == 0 && !q.closed {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return message.Message{}, status.Timeoutf("pop timed out")
			}
			condWaitTimeout(q.notEmpty, remaining)
			q.purgeExpiredLocked()
			if len(q.entries) == 0 && !q.closed && time.Now().After(deadline) {
				return message.Message{}, status.Timeoutf("pop timed out")
			}
		}
	}

	if len(q.entries) == 0 {
		return message.Message{}, status.Closedf("queue closed")
	}
	return q.popFrontLocked(), nil
}

// TryPop dequeues without blocking. ok is false if the queue is empty after
// expiry purging.
func (q *Queue) TryPop() (msg message.Message, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.purgeExpiredLocked()
	if len(q.entries) == 0 {
		return message.Message{}, false
	}
	return q.popFrontLocked(), true
}

// PurgeExpired removes every TTL-expired entry, returning the count removed.
func (q *Queue) PurgeExpired() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.purgeExpiredLocked()
}

// Close latches the queue closed and wakes every waiter.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// IsClosed reports whether Close has been called.
func (q *Queue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// SizeBytes returns the current total byte count.
func (q *Queue) SizeBytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.bytes
}

// SizeMsgs returns the current message count.
func (q *Queue) SizeMsgs() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// AtHwm reports whether the queue is at or above its high water mark. A
// zero high water mark never reports true.
func (q *Queue) AtHwm() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hwmBytes > 0 && q.bytes >= q.hwmBytes
}

func (q *Queue) pushBackLocked(msg message.Message) {
	e := entry{msg: msg, enqueued: time.Now()}
	if q.ttl > 0 {
		e.deadline = e.enqueued.Add(q.ttl)
	}
	q.entries = append(q.entries, e)
	q.bytes += msg.Size()
}

// PushFront re-admits msg at the head of the queue, bypassing the HWM and
// backpressure policy entirely. It exists for a consumer (qos.Pipe's drain
// loop) that just popped msg and failed to deliver it on a transient error:
// spec.md §4.5 requires leaving the head in place across such a retry,
// which only works if the failed send can be put back where it came from
// rather than treated as newly admitted data.
func (q *Queue) PushFront(msg message.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	e := entry{msg: msg, enqueued: time.Now()}
	if q.ttl > 0 {
		e.deadline = e.enqueued.Add(q.ttl)
	}
	q.entries = append([]entry{e}, q.entries...)
	q.bytes += msg.Size()
	q.notEmpty.Signal()
}

// popFrontLocked removes and returns the head entry, signalling not-full.
func (q *Queue) popFrontLocked() message.Message {
	e := q.entries[0]
	q.entries = q.entries[1:]
	q.bytes -= e.msg.Size()
	q.notFull.Signal()
	return e.msg
}

// purgeExpiredLocked drops every entry (not only head-of-queue) whose TTL
// has elapsed, matching the original's purge_expired sweep semantics
// (spec.md §4.4).
func (q *Queue) purgeExpiredLocked() int {
	if q.ttl <= 0 || len(q.entries) == 0 {
		return 0
	}
	now := time.Now()
	purged := 0
	kept := q.entries[:0:0]
	for _, e := range q.entries {
		if !e.deadline.IsZero() && now.After(e.deadline) {
			q.bytes -= e.msg.Size()
			purged++
			continue
		}
		kept = append(kept, e)
	}
	if purged > 0 {
		q.entries = kept
		q.notFull.Broadcast()
	}
	return purged
}
