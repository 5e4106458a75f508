package queue

import (
	"sync"
	"time"
)

// condWaitTimeout waits on c for up to d, returning once c is signalled or
// d elapses. sync.Cond has no native timed wait, so a timer goroutine
// broadcasts after d to unblock Wait(); it cannot tell its caller which of
// the two woke it, so every caller in this package re-checks its predicate
// and deadline itself after this returns.
func condWaitTimeout(c *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		c.L.Lock()
		c.Broadcast()
		c.L.Unlock()
	})
	defer timer.Stop()
	c.Wait()
}
