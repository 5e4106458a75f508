package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/message"
)

func TestPushPopFIFO(t *testing.T) {
	q := New(0, core.Block, 0)
	require.True(t, q.Push(message.FromString("a"), 0).Ok())
	require.True(t, q.Push(message.FromString("b"), 0).Ok())

	m1, st := q.Pop(0)
	require.True(t, st.Ok())
	assert.Equal(t, "a", string(m1.Bytes()))

	m2, st := q.Pop(0)
	require.True(t, st.Ok())
	assert.Equal(t, "b", string(m2.Bytes()))
}

func TestHwmFailFastRejectsOverCapacity(t *testing.T) {
	q := New(4, core.FailFast, 0)
	require.True(t, q.Push(message.FromBytes([]byte{1, 2, 3}), 0).Ok())

	st := q.Push(message.FromBytes([]byte{1, 2, 3}), 0)
	require.False(t, st.Ok(), "second push should fail fast at HWM")
}

func TestHwmDropNewSilentlyDiscards(t *testing.T) {
	q := New(4, core.DropNew, 0)
	require.True(t, q.Push(message.FromBytes([]byte{1, 2, 3}), 0).Ok())

	st := q.Push(message.FromBytes([]byte{9, 9, 9}), 0)
	require.True(t, st.Ok(), "drop-new reports success while silently discarding")
	assert.Equal(t, 1, q.SizeMsgs())
}

func TestHwmDropOldEvictsOldest(t *testing.T) {
	q := New(4, core.DropOld, 0)
	require.True(t, q.Push(message.FromString("old"), 0).Ok())
	require.True(t, q.Push(message.FromString("new!"), 0).Ok())

	m, st := q.Pop(0)
	require.True(t, st.Ok())
	assert.Equal(t, "new!", string(m.Bytes()), "old entry should have been evicted")
}

func TestBlockPolicyUnblocksOnPop(t *testing.T) {
	q := New(3, core.Block, 0)
	require.True(t, q.Push(message.FromBytes([]byte{1, 2, 3}), 0).Ok())

	var wg sync.WaitGroup
	wg.Add(1)
	pushed := make(chan struct{})
	go func() {
		defer wg.Done()
		st := q.Push(message.FromString("x"), time.Second)
		assert.True(t, st.Ok())
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("push should have blocked while queue is at HWM")
	case <-time.After(20 * time.Millisecond):
	}

	_, st := q.Pop(0)
	require.True(t, st.Ok())

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("blocked push never unblocked after Pop freed capacity")
	}
	wg.Wait()
}

func TestPopTimesOutOnEmptyQueue(t *testing.T) {
	q := New(0, core.Block, 0)
	_, st := q.Pop(10 * time.Millisecond)
	require.False(t, st.Ok())
}

func TestTTLExpiresEntries(t *testing.T) {
	q := New(0, core.Block, 5*time.Millisecond)
	require.True(t, q.Push(message.FromString("stale"), 0).Ok())
	time.Sleep(20 * time.Millisecond)

	_, ok := q.TryPop()
	assert.False(t, ok, "expired entry should have been purged")
}

func TestPushRejectsMessageLargerThanHwmRegardlessOfPolicy(t *testing.T) {
	for _, policy := range []core.BackpressurePolicy{core.Block, core.DropNew, core.DropOld, core.FailFast} {
		q := New(4, policy, 0)
		st := q.Push(message.FromBytes([]byte{1, 2, 3, 4, 5}), time.Millisecond)
		assert.False(t, st.Ok(), "policy %v should reject a message that can never fit", policy)
		assert.Equal(t, 0, q.SizeMsgs())
	}
}

func TestPushFrontReinsertsAtHead(t *testing.T) {
	q := New(0, core.Block, 0)
	require.True(t, q.Push(message.FromString("b"), 0).Ok())
	q.PushFront(message.FromString("a"))

	m, st := q.Pop(0)
	require.True(t, st.Ok())
	assert.Equal(t, "a", string(m.Bytes()), "PushFront should re-admit at the head")
}

func TestCloseWakesBlockedPopAndRejectsFurtherPush(t *testing.T) {
	q := New(0, core.Block, 0)
	done := make(chan struct{})
	go func() {
		_, st := q.Pop(0)
		assert.False(t, st.Ok())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not wake blocked Pop")
	}

	st := q.Push(message.FromString("late"), 0)
	assert.False(t, st.Ok())
}
