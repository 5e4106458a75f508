package reconnect

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/status"
)

type stubPipe struct {
	mu     sync.Mutex
	broken atomic.Bool
	closed atomic.Bool
}

func (s *stubPipe) Send(msg message.Message, opt core.SendOptions) *status.Status {
	if s.broken.Load() {
		return status.Closedf("stub pipe broken")
	}
	return nil
}

func (s *stubPipe) Recv(opt core.RecvOptions) (message.Message, *status.Status) {
	if s.broken.Load() {
		return message.Message{}, status.Closedf("stub pipe broken")
	}
	return message.FromString("ok"), nil
}

func (s *stubPipe) Close() *status.Status {
	s.closed.Store(true)
	return nil
}

func TestReconnectDialsImmediatelyAndSucceeds(t *testing.T) {
	var dials atomic.Int32
	dial := func() (core.Pipe, *status.Status) {
		dials.Add(1)
		return &stubPipe{}, nil
	}

	p := New(dial, core.ReconnectPolicy{InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, BackoffMultiplier: 2}, nil)
	defer p.Close()

	require.Eventually(t, func() bool {
		st := p.Send(message.FromString("hi"), core.SendOptions{})
		return st.Ok()
	}, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, int(dials.Load()), 1)
}

func TestReconnectRetriesAfterDialFailure(t *testing.T) {
	var dials atomic.Int32
	dial := func() (core.Pipe, *status.Status) {
		n := dials.Add(1)
		if n < 3 {
			return nil, status.IoErrorf("simulated dial failure")
		}
		return &stubPipe{}, nil
	}

	p := New(dial, core.ReconnectPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2}, nil)
	defer p.Close()

	require.Eventually(t, func() bool {
		return dials.Load() >= 3
	}, 2*time.Second, time.Millisecond)
}

func TestReconnectNotifiesStateTransitions(t *testing.T) {
	var states []core.ConnectionState
	var mu sync.Mutex
	cb := func(s core.ConnectionState, reason string) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}

	dial := func() (core.Pipe, *status.Status) { return &stubPipe{}, nil }
	p := New(dial, core.ReconnectPolicy{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2}, cb)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range states {
			if s == core.Connected {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	require.True(t, p.Close().Ok())
	mu.Lock()
	last := states[len(states)-1]
	mu.Unlock()
	assert.Equal(t, core.ClosedState, last)
}

// TestReconnectSendBlocksUntilFirstConnection exercises spec.md §8 scenario
// S6 directly: a dialler that fails the first N attempts then succeeds, and
// a single un-polled Send call that blocks until the supervisor connects and
// then delivers. This replaces a weaker earlier version of this test that
// only polled Send inside require.Eventually, which never actually proved
// Send blocks.
func TestReconnectSendBlocksUntilFirstConnection(t *testing.T) {
	var dials atomic.Int32
	inner := &stubPipe{}
	dial := func() (core.Pipe, *status.Status) {
		n := dials.Add(1)
		if n < 3 {
			return nil, status.IoErrorf("simulated dial failure")
		}
		return inner, nil
	}

	var states []core.ConnectionState
	var mu sync.Mutex
	cb := func(s core.ConnectionState, reason string) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}

	p := New(dial, core.ReconnectPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2}, cb)
	defer p.Close()

	st := p.Send(message.FromString("hi"), core.SendOptions{Timeout: 2 * time.Second})
	require.True(t, st.Ok(), "a single blocking Send should succeed once the supervisor connects")
	assert.GreaterOrEqual(t, int(dials.Load()), 3)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, core.Connected, states[len(states)-1])
	for _, s := range states[:len(states)-1] {
		assert.Contains(t, []core.ConnectionState{core.Disconnected, core.Reconnecting}, s)
	}
}

// TestReconnectSendTimesOutWaitingForFirstConnection bounds the S6 wait by
// the caller's timeout (spec.md §4.6 "Operation routing": "the optional
// caller timeout bounds this wait, returning Timeout on expiry").
func TestReconnectSendTimesOutWaitingForFirstConnection(t *testing.T) {
	dial := func() (core.Pipe, *status.Status) {
		return nil, status.IoErrorf("simulated dial failure")
	}

	p := New(dial, core.ReconnectPolicy{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2}, nil)
	defer p.Close()

	st := p.Send(message.FromString("hi"), core.SendOptions{Timeout: 20 * time.Millisecond})
	require.False(t, st.Ok())
	assert.Equal(t, status.Timeout, st.Code())
}

// TestReconnectMaxAttemptsLatchesDisconnectedNotClosed covers the terminal
// condition spec.md §3 describes as a latched "permanently failed" flag
// represented by Disconnected, distinct from an explicit Close.
func TestReconnectMaxAttemptsLatchesDisconnectedNotClosed(t *testing.T) {
	dial := func() (core.Pipe, *status.Status) {
		return nil, status.IoErrorf("simulated dial failure")
	}

	var states []core.ConnectionState
	var mu sync.Mutex
	cb := func(s core.ConnectionState, reason string) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}

	p := New(dial, core.ReconnectPolicy{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2, MaxAttempts: 2}, cb)
	defer p.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[len(states)-1] == core.Disconnected
	}, time.Second, time.Millisecond, "exhausting MaxAttempts should latch Disconnected, not Closed")

	st := p.Send(message.FromString("hi"), core.SendOptions{Timeout: 20 * time.Millisecond})
	require.False(t, st.Ok())
	assert.Equal(t, status.Closed, st.Code(), "a permanently failed supervisor should reject sends as Closed")
}
