// Package reconnect implements the automatic-reconnect supervisor of
// spec.md §4.6: a core.Pipe that transparently redials its inner pipe on
// disconnect, tracks a ConnectionState machine, and notifies an optional
// callback on every transition.
package reconnect

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/internal/ductlog"
	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/status"
)

var log = ductlog.For("reconnect")

// DialFunc performs one raw connection attempt.
type DialFunc func() (core.Pipe, *status.Status)

// Pipe supervises a DialFunc, presenting a single stable core.Pipe to
// callers while the underlying connection comes and goes (spec.md §4.6).
//
// Every inner-pipe operation follows the same snapshot pattern: wait for an
// inner pipe to exist, take it and its generation under lock, release the
// lock, then do the (possibly blocking) I/O against that snapshot. If the
// generation has moved on by the time the I/O returns, its error is stale
// and discarded — the supervisor has already moved to a new inner pipe or
// given up.
type Pipe struct {
	dial    DialFunc
	policy  core.ReconnectPolicy
	onState core.ConnectionCallback

	mu                sync.Mutex
	cond              *sync.Cond
	inner             core.Pipe
	generation        uint64
	state             core.ConnectionState
	permanentlyFailed bool

	closed atomic.Bool

	wg   sync.WaitGroup
	stop chan struct{}
}

// New starts a supervisor that dials immediately in the background and
// keeps redialing per policy until Close is called.
func New(dial DialFunc, policy core.ReconnectPolicy, onState core.ConnectionCallback) core.Pipe {
	p := &Pipe{
		dial:    dial,
		policy:  policy,
		onState: onState,
		state:   core.Connecting,
		stop:    make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(1)
	go p.superviseLoop()
	return p
}

func (p *Pipe) setState(s core.ConnectionState, reason string) {
	p.mu.Lock()
	changed := p.state != s
	p.state = s
	p.mu.Unlock()
	if changed && p.onState != nil {
		p.onState(s, reason)
	}
}

// superviseLoop owns connecting and reconnecting; it is the only place a new
// inner pipe is installed into p.inner (markBroken only ever clears it)
// (spec.md §4.6's dial loop).
func (p *Pipe) superviseLoop() {
	defer p.wg.Done()
	b := newBackoff(p.policy.InitialDelay, p.policy.MaxDelay, p.policy.BackoffMultiplier)

	attempts := 0
	for {
		if p.closed.Load() {
			return
		}

		pipe, st := p.dial()
		if !st.Ok() {
			attempts++
			log.WithError(st).WithField("attempt", attempts).Warn("reconnect: dial failed")
			if p.policy.MaxAttempts > 0 && attempts >= p.policy.MaxAttempts {
				p.mu.Lock()
				p.permanentlyFailed = true
				p.mu.Unlock()
				p.cond.Broadcast()
				p.setState(core.Disconnected, "max reconnect attempts exceeded")
				return
			}
			p.setState(core.Reconnecting, st.Error())
			select {
			case <-time.After(b.next()):
			case <-p.stop:
				return
			}
			continue
		}

		attempts = 0
		b.reset()
		p.mu.Lock()
		p.inner = pipe
		p.generation++
		p.mu.Unlock()
		p.cond.Broadcast()
		p.setState(core.Connected, "")

		p.waitForDisconnect()
		if p.closed.Load() {
			return
		}
	}
}

// waitForDisconnect blocks until markBroken has cleared the inner pipe, or
// the supervisor is closed (spec.md §4.6: "block on a condition until the
// inner pipe is cleared (disconnect) or the supervisor is closed"), then
// returns so superviseLoop can redial.
func (p *Pipe) waitForDisconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.inner != nil && !p.closed.Load() {
		p.cond.Wait()
	}
}

// markBroken is called by Send/Recv when they observe the current
// generation's inner pipe has failed. It compare-and-clears the inner pipe
// so a stale error from an already-superseded connection is a no-op, wakes
// the supervisor out of waitForDisconnect, and notifies any state observer.
func (p *Pipe) markBroken(gen uint64, reason string) {
	p.mu.Lock()
	if p.generation != gen {
		p.mu.Unlock()
		return // already superseded; stale error
	}
	p.inner = nil
	changed := p.state != core.Disconnected
	p.state = core.Disconnected
	p.mu.Unlock()
	p.cond.Broadcast()
	if changed && p.onState != nil {
		p.onState(core.Disconnected, reason)
	}
}

// waitForInner blocks until a pipe exists, the supervisor is closed, or
// permanent failure is latched (spec.md §4.6 "Operation routing"), bounded
// by timeout (0 meaning block indefinitely — the §7 "blocks until the first
// connection succeeds" contract). On success it returns a snapshot of the
// inner pipe and its generation, taken under the lock and safe to use after
// the lock is released.
func (p *Pipe) waitForInner(timeout time.Duration) (core.Pipe, uint64, *status.Status) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.inner == nil && !p.closed.Load() && !p.permanentlyFailed {
		if deadline.IsZero() {
			p.cond.Wait()
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, 0, status.Timeoutf("reconnect: timed out waiting for a connection")
		}
		condWaitTimeout(p.cond, remaining)
	}

	if p.inner != nil {
		return p.inner, p.generation, nil
	}
	if p.closed.Load() {
		return nil, 0, status.Closedf("reconnect pipe closed")
	}
	return nil, 0, status.Closedf("reconnect: permanently failed after max reconnect attempts")
}

func (p *Pipe) Send(msg message.Message, opt core.SendOptions) *status.Status {
	if p.closed.Load() {
		return status.Closedf("reconnect pipe closed")
	}
	inner, gen, st := p.waitForInner(opt.Timeout)
	if !st.Ok() {
		return st
	}
	werr := inner.Send(msg, opt)
	if !werr.Ok() && status.IsDisconnect(werr) {
		p.markBroken(gen, werr.Error())
	}
	return werr
}

func (p *Pipe) Recv(opt core.RecvOptions) (message.Message, *status.Status) {
	if p.closed.Load() {
		return message.Message{}, status.Closedf("reconnect pipe closed")
	}
	inner, gen, st := p.waitForInner(opt.Timeout)
	if !st.Ok() {
		return message.Message{}, st
	}
	msg, rerr := inner.Recv(opt)
	if !rerr.Ok() && status.IsDisconnect(rerr) {
		p.markBroken(gen, rerr.Error())
	}
	return msg, rerr
}

func (p *Pipe) Close() *status.Status {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.stop)
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
	p.setState(core.ClosedState, "closed")

	p.mu.Lock()
	inner := p.inner
	p.mu.Unlock()
	if inner != nil {
		return inner.Close()
	}
	return nil
}
