// Package qos wraps a raw core.Pipe with the bounded-queue backpressure
// layer of spec.md §4.5: Send enqueues onto a bounded FIFO (internal/queue)
// instead of writing straight through, and a dedicated background goroutine
// drains that queue into the inner pipe. Recv is a direct pass-through —
// there is no receive-side queue, matching the original's synchronous
// Recv() contract.
package qos

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/internal/ductlog"
	"github.com/cuihairu/duct/internal/queue"
	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/metrics"
	"github.com/cuihairu/duct/status"
)

var log = ductlog.For("qos")

var (
	sinkMu sync.RWMutex
	sink   metrics.Sink = metrics.NopSink{}
)

// SetMetricsSink installs the process-wide Sink every QoS pipe reports
// through: how long each Push onto the send queue took ("qos.send.enqueue")
// and how long each inner Send took in the drain loop ("qos.send.dwell").
// Passing nil restores the no-op sink.
func SetMetricsSink(s metrics.Sink) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if s == nil {
		s = metrics.NopSink{}
	}
	sink = s
}

func currentSink() metrics.Sink {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink
}

// Pipe wraps inner with queued, backpressure-aware sends (spec.md §4.5).
type Pipe struct {
	inner core.Pipe
	sendQ *queue.Queue
	opt   core.QosOptions

	closeOnce sync.Once
	closed    atomic.Bool
	drainDone chan struct{}
}

// New wraps inner in a QoS pipe per opt. Close on the returned pipe also
// closes inner once the send queue has drained (bounded by opt.Linger).
func New(inner core.Pipe, opt core.QosOptions) core.Pipe {
	p := &Pipe{
		inner:     inner,
		sendQ:     queue.New(opt.SndHwmBytes, opt.Backpressure, opt.TTL),
		opt:       opt,
		drainDone: make(chan struct{}),
	}
	go p.drainLoop()
	return p
}

func (p *Pipe) Send(msg message.Message, opt core.SendOptions) *status.Status {
	if p.closed.Load() {
		return status.Closedf("qos pipe closed")
	}
	enqueuedAt := time.Now()
	if st := p.sendQ.Push(msg, opt.Timeout); !st.Ok() {
		return st
	}
	currentSink().Observe("qos.send.enqueue", time.Since(enqueuedAt))
	return nil
}

func (p *Pipe) Recv(opt core.RecvOptions) (message.Message, *status.Status) {
	return p.inner.Recv(opt)
}

func (p *Pipe) Close() *status.Status {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		if p.opt.Linger > 0 {
			p.waitDrain(p.opt.Linger)
		}
		p.sendQ.Close()
		p.inner.Close()
		<-p.drainDone
	})
	return nil
}

// waitDrain blocks until the send queue empties or linger elapses, giving
// queued messages a chance to actually reach the wire before Close tears
// the inner pipe down (spec.md §4.5: "Linger bounds how long Close waits").
func (p *Pipe) waitDrain(linger time.Duration) {
	deadline := time.Now().Add(linger)
	for p.sendQ.SizeMsgs() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

// drainRetryBackoff bounds how long drainLoop sleeps between retries of a
// transient (non-disconnect) send failure before trying the same
// still-head-of-queue message again.
const drainRetryBackoff = 20 * time.Millisecond

// drainLoop is the sole writer into inner; it owns inner.Send end-to-end so
// the raw transport never sees concurrent writers (spec.md §5). On a
// transient failure it leaves the message at the head of the queue and
// retries after a short back-off (spec.md §4.5); only a disconnect-class
// failure (status.IsDisconnect) is treated as fatal, closing the pipe so
// further Send calls fail instead of queueing into a transport nothing is
// draining anymore.
func (p *Pipe) drainLoop() {
	defer close(p.drainDone)
	for {
		msg, st := p.sendQ.Pop(0)
		if !st.Ok() {
			return // queue closed
		}
		start := time.Now()
		werr := p.inner.Send(msg, core.SendOptions{})
		if werr.Ok() {
			currentSink().Observe("qos.send.dwell", time.Since(start))
			continue
		}
		if status.IsDisconnect(werr) {
			log.WithError(werr).Warn("qos drain: inner pipe disconnected, closing")
			p.closed.Store(true)
			return
		}
		log.WithError(werr).Warn("qos drain: transient send failure, retrying")
		p.sendQ.PushFront(msg)
		time.Sleep(drainRetryBackoff)
	}
}
