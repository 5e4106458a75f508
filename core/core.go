// Package core holds the option structs, enums, and Pipe/Listener
// interfaces shared by every duct transport and wrapper. It exists
// separately from the root duct package so that internal implementation
// packages (queue, qos, reconnect, shm, stream) can depend on these types
// without an import cycle through the public API package.
package core

import (
	"time"

	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/status"
)

// BackpressurePolicy selects the behaviour a bounded queue applies once it
// reaches its high water mark (spec.md §4.4).
type BackpressurePolicy int

const (
	Block BackpressurePolicy = iota
	DropNew
	DropOld
	FailFast
)

func (p BackpressurePolicy) String() string {
	switch p {
	case Block:
		return "block"
	case DropNew:
		return "drop-new"
	case DropOld:
		return "drop-old"
	case FailFast:
		return "fail-fast"
	default:
		return "unknown"
	}
}

// Reliability is reserved; only AtMostOnce is implemented (spec.md §1).
type Reliability int

const (
	AtMostOnce Reliability = iota
	AtLeastOnce
)

// ConnectionState is the reconnect supervisor's state machine (spec.md §3).
type ConnectionState int

const (
	Connecting ConnectionState = iota
	Connected
	Disconnected
	Reconnecting
	ClosedState
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Reconnecting:
		return "reconnecting"
	case ClosedState:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionCallback observes reconnect state transitions. It may run on
// either the supervisor's worker goroutine or a caller goroutine and must
// not block or take a lock the supervisor itself might hold (spec.md §4.6).
type ConnectionCallback func(state ConnectionState, reason string)

// ReconnectPolicy configures the reconnect supervisor (spec.md §4.6, §6).
type ReconnectPolicy struct {
	// Enabled wraps the dial in a reconnect supervisor pipe when true.
	Enabled bool

	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	// MaxAttempts caps reconnect attempts per disconnect episode; 0 means
	// unbounded.
	MaxAttempts int

	// HeartbeatInterval is reserved: zero disables it. For tcp:// this is
	// intended to map to OS TCP keepalive settings (spec.md §6).
	HeartbeatInterval time.Duration
}

// DefaultReconnectPolicy mirrors spec.md §6's documented defaults.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		MaxAttempts:       0,
		HeartbeatInterval: 5 * time.Second,
	}
}

// QosOptions configures the bounded-queue QoS wrapper (spec.md §4.5, §6).
type QosOptions struct {
	// Enabled wraps the raw pipe in a QoS wrapper when true.
	Enabled bool

	SndHwmBytes  int
	RcvHwmBytes  int
	Backpressure BackpressurePolicy

	// TTL is the per-message max age; zero disables it.
	TTL time.Duration
	// Linger bounds how long Close waits for queued sends to drain; zero
	// means best-effort immediate close.
	Linger time.Duration

	Reliability Reliability
}

// DefaultQosOptions mirrors the original's 4 MiB high water marks.
func DefaultQosOptions() QosOptions {
	return QosOptions{
		SndHwmBytes:  4 * 1024 * 1024,
		RcvHwmBytes:  4 * 1024 * 1024,
		Backpressure: Block,
	}
}

// SendOptions configures a single Pipe.Send call.
type SendOptions struct {
	// Timeout bounds the call; zero blocks forever.
	Timeout time.Duration
}

// RecvOptions configures a single Pipe.Recv call.
type RecvOptions struct {
	Timeout time.Duration
}

// Pipe is the uniform capability every transport and wrapper implements
// (spec.md §1, §9): send, recv, close.
type Pipe interface {
	Send(msg message.Message, opt SendOptions) *status.Status
	Recv(opt RecvOptions) (message.Message, *status.Status)
	Close() *status.Status
}

// Listener accepts inbound pipes.
type Listener interface {
	Accept() (Pipe, *status.Status)
	// LocalAddress returns the effective bound address, useful for
	// ephemeral-port TCP listeners. Returns NotSupported where not
	// applicable.
	LocalAddress() (string, *status.Status)
	Close() *status.Status
}

// DialOptions configures Dial (spec.md §6).
type DialOptions struct {
	// Timeout bounds a single connection attempt; zero uses the transport
	// default. With ReconnectPolicy.Enabled, a timeout of 0 is interpreted
	// per-attempt as an implementation-defined sensible default so close()
	// remains observable (spec.md §5).
	Timeout time.Duration

	Qos       QosOptions
	Reconnect ReconnectPolicy

	OnStateChange ConnectionCallback
}

// ListenOptions configures Listen (spec.md §6).
type ListenOptions struct {
	// Qos is currently unused by the listener itself; accepted sessions do
	// not automatically wrap in QoS (spec.md §6).
	Qos QosOptions

	Backlog int
}

// DefaultListenOptions mirrors the original's backlog of 128.
func DefaultListenOptions() ListenOptions {
	return ListenOptions{Backlog: 128}
}

// DialAttemptDefault is the sensible default used for a reconnect-enabled
// dial's per-attempt timeout when the caller leaves DialOptions.Timeout at
// zero (spec.md §5).
const DialAttemptDefault = 5 * time.Second
