// Package duct implements a message-oriented point-to-point pipe library
// over shared-memory, local-socket, and TCP transports, with framing, QoS
// backpressure, and automatic reconnect layered on top (see SPEC_FULL.md).
//
// The public surface is small: Listen and Dial parse a scheme-qualified
// address (spec.md §6) and return a Pipe/Listener composed according to
// spec.md §4.7 — raw transport, optionally wrapped in a QoS pipe, optionally
// wrapped again in a reconnect supervisor.
package duct

import (
	"github.com/cuihairu/duct/address"
	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/internal/ductlog"
	"github.com/cuihairu/duct/internal/shm"
	"github.com/cuihairu/duct/internal/stream"
	"github.com/cuihairu/duct/qos"
	"github.com/cuihairu/duct/reconnect"
	"github.com/cuihairu/duct/status"
)

// Re-exported so callers never need to import the core package directly.
type (
	BackpressurePolicy = core.BackpressurePolicy
	Reliability        = core.Reliability
	ConnectionState    = core.ConnectionState
	ConnectionCallback = core.ConnectionCallback
	ReconnectPolicy    = core.ReconnectPolicy
	QosOptions         = core.QosOptions
	SendOptions        = core.SendOptions
	RecvOptions        = core.RecvOptions
	Pipe               = core.Pipe
	Listener           = core.Listener
	DialOptions        = core.DialOptions
	ListenOptions      = core.ListenOptions
)

const (
	Block    = core.Block
	DropNew  = core.DropNew
	DropOld  = core.DropOld
	FailFast = core.FailFast

	AtMostOnce  = core.AtMostOnce
	AtLeastOnce = core.AtLeastOnce

	Connecting   = core.Connecting
	Connected    = core.Connected
	Disconnected = core.Disconnected
	Reconnecting = core.Reconnecting
	ClosedState  = core.ClosedState
)

var (
	DefaultReconnectPolicy = core.DefaultReconnectPolicy
	DefaultQosOptions      = core.DefaultQosOptions
	DefaultListenOptions   = core.DefaultListenOptions
)

var log = ductlog.For("duct")

// Listen parses address (spec.md §6) and creates a listener for the
// matching transport. Unsupported schemes return NotSupported.
func Listen(addr string, opt ListenOptions) (Listener, *status.Status) {
	parsed, st := address.Parse(addr)
	if !st.Ok() {
		return nil, st
	}
	if opt.Backlog <= 0 {
		opt.Backlog = core.DefaultListenOptions().Backlog
	}

	switch parsed.Scheme {
	case address.SHM:
		return shm.Listen(parsed.Name, opt)
	case address.UDS:
		return stream.ListenUnix(parsed.Name, opt)
	case address.Pipe:
		return stream.ListenUnix(stream.PipePath(parsed.Name), opt)
	case address.TCP:
		return stream.ListenTCP(parsed.Host, parsed.Port, opt)
	default:
		return nil, status.NotSupportedf("unsupported scheme: %s", parsed.Scheme)
	}
}

// Dial parses address and connects, composing wrappers in the order raw
// transport -> QoS (if enabled) -> reconnect supervisor (if enabled),
// exactly as spec.md §4.7 specifies.
func Dial(addr string, opt DialOptions) (Pipe, *status.Status) {
	parsed, st := address.Parse(addr)
	if !st.Ok() {
		return nil, st
	}

	if opt.Reconnect.Enabled {
		attemptTimeout := opt.Timeout
		if attemptTimeout <= 0 {
			attemptTimeout = core.DialAttemptDefault
		}
		dial := func() (Pipe, *status.Status) {
			return dialRaw(parsed, DialOptions{Timeout: attemptTimeout, Qos: opt.Qos})
		}
		p := reconnect.New(dial, opt.Reconnect, opt.OnStateChange)
		return p, nil
	}

	return dialRaw(parsed, opt)
}

// dialRaw performs a single raw-transport connect, then wraps in QoS if
// requested. It never wraps in reconnect — that composition happens once,
// in Dial, around a closure that calls dialRaw repeatedly.
func dialRaw(parsed address.Address, opt DialOptions) (Pipe, *status.Status) {
	var (
		p  Pipe
		st *status.Status
	)
	switch parsed.Scheme {
	case address.SHM:
		p, st = shm.Dial(parsed.Name, opt)
	case address.UDS:
		p, st = stream.DialUnix(parsed.Name, opt)
	case address.Pipe:
		p, st = stream.DialUnix(stream.PipePath(parsed.Name), opt)
	case address.TCP:
		p, st = stream.DialTCP(parsed.Host, parsed.Port, opt)
	default:
		return nil, status.NotSupportedf("unsupported scheme: %s", parsed.Scheme)
	}
	if !st.Ok() {
		return nil, st
	}
	if opt.Qos.Enabled {
		p = qos.New(p, opt.Qos)
	}
	return p, nil
}
