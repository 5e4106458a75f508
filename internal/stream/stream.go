// Package stream implements the tcp://, uds://, and pipe:// transports of
// spec.md §4.3: a core.Pipe/core.Listener pair over net.Conn, framed with
// the wire package's fixed 16-byte header. Local-socket and named-pipe
// addressing both resolve to net.Listen("unix", ...)/net.Dial("unix", ...)
// on unix platforms (spec.md §6); pipe:// additionally namespaces its path
// under a fixed directory so a bare name doesn't collide with an unrelated
// file.
//
// Grounded in billm-baaaht's pkg/ipc/socket.go: remove-stale-path-then-
// net.Listen("unix", ...) setup, deadline-bounded reads/writes, and
// close-removes-the-socket-file teardown.
package stream

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/internal/ductlog"
	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/status"
	"github.com/cuihairu/duct/wire"
)

var log = ductlog.For("stream")

// PipePath namespaces a pipe:// name under a fixed directory so it doesn't
// collide with an arbitrary filesystem path the way a bare uds:// path
// could (spec.md §6: pipe:// is meant for named, short identifiers).
func PipePath(name string) string {
	return filepath.Join(os.TempDir(), "duct_pipe_"+name+".sock")
}

// connPipe adapts a net.Conn to core.Pipe using wire framing.
type connPipe struct {
	conn net.Conn

	mu        sync.Mutex
	closeOnce sync.Once
}

func newConnPipe(conn net.Conn) *connPipe {
	return &connPipe{conn: conn}
}

func (p *connPipe) Send(msg message.Message, opt core.SendOptions) *status.Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	if opt.Timeout > 0 {
		p.conn.SetWriteDeadline(time.Now().Add(opt.Timeout))
		defer p.conn.SetWriteDeadline(time.Time{})
	}
	return wire.WriteFrame(p.conn, msg, wire.FlagReliable)
}

func (p *connPipe) Recv(opt core.RecvOptions) (message.Message, *status.Status) {
	if opt.Timeout > 0 {
		p.conn.SetReadDeadline(time.Now().Add(opt.Timeout))
		defer p.conn.SetReadDeadline(time.Time{})
	}
	return wire.ReadFrame(p.conn)
}

func (p *connPipe) Close() *status.Status {
	var st *status.Status
	p.closeOnce.Do(func() {
		if err := p.conn.Close(); err != nil {
			st = status.IoErrorf("close: %v", err)
		}
	})
	return st
}

// netListener adapts a net.Listener to core.Listener, optionally removing
// a backing socket file on Close (uds/pipe schemes only).
type netListener struct {
	ln        net.Listener
	cleanup   string // path to remove on Close, empty for tcp

	mu     sync.Mutex
	closed bool
}

func (l *netListener) Accept() (core.Pipe, *status.Status) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, status.IoErrorf("accept: %v", err)
	}
	return newConnPipe(conn), nil
}

func (l *netListener) LocalAddress() (string, *status.Status) {
	return l.ln.Addr().String(), nil
}

func (l *netListener) Close() *status.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	err := l.ln.Close()
	if l.cleanup != "" {
		os.Remove(l.cleanup)
	}
	if err != nil {
		return status.IoErrorf("close listener: %v", err)
	}
	return nil
}

// ListenTCP binds a tcp:// listener. An empty host binds all interfaces;
// addresses that went through address.Parse never have an empty host,
// since Parse defaults it to 127.0.0.1.
func ListenTCP(host string, port uint16, opt core.ListenOptions) (core.Listener, *status.Status) {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, status.IoErrorf("tcp listen %s: %v", addr, err)
	}
	log.WithField("addr", ln.Addr().String()).Info("tcp listener bound")
	return &netListener{ln: ln}, nil
}

// DialTCP connects a tcp:// pipe.
func DialTCP(host string, port uint16, opt core.DialOptions) (core.Pipe, *status.Status) {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = core.DialAttemptDefault
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, status.IoErrorf("tcp dial %s: %v", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	return newConnPipe(conn), nil
}

// ListenUnix binds a uds:// or pipe:// listener at path, removing any
// stale socket file left by a prior process first (billm-baaaht's
// NewSocket does the same before calling net.Listen).
func ListenUnix(path string, opt core.ListenOptions) (core.Listener, *status.Status) {
	if _, err := os.Stat(path); err == nil {
		os.Remove(path)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, status.IoErrorf("unix listen %s: %v", path, err)
	}
	log.WithField("path", path).Info("unix listener bound")
	return &netListener{ln: ln, cleanup: path}, nil
}

// DialUnix connects a uds:// or pipe:// pipe.
func DialUnix(path string, opt core.DialOptions) (core.Pipe, *status.Status) {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = core.DialAttemptDefault
	}
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, status.IoErrorf("unix dial %s: %v", path, err)
	}
	return newConnPipe(conn), nil
}
