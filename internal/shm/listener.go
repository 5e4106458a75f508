package shm

import (
	"io"
	"net"
	"os"
	"sync"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/internal/ductlog"
	"github.com/cuihairu/duct/status"
)

var log = ductlog.For("shm")

// connIDLen is the wire length of a connection id on the bootstrap socket:
// 16 hex characters (8 bytes of entropy), matching original_source's
// random_conn_id_hex16.
const connIDLen = 16

// listener accepts shm:// pipes (spec.md §4.2, §6). Per the bootstrap
// socket's purpose — exchanging only a connection id so both peers open
// the same shared region — Accept is strictly serial: one connection id
// exchange, one shared-memory region opened, at a time.
type listener struct {
	busName string
	n       names
	ln      net.Listener

	mu     sync.Mutex
	closed bool
}

// Listen binds the bootstrap Unix-domain socket for bus name. Any stale
// socket file from a crashed prior listener is removed first, the same
// bind-over-stale-path pattern markrussinovich-grpc-go-shmem's own
// listener setup uses.
func Listen(name string, _ core.ListenOptions) (core.Listener, *status.Status) {
	n := makeNames(name, "0000000000000000")
	os.Remove(n.bootstrapPath)

	ln, err := net.Listen("unix", n.bootstrapPath)
	if err != nil {
		return nil, status.IoErrorf("shm listen %s: %v", n.bootstrapPath, err)
	}
	log.WithField("bus", name).Info("shm listener bound")
	return &listener{busName: name, n: n, ln: ln}, nil
}

func (l *listener) Accept() (core.Pipe, *status.Status) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, status.IoErrorf("shm accept: %v", err)
	}
	defer conn.Close()

	var idBuf [connIDLen]byte
	if _, err := io.ReadFull(conn, idBuf[:]); err != nil {
		return nil, status.IoErrorf("shm accept: read connection id: %v", err)
	}
	connID := string(idBuf[:])
	n := makeNames(l.busName, connID)

	// The dialer already created this segment before it ever wrote connID
	// to the bootstrap socket (spec.md §4.2), so Accept only ever opens it
	// non-owning — it never creates, and never unlinks it on close.
	seg, err := openSegment(n.shmPath)
	if err != nil {
		return nil, status.IoErrorf("shm accept: open segment: %v", err)
	}

	return newPipe(seg, true), nil
}

func (l *listener) LocalAddress() (string, *status.Status) {
	return "shm://" + l.busName, nil
}

func (l *listener) Close() *status.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.ln.Close()
	os.Remove(l.n.bootstrapPath)
	return nil
}
