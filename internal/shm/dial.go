package shm

import (
	"net"
	"time"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/status"
)

// Dial connects to a shm:// bus. Per spec.md §3/§4.2 (and
// original_source's shm_dial, which calls create_resources before it ever
// touches the bootstrap socket) the dialer creates and owns the shared
// region: it generates a fresh connection id, creates the shared-memory
// segment those names point to, then writes the connection id over the
// bootstrap socket so the accepting side knows which segment to open.
// Because the segment is created before the socket round trip even starts,
// the listener can never observe the connection id before the segment
// backing it exists — no ack or retry is needed.
func Dial(name string, opt core.DialOptions) (core.Pipe, *status.Status) {
	connID, err := newConnID()
	if err != nil {
		return nil, status.IoErrorf("shm dial: generate connection id: %v", err)
	}
	n := makeNames(name, connID)

	seg, err := createSegment(n.shmPath)
	if err != nil {
		return nil, status.IoErrorf("shm dial: create segment: %v", err)
	}

	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = core.DialAttemptDefault
	}

	conn, derr := net.DialTimeout("unix", n.bootstrapPath, timeout)
	if derr != nil {
		seg.close()
		return nil, status.IoErrorf("shm dial %s: %v", n.bootstrapPath, derr)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(connID)); err != nil {
		seg.close()
		return nil, status.IoErrorf("shm dial: write connection id: %v", err)
	}

	return newPipe(seg, false), nil
}
