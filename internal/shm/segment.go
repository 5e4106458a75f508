package shm

import (
	"os"
	"sync"
	"time"

	"github.com/cuihairu/duct/status"
)

// segment owns one mapped shared-memory region and the file backing it.
// Grounded in markrussinovich-grpc-go-shmem's Segment (shm_segment.go): a
// small struct bundling the open file, the mapped bytes, and ring views
// into it.
type segment struct {
	file *os.File
	mem  []byte
	path string

	c2s ringView
	s2c ringView

	owner bool // true for the side that created (and must remove) the file
}

// createSegment creates and maps a fresh shared-memory region, priming both
// rings' metadata. Per spec.md §3/§4.2 the dialer is always the creator and
// owner (original_source's shm_dial calls create_resources before it ever
// opens the bootstrap socket) — Accept only ever opens what Dial already
// created, via openSegment below.
func createSegment(path string) (*segment, error) {
	file, mem, err := createMapping(path)
	if err != nil {
		return nil, err
	}
	seg := &segment{file: file, mem: mem, path: path, owner: true}
	seg.c2s = c2sView(mem)
	seg.s2c = s2cView(mem)
	seg.c2s.initMeta()
	seg.s2c.initMeta()
	return seg, nil
}

// openSegment maps an already-created shared-memory region without taking
// ownership of it; only the dialer that created it (createSegment) unlinks
// the backing file on close.
func openSegment(path string) (*segment, error) {
	file, mem, err := openMapping(path)
	if err != nil {
		return nil, err
	}
	seg := &segment{file: file, mem: mem, path: path}
	seg.c2s = c2sView(mem)
	seg.s2c = s2cView(mem)
	return seg, nil
}

func (s *segment) close() {
	unmap(s.mem)
	s.file.Close()
	if s.owner {
		os.Remove(s.path)
	}
}

// pipe implements core.Pipe over a segment's two rings. One side always
// writes c2s and reads s2c (the dialer); the other writes s2c and reads
// c2s (the accepted side) — spec.md §6: "client->server then
// server->client".
type pipe struct {
	seg      *segment
	writeRing ringView
	readRing  ringView

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

func newPipe(seg *segment, isServer bool) *pipe {
	p := &pipe{seg: seg}
	if isServer {
		p.writeRing = seg.s2c
		p.readRing = seg.c2s
	} else {
		p.writeRing = seg.c2s
		p.readRing = seg.s2c
	}
	return p
}

func (p *pipe) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *pipe) spacesSem(r ringView) semaphore {
	return semaphore{word: r.spacesWord(), closed: p.isClosed}
}

func (p *pipe) itemsSem(r ringView) semaphore {
	return semaphore{word: r.itemsWord(), closed: p.isClosed}
}

func (p *pipe) sendBytes(data []byte, timeout time.Duration) *status.Status {
	if p.isClosed() || p.writeRing.Closed() {
		return status.Closedf("shm pipe closed")
	}
	if len(data) > SlotPayloadMax {
		return status.InvalidArgumentf("message of %d bytes exceeds shm slot capacity %d", len(data), SlotPayloadMax)
	}

	if st := p.spacesSem(p.writeRing).wait(timeout); !st.Ok() {
		return st
	}
	if p.isClosed() || p.writeRing.Closed() {
		return status.Closedf("shm pipe closed")
	}

	idx := p.writeRing.Head() % SlotCount
	copy(p.writeRing.slotData(idx), data)
	p.writeRing.setSlotLen(idx, uint32(len(data)))
	p.writeRing.SetHead(p.writeRing.Head() + 1)
	p.itemsSem(p.writeRing).post()
	return nil
}

func (p *pipe) recvBytes(timeout time.Duration) ([]byte, *status.Status) {
	if p.isClosed() && p.readRing.Tail() == p.readRing.Head() {
		return nil, status.Closedf("shm pipe closed")
	}

	if st := p.itemsSem(p.readRing).wait(timeout); !st.Ok() {
		if p.isClosed() {
			return nil, status.Closedf("shm pipe closed")
		}
		return nil, st
	}

	idx := p.readRing.Tail() % SlotCount
	n := p.readRing.slotLen(idx)
	out := make([]byte, n)
	copy(out, p.readRing.slotData(idx)[:n])
	p.readRing.SetTail(p.readRing.Tail() + 1)
	p.spacesSem(p.readRing).post()
	return out, nil
}

func (p *pipe) closePipe() *status.Status {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		p.writeRing.SetClosed(true)
		p.readRing.SetClosed(true)
		p.itemsSem(p.writeRing).wake()
		p.spacesSem(p.writeRing).wake()
		p.itemsSem(p.readRing).wake()
		p.spacesSem(p.readRing).wake()

		p.seg.close()
	})
	return nil
}
