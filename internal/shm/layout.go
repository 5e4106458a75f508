// Package shm implements the shared-memory ring transport of spec.md §4.2:
// two single-producer/single-consumer fixed-slot rings in a memory-mapped
// region, paired with counting semaphores for blocking on full/empty, and a
// bootstrap Unix-domain socket used only for connection setup.
//
// The wire layout is grounded in markrussinovich-grpc-go-shmem's shared-
// memory segment (shm_segment.go's SegmentHeader/RingHeader pattern: a
// struct mapped straight over the mmap'd bytes via unsafe.Pointer
// arithmetic, with atomic.Load/Store accessors for every field another
// process might touch concurrently) — generalized from that variable-
// length byte-stream ring into the fixed 64-slot/64KiB-slot ring spec.md
// §3/§6 specifies.
package shm

import (
	"sync/atomic"
	"unsafe"
)

const (
	// SlotPayloadMax is the maximum bytes one ring slot can carry,
	// matching the wire frame's MaxFramePayload (spec.md §3).
	SlotPayloadMax = 64 * 1024
	// SlotCount is the number of fixed slots per ring (spec.md §3): 64
	// slots * 64 KiB = 4 MiB payload capacity per direction.
	SlotCount = 64

	slotHeaderSize = 8 // len uint32 + 4 bytes padding
	slotSize       = slotHeaderSize + SlotPayloadMax

	// ringMetaSize is cache-line aligned (spec.md §3: "a cache-line-aligned
	// metadata block"), holding head, tail, and the two semaphore words
	// backing that ring's capacity accounting (see sem.go).
	ringMetaSize = 64
	ringSize     = ringMetaSize + SlotCount*slotSize

	// ShmSize is the total mapped region size: client->server ring then
	// server->client ring (spec.md §6).
	ShmSize = 2 * ringSize
)

// Metadata word offsets within a ring's ringMetaSize header.
const (
	offHead        = 0
	offTail        = 4
	offItemsSem    = 8
	offSpacesSem   = 12
	offClosedFlag  = 16
)

// ringView is a zero-copy accessor over one ring's region of the mmap'd
// segment. It holds no state of its own beyond the backing slice and a
// byte offset, the same shape as markrussinovich-grpc-go-shmem's own
// ringView (ringbuf.go / shm_segment.go).
type ringView struct {
	mem    []byte
	offset int
}

func (r ringView) wordPtr(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[r.offset+off]))
}

func (r ringView) Head() uint32         { return atomic.LoadUint32(r.wordPtr(offHead)) }
func (r ringView) SetHead(v uint32)     { atomic.StoreUint32(r.wordPtr(offHead), v) }
func (r ringView) Tail() uint32         { return atomic.LoadUint32(r.wordPtr(offTail)) }
func (r ringView) SetTail(v uint32)     { atomic.StoreUint32(r.wordPtr(offTail), v) }
func (r ringView) Closed() bool         { return atomic.LoadUint32(r.wordPtr(offClosedFlag)) != 0 }
func (r ringView) SetClosed(v bool) {
	var u uint32
	if v {
		u = 1
	}
	atomic.StoreUint32(r.wordPtr(offClosedFlag), u)
}

// itemsWord/spacesWord give this ring's two counting-semaphore words (spec.md
// §3/§4.2): items starts at 0, spaces starts at SlotCount.
func (r ringView) itemsWord() *uint32  { return r.wordPtr(offItemsSem) }
func (r ringView) spacesWord() *uint32 { return r.wordPtr(offSpacesSem) }

func (r ringView) slotOffset(idx uint32) int {
	return r.offset + ringMetaSize + int(idx)*slotSize
}

func (r ringView) slotLen(idx uint32) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&r.mem[r.slotOffset(idx)])))
}

func (r ringView) setSlotLen(idx uint32, n uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&r.mem[r.slotOffset(idx)])), n)
}

func (r ringView) slotData(idx uint32) []byte {
	base := r.slotOffset(idx) + slotHeaderSize
	return r.mem[base : base+SlotPayloadMax : base+SlotPayloadMax]
}

// initMeta zero-initializes a freshly created ring's metadata and primes
// its spaces semaphore to SlotCount (spec.md §3: "spaces (initial 64)").
func (r ringView) initMeta() {
	r.SetHead(0)
	r.SetTail(0)
	r.SetClosed(false)
	atomic.StoreUint32(r.itemsWord(), 0)
	atomic.StoreUint32(r.spacesWord(), SlotCount)
}

// c2sView/s2cView locate the two rings within the mapped segment (spec.md
// §6: "client→server then server→client").
func c2sView(mem []byte) ringView { return ringView{mem: mem, offset: 0} }
func s2cView(mem []byte) ringView { return ringView{mem: mem, offset: ringSize} }
