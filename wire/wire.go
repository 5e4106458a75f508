// Package wire implements the duct frame codec: the fixed 16-byte header of
// spec.md §3 and the write_frame/read_frame contract of spec.md §4.1.
package wire

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/status"
)

const (
	// HeaderLen is the fixed on-wire header size in bytes.
	HeaderLen = 16
	// MaxFramePayload is the single-frame payload ceiling (spec.md §3/§6).
	MaxFramePayload = 64 * 1024

	magic          uint32 = 0x44554354 // "DUCT"
	protocolVersion uint16 = 1
)

// Frame flag bits (spec.md §3). Reliable/Frag are reserved: duct refuses to
// honour either until at-least-once delivery and fragmentation are
// implemented (spec.md §1 non-goals, §9 design notes).
const (
	FlagReliable uint32 = 1 << 0
	FlagFrag     uint32 = 1 << 4
)

// Header is the decoded form of the 16-byte frame header.
type Header struct {
	Magic      uint32
	Version    uint16
	HeaderLen  uint16
	PayloadLen uint32
	Flags      uint32
}

// EncodeHeader writes h into out in network byte order. out must be at
// least HeaderLen bytes.
func EncodeHeader(h Header, out []byte) {
	binary.BigEndian.PutUint32(out[0:4], h.Magic)
	binary.BigEndian.PutUint16(out[4:6], h.Version)
	binary.BigEndian.PutUint16(out[6:8], h.HeaderLen)
	binary.BigEndian.PutUint32(out[8:12], h.PayloadLen)
	binary.BigEndian.PutUint32(out[12:16], h.Flags)
}

// DecodeHeader validates and decodes a 16-byte header. It enforces the
// invariants of spec.md §3: magic, version, header_len, and payload_len
// ceiling.
func DecodeHeader(in []byte) (Header, *status.Status) {
	if len(in) < HeaderLen {
		return Header{}, status.ProtocolErrorf("short header: %d bytes", len(in))
	}
	h := Header{
		Magic:      binary.BigEndian.Uint32(in[0:4]),
		Version:    binary.BigEndian.Uint16(in[4:6]),
		HeaderLen:  binary.BigEndian.Uint16(in[6:8]),
		PayloadLen: binary.BigEndian.Uint32(in[8:12]),
		Flags:      binary.BigEndian.Uint32(in[12:16]),
	}
	if h.Magic != magic {
		return Header{}, status.ProtocolErrorf("bad magic: %#x", h.Magic)
	}
	if h.Version != protocolVersion {
		return Header{}, status.ProtocolErrorf("unsupported version: %d", h.Version)
	}
	if h.HeaderLen != HeaderLen {
		return Header{}, status.ProtocolErrorf("bad header_len: %d", h.HeaderLen)
	}
	if h.PayloadLen > MaxFramePayload {
		return Header{}, status.ProtocolErrorf("payload too large (frame): %d", h.PayloadLen)
	}
	return h, nil
}

// WriteFrame writes a header followed by msg's payload to w. w must retry
// internally on short writes (io.Writer's contract already guarantees
// Write either consumes the full buffer or returns an error, so no
// interrupted-write retry is needed here; the stream transport passes a
// net.Conn, whose Write already retries interrupted system calls itself).
func WriteFrame(w io.Writer, msg message.Message, flags uint32) *status.Status {
	if msg.Size() > MaxFramePayload {
		return status.InvalidArgumentf("message too large; enable fragmentation (todo)")
	}
	h := Header{
		Magic:      magic,
		Version:    protocolVersion,
		HeaderLen:  HeaderLen,
		PayloadLen: uint32(msg.Size()),
		Flags:      flags,
	}
	var hdr [HeaderLen]byte
	EncodeHeader(h, hdr[:])
	if _, err := w.Write(hdr[:]); err != nil {
		return classifyWriteErr(err)
	}
	if msg.Size() == 0 {
		return nil
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return classifyWriteErr(err)
	}
	return nil
}

// ReadFrame reads one full frame from r, validating the header and
// returning a freshly allocated Message of exactly payload_len bytes.
func ReadFrame(r io.Reader) (message.Message, *status.Status) {
	var hdr [HeaderLen]byte
	if err := readFull(r, hdr[:]); err != nil {
		return message.Message{}, classifyReadErr(err)
	}
	h, st := DecodeHeader(hdr[:])
	if !st.Ok() {
		return message.Message{}, st
	}
	if h.PayloadLen == 0 {
		return message.FromBytes(nil), nil
	}
	buf := make([]byte, h.PayloadLen)
	if err := readFull(r, buf); err != nil {
		return message.Message{}, classifyReadErr(err)
	}
	return message.FromOwnedBytes(buf), nil
}

// readFull reads exactly len(buf) bytes. It returns io.EOF for a clean EOF
// at the very start (peer closed between frames) and io.ErrUnexpectedEOF
// for a truncated read; classifyReadErr maps both to Closed.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

func classifyReadErr(err error) *status.Status {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return status.Closedf("peer closed")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return status.Closedf("peer closed mid-frame")
	}
	return status.IoErrorf("%s", err.Error())
}

func classifyWriteErr(err error) *status.Status {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.ErrClosedPipe) {
		return status.Closedf("peer closed")
	}
	return status.IoErrorf("%s", err.Error())
}
