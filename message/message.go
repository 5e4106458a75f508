// Package message implements the immutable, reference-counted byte view
// duct passes between pipes. A Message never mutates after construction; Go's
// garbage collector is the "last sharer drops it" mechanism spec.md §3
// describes for the C++ shared_ptr backing store.
package message

// Message is an immutable view over a byte buffer. The zero value is a
// valid zero-length message.
type Message struct {
	backing []byte
}

// FromBytes copies data into a freshly allocated backing buffer.
func FromBytes(data []byte) Message {
	if len(data) == 0 {
		return Message{backing: []byte{}}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return Message{backing: cp}
}

// FromString copies s's bytes into a freshly allocated backing buffer.
func FromString(s string) Message {
	return FromBytes([]byte(s))
}

// FromOwnedBytes wraps data as a Message's backing buffer without copying.
// Callers must not retain or mutate data afterwards — ownership transfers
// to the Message, mirroring Message::from_bytes when the caller already
// holds a freshly allocated, otherwise-unshared buffer (e.g. wire.ReadFrame
// after io.ReadFull into a buffer nobody else can see).
func FromOwnedBytes(data []byte) Message {
	if data == nil {
		data = []byte{}
	}
	return Message{backing: data}
}

// Allocate returns a Message with a zeroed backing buffer of the given
// capacity, for callers that want to fill it in place before publishing —
// callers must not retain a reference to the slice returned by Bytes after
// constructing further messages from it, since Message is meant to be
// treated as immutable once shared.
func Allocate(size int) Message {
	return Message{backing: make([]byte, size)}
}

// Bytes returns the backing slice. Callers must not mutate it; Message
// provides no copy-on-write protection, matching the C++ original's raw
// pointer-to-first-byte access.
func (m Message) Bytes() []byte {
	return m.backing
}

// Size returns the length in bytes.
func (m Message) Size() int {
	return len(m.backing)
}
