package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	m := FromBytes(src)
	src[0] = 9
	assert.Equal(t, byte(1), m.Bytes()[0], "FromBytes must not alias the caller's slice")
}

func TestFromOwnedBytesDoesNotCopy(t *testing.T) {
	src := []byte{1, 2, 3}
	m := FromOwnedBytes(src)
	assert.Same(t, &src[0], &m.Bytes()[0])
}

func TestAllocateSize(t *testing.T) {
	m := Allocate(128)
	assert.Equal(t, 128, m.Size())
}

func TestZeroValueMessage(t *testing.T) {
	var m Message
	assert.Equal(t, 0, m.Size())
}
