package shm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingSlotRoundTrip(t *testing.T) {
	mem := make([]byte, ShmSize)
	r := c2sView(mem)
	r.initMeta()

	payload := []byte("duct shared-memory ring")
	idx := r.Head() % SlotCount
	copy(r.slotData(idx), payload)
	r.setSlotLen(idx, uint32(len(payload)))
	r.SetHead(r.Head() + 1)

	readIdx := r.Tail() % SlotCount
	n := r.slotLen(readIdx)
	require.Equal(t, uint32(len(payload)), n)
	assert.True(t, bytes.Equal(r.slotData(readIdx)[:n], payload))
}

func TestC2SAndS2CDoNotOverlap(t *testing.T) {
	mem := make([]byte, ShmSize)
	c2s := c2sView(mem)
	s2c := s2cView(mem)
	c2s.initMeta()
	s2c.initMeta()

	c2s.SetHead(7)
	assert.Equal(t, uint32(0), s2c.Head(), "writing c2s's head must not perturb s2c's")
}

func TestInitMetaPrimesSemaphores(t *testing.T) {
	mem := make([]byte, ShmSize)
	r := c2sView(mem)
	r.initMeta()

	sem := semaphore{word: r.spacesWord()}
	st := sem.wait(1)
	require.True(t, st.Ok(), "spaces semaphore should start at SlotCount, not 0")

	items := semaphore{word: r.itemsWord()}
	st = items.wait(1)
	require.False(t, st.Ok(), "items semaphore should start at 0")
}
