package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/status"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := message.FromString("hello duct")

	st := WriteFrame(&buf, msg, FlagReliable)
	require.True(t, st.Ok(), "write: %v", st)

	got, st := ReadFrame(&buf)
	require.True(t, st.Ok(), "read: %v", st)
	assert.Equal(t, msg.Bytes(), got.Bytes())
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	msg := message.Allocate(MaxFramePayload + 1)

	st := WriteFrame(&buf, msg, 0)
	require.False(t, st.Ok())
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	raw := make([]byte, HeaderLen)
	EncodeHeader(Header{Magic: 0xDEADBEEF, Version: protocolVersion, HeaderLen: HeaderLen}, raw)

	_, st := DecodeHeader(raw)
	require.False(t, st.Ok())
}

func TestDecodeHeaderRejectsOversizedPayloadLen(t *testing.T) {
	raw := make([]byte, HeaderLen)
	EncodeHeader(Header{Magic: magic, Version: protocolVersion, HeaderLen: HeaderLen, PayloadLen: MaxFramePayload + 1}, raw)

	_, st := DecodeHeader(raw)
	require.False(t, st.Ok())
}

func TestReadFrameOnClosedStreamReturnsClosed(t *testing.T) {
	var buf bytes.Buffer // empty: immediate EOF

	_, st := ReadFrame(&buf)
	require.Equal(t, status.Closed, st.Code())
}
