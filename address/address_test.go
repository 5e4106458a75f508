package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/duct/status"
)

func TestParseTCPWithExplicitScheme(t *testing.T) {
	a, st := Parse("tcp://127.0.0.1:9000")
	require.True(t, st.Ok())
	assert.Equal(t, TCP, a.Scheme)
	assert.Equal(t, "127.0.0.1", a.Host)
	assert.Equal(t, uint16(9000), a.Port)
}

func TestParseBareHostPortDefaultsToTCP(t *testing.T) {
	a, st := Parse("localhost:8080")
	require.True(t, st.Ok())
	assert.Equal(t, TCP, a.Scheme)
	assert.Equal(t, uint16(8080), a.Port)
}

func TestParseTCPEmptyHostDefaultsLoopback(t *testing.T) {
	a, st := Parse("tcp://:7000")
	require.True(t, st.Ok())
	assert.Equal(t, "127.0.0.1", a.Host)
}

func TestParseShmName(t *testing.T) {
	a, st := Parse("shm://my-bus")
	require.True(t, st.Ok())
	assert.Equal(t, SHM, a.Scheme)
	assert.Equal(t, "my-bus", a.Name)
}

func TestParseUDSName(t *testing.T) {
	a, st := Parse("uds:///tmp/my.sock")
	require.True(t, st.Ok())
	assert.Equal(t, UDS, a.Scheme)
	assert.Equal(t, "/tmp/my.sock", a.Name)
}

func TestParseUnknownSchemeNotSupported(t *testing.T) {
	_, st := Parse("quic://host:1")
	require.Equal(t, status.NotSupported, st.Code())
}

func TestParseEmptyNameRejected(t *testing.T) {
	_, st := Parse("shm://")
	require.False(t, st.Ok())
}
