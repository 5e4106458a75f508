package stream

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/message"
)

func TestTCPListenDialSendRecvRoundTrip(t *testing.T) {
	ln, st := ListenTCP("127.0.0.1", 0, core.DefaultListenOptions())
	require.True(t, st.Ok())
	defer ln.Close()

	addr, st := ln.LocalAddress()
	require.True(t, st.Ok())
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	serverMsgCh := make(chan message.Message, 1)
	go func() {
		srv, st := ln.Accept()
		if !st.Ok() {
			return
		}
		defer srv.Close()
		msg, st := srv.Recv(core.RecvOptions{Timeout: 2 * time.Second})
		if st.Ok() {
			serverMsgCh <- msg
		}
	}()

	client, st := DialTCP(host, uint16(port), core.DialOptions{Timeout: time.Second})
	require.True(t, st.Ok())
	defer client.Close()

	require.True(t, client.Send(message.FromString("ping"), core.SendOptions{}).Ok())

	select {
	case got := <-serverMsgCh:
		assert.Equal(t, "ping", string(got.Bytes()))
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestUnixListenDialRoundTrip(t *testing.T) {
	path := PipePath("stream-test-" + strconv.FormatInt(time.Now().UnixNano(), 10))
	ln, st := ListenUnix(path, core.DefaultListenOptions())
	require.True(t, st.Ok())
	defer ln.Close()

	serverMsgCh := make(chan message.Message, 1)
	go func() {
		srv, st := ln.Accept()
		if !st.Ok() {
			return
		}
		defer srv.Close()
		msg, st := srv.Recv(core.RecvOptions{Timeout: 2 * time.Second})
		if st.Ok() {
			serverMsgCh <- msg
		}
	}()

	client, st := DialUnix(path, core.DialOptions{Timeout: time.Second})
	require.True(t, st.Ok())
	defer client.Close()

	require.True(t, client.Send(message.FromString("uds ping"), core.SendOptions{}).Ok())

	select {
	case got := <-serverMsgCh:
		assert.Equal(t, "uds ping", string(got.Bytes()))
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}
}
