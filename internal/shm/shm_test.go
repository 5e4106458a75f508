//go:build unix

package shm

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/status"
)

func TestShmListenDialSendRecvRoundTrip(t *testing.T) {
	busName := "duct-test-" + strconv.FormatInt(time.Now().UnixNano(), 10)

	ln, st := Listen(busName, core.DefaultListenOptions())
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

	client, st := Dial(busName, core.DialOptions{Timeout: 2 * time.Second})
	require.True(t, st.Ok())
	defer client.Close()

	require.True(t, client.Send(message.FromString("shm ping"), core.SendOptions{}).Ok())

	select {
	case got := <-serverMsgCh:
		assert.Equal(t, "shm ping", string(got.Bytes()))
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the shm message")
	}
}

func TestShmPipeRejectsOversizedMessage(t *testing.T) {
	busName := "duct-test-oversize-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	ln, st := Listen(busName, core.DefaultListenOptions())
	require.True(t, st.Ok())
	defer ln.Close()

	go func() {
		srv, st := ln.Accept()
		if st.Ok() {
			defer srv.Close()
			srv.Recv(core.RecvOptions{Timeout: 2 * time.Second})
		}
	}()

	client, st := Dial(busName, core.DialOptions{Timeout: 2 * time.Second})
	require.True(t, st.Ok())
	defer client.Close()

	oversized := message.Allocate(SlotPayloadMax + 1)
	st = client.Send(oversized, core.SendOptions{})
	assert.False(t, st.Ok())
}

func TestShmCloseUnblocksPendingRecv(t *testing.T) {
	busName := "duct-test-close-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	ln, st := Listen(busName, core.DefaultListenOptions())
	require.True(t, st.Ok())
	defer ln.Close()

	serverDone := make(chan *status.Status, 1)
	acceptedCh := make(chan core.Pipe, 1)
	go func() {
		srv, st := ln.Accept()
		if !st.Ok() {
			return
		}
		acceptedCh <- srv
		_, rst := srv.Recv(core.RecvOptions{})
		serverDone <- rst
	}()

	client, st := Dial(busName, core.DialOptions{Timeout: 2 * time.Second})
	require.True(t, st.Ok())
	defer client.Close()

	srv := <-acceptedCh
	time.Sleep(10 * time.Millisecond)
	require.True(t, srv.Close().Ok())

	select {
	case rst := <-serverDone:
		assert.False(t, rst.Ok())
	case <-time.After(2 * time.Second):
		t.Fatal("Close never unblocked the pending Recv")
	}
}
