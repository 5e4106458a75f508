package shm

import (
	"github.com/cuihairu/duct/core"
	"github.com/cuihairu/duct/message"
	"github.com/cuihairu/duct/status"
)

// Send implements core.Pipe.
func (p *pipe) Send(msg message.Message, opt core.SendOptions) *status.Status {
	return p.sendBytes(msg.Bytes(), opt.Timeout)
}

// Recv implements core.Pipe.
func (p *pipe) Recv(opt core.RecvOptions) (message.Message, *status.Status) {
	data, st := p.recvBytes(opt.Timeout)
	if !st.Ok() {
		return message.Message{}, st
	}
	return message.FromOwnedBytes(data), nil
}

// Close implements core.Pipe.
func (p *pipe) Close() *status.Status {
	return p.closePipe()
}
