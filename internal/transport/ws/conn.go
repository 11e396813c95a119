package ws

import (
	"errors"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"bombarena.dev/internal/protocol"
)

var errConnClosed = errors.New("ws: connection closed")

// clientConn is the session-facing side of one socket. Send never blocks:
// when the queue is full the oldest frame is dropped, since every snapshot
// is complete on its own.
type clientConn struct {
	format protocol.Format
	ch     chan []byte
	closed atomic.Bool
}

func newClientConn(format protocol.Format, queue int) *clientConn {
	if queue <= 0 {
		queue = 16
	}
	return &clientConn{format: format, ch: make(chan []byte, queue)}
}

func (c *clientConn) Format() protocol.Format { return c.format }

func (c *clientConn) Send(b []byte) error {
	if c.closed.Load() {
		return errConnClosed
	}
	sendLatest(c.ch, b)
	return nil
}

func (c *clientConn) close() { c.closed.Store(true) }

func (c *clientConn) messageType() int {
	if c.format == protocol.FormatMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
