package ws

import (
	"testing"

	"bombarena.dev/internal/protocol"
)

func TestClientConn_DropsOldestWhenFull(t *testing.T) {
	c := newClientConn(protocol.FormatJSON, 2)
	for _, s := range []string{"a", "b", "c"} {
		if err := c.Send([]byte(s)); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if got := string(<-c.ch); got != "b" {
		t.Fatalf("first=%q want b", got)
	}
	if got := string(<-c.ch); got != "c" {
		t.Fatalf("second=%q want c", got)
	}

	c.close()
	if err := c.Send([]byte("d")); err == nil {
		t.Fatalf("send after close succeeded")
	}
	if len(c.ch) != 0 {
		t.Fatalf("frame queued after close")
	}
}
