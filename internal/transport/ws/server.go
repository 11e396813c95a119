package ws

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/lobby"
	"bombarena.dev/internal/sim/session"
	"bombarena.dev/internal/sim/tuning"
)

const (
	joinTimeout  = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	writeTimeout = 5 * time.Second
)

type Server struct {
	lobby *lobby.Registry
	tune  tuning.Tuning
	log   *log.Logger

	upgrader websocket.Upgrader

	// joinTimeout bounds the whole handshake. After the join, a client must
	// send a frame or answer a ping within pongWait.
	joinTimeout time.Duration
	pongWait    time.Duration
	pingPeriod  time.Duration

	connected atomic.Int64
}

func NewServer(reg *lobby.Registry, tune tuning.Tuning, logger *log.Logger) *Server {
	return &Server{
		lobby: reg,
		tune:  tune,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			Subprotocols:    []string{protocol.MsgpackSubprotocol},
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		joinTimeout: joinTimeout,
		pongWait:    pongWait,
		pingPeriod:  pingPeriod,
	}
}

// Connected is the number of websocket clients currently attached.
func (s *Server) Connected() int64 { return s.connected.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.connected.Add(1)
		defer s.connected.Add(-1)

		format := protocol.FormatJSON
		if conn.Subprotocol() == protocol.MsgpackSubprotocol {
			format = protocol.FormatMsgpack
		} else if f, ok := protocol.ParseFormat(r.URL.Query().Get("enc")); ok {
			format = f
		}
		out := newClientConn(format, s.tune.OutQueue)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. It starts before the join so Welcome and the
		// first lobby message are flushed as soon as they are queued. Pings
		// keep idle lobby players and still players past the read deadline.
		go func() {
			ping := time.NewTicker(s.pingPeriod)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
						cancel()
						return
					}
				case b := <-out.ch:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(out.messageType(), b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		sess, pid, ok := s.handshake(conn, out)
		if !ok {
			return
		}
		defer func() {
			out.close()
			sess.Leave(pid)
		}()

		limiter := rate.NewLimiter(rate.Limit(s.tune.IntentsPerSec), s.tune.IntentBurst)

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(s.pongWait))
		})

		// Reader loop.
		for ctx.Err() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !limiter.Allow() {
				continue
			}
			in, err := protocol.DecodeClient(format, msg)
			if err != nil {
				continue
			}
			switch m := in.(type) {
			case protocol.MoveMsg:
				sess.ApplyIntent(pid, session.MoveIntent(m.DX, m.DY))
			case protocol.PlaceBombMsg:
				sess.ApplyIntent(pid, session.PlaceBombIntent())
			}
		}
	}
}

// handshake reads frames until a Join arrives. Malformed frames and
// non-Join messages are ignored; the deadline is fixed when the handshake
// starts and does not move as frames arrive.
func (s *Server) handshake(conn *websocket.Conn, out *clientConn) (*session.Session, session.PlayerID, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(s.joinTimeout))

	var join protocol.JoinMsg
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected Join"), time.Now().Add(time.Second))
			}
			return nil, 0, false
		}
		in, err := protocol.DecodeClient(out.format, msg)
		if err != nil {
			continue
		}
		if m, ok := in.(protocol.JoinMsg); ok {
			join = m
			break
		}
	}

	sess, pid, err := s.lobby.Join(join.Name, out)
	if err != nil {
		reason := "join failed"
		if errors.Is(err, session.ErrClosed) {
			reason = "server shutting down"
		}
		s.log.Printf("join %q: %v", join.Name, err)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason), time.Now().Add(time.Second))
		return nil, 0, false
	}
	return sess, pid, true
}
