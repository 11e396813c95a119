package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"bombarena.dev/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "player name")
		enc   = flag.String("enc", "json", "wire encoding: json|msgpack")
		games = flag.Int("games", 1, "matches to play before exiting (0 = forever)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	format, ok := protocol.ParseFormat(*enc)
	if !ok {
		logger.Fatalf("unknown encoding %q", *enc)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for played := 0; *games == 0 || played < *games; played++ {
		select {
		case <-stop:
			return
		default:
		}
		if err := playOne(*url, *name, format, logger, stop); err != nil {
			logger.Printf("match ended: %v", err)
			time.Sleep(time.Second)
		}
	}
}

func playOne(url, name string, format protocol.Format, logger *log.Logger, stop <-chan os.Signal) error {
	dialer := *websocket.DefaultDialer
	if format == protocol.FormatMsgpack {
		dialer.Subprotocols = []string{protocol.MsgpackSubprotocol}
	}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	b := &bot{
		conn:   conn,
		format: format,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := b.send(protocol.NewJoin(name)); err != nil {
		return err
	}

	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		in, err := protocol.DecodeServer(format, msg)
		if err != nil {
			continue
		}
		switch m := in.(type) {
		case protocol.WelcomeMsg:
			b.self = m.PlayerID
			logger.Printf("WELCOME player_id=%d room=%s", m.PlayerID, m.RoomID)
		case protocol.WaitingMsg:
			logger.Printf("WAITING %d/%d", m.PlayerCount, m.Need)
		case protocol.GameStartMsg:
			logger.Printf("GAME START players=%d", len(m.Players))
		case protocol.GameStateMsg:
			b.onState(m)
		case protocol.GameOverMsg:
			if m.Winner == nil {
				logger.Printf("GAME OVER draw")
			} else {
				logger.Printf("GAME OVER winner=%d self=%d", *m.Winner, b.self)
			}
			return nil
		}
	}
}

type bot struct {
	conn   *websocket.Conn
	format protocol.Format
	rng    *rand.Rand
	self   protocol.PlayerID
}

var headings = [...][2]float64{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {0, 0}}

func (b *bot) onState(st protocol.GameStateMsg) {
	// Pick a new heading about twice a second and drop a bomb now and then.
	if st.Tick%10 == 1 {
		h := headings[b.rng.Intn(len(headings))]
		_ = b.send(protocol.NewMove(h[0], h[1]))
	}
	if st.Tick%40 == 20 && b.rng.Intn(2) == 0 {
		_ = b.send(protocol.NewPlaceBomb())
	}
}

func (b *bot) send(v any) error {
	raw, err := protocol.Encode(b.format, v)
	if err != nil {
		return err
	}
	mt := websocket.TextMessage
	if b.format == protocol.FormatMsgpack {
		mt = websocket.BinaryMessage
	}
	return b.conn.WriteMessage(mt, raw)
}
