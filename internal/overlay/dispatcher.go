package overlay

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"codeberg.org/kcchat/server/internal/logger"
)

// socket is the minimal per-connection send channel the dispatcher's
// loop addresses directly; the read and write pumps run inside Accept.
type socket struct {
	send chan []byte
}

// Dispatcher is the overlay loop spec.md §5 describes: it owns the
// connected set and receives events from the chat loop over a one-way
// channel, grounded on the teacher's Hub select-loop shape but
// stripped to a pure broadcaster (no per-message-type handler table,
// since overlay clients are receive-only).
type Dispatcher struct {
	events     chan Message
	register   chan *socket
	unregister chan *socket
}

// NewDispatcher returns a Dispatcher ready to have Run started in its
// own goroutine.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		events:     make(chan Message, 64),
		register:   make(chan *socket),
		unregister: make(chan *socket),
	}
}

// Alert implements chat.OverlaySink.
func (d *Dispatcher) Alert(title, subtitle string) {
	select {
	case d.events <- AlertMessage(title, subtitle):
	default:
		logger.Warn("overlay event dropped, dispatcher channel full", "type", "alert")
	}
}

// Command implements chat.OverlaySink.
func (d *Dispatcher) Command(name string) {
	select {
	case d.events <- CommandMessage(name):
	default:
		logger.Warn("overlay event dropped, dispatcher channel full", "type", "command")
	}
}

// Run is the overlay loop's body; it returns when ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	clients := make(map[*socket]struct{})

	for {
		select {
		case <-ctx.Done():
			for s := range clients {
				close(s.send)
			}
			return

		case s := <-d.register:
			clients[s] = struct{}{}

		case s := <-d.unregister:
			if _, ok := clients[s]; ok {
				delete(clients, s)
				close(s.send)
			}

		case msg := <-d.events:
			b, err := json.Marshal(msg)
			if err != nil {
				logger.ErrorErr(err, "failed to encode overlay message")
				continue
			}
			for s := range clients {
				select {
				case s.send <- b:
				default:
					logger.Warn("overlay client send buffer full, dropping")
				}
			}
		}
	}
}

// Accept wires a new overlay WebSocket connection into the dispatcher
// and blocks running its read/write pumps until the peer disconnects.
func (d *Dispatcher) Accept(ws *websocket.Conn) {
	s := &socket{send: make(chan []byte, 16)}
	d.register <- s

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case b, ok := <-s.send:
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
				d.unregister <- s
				return
			}
		case <-done:
			d.unregister <- s
			return
		}
	}
}
