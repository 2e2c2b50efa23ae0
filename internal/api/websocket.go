package api

import (
	"context"
	"log"
	"net/http"

	"algo-core/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTopics are the bus topics streamed to websocket clients.
var wsTopics = []events.Event{
	events.EventSignal,
	events.EventTradeRecorded,
	events.EventCycleCompleted,
	events.EventTradingState,
}

type wsEnvelope struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// websocket streams bus events to the client as {topic, data}
// envelopes until the client disconnects or the bus closes.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	// The connection outlives the HTTP request deadline, so the fan-in
	// runs on its own context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan wsEnvelope, 100)
	for _, topic := range wsTopics {
		stream, unsub := s.Bus.Subscribe(topic, 100)
		go func(topic events.Event, stream <-chan any, unsub func()) {
			defer unsub()
			for {
				select {
				case msg, ok := <-stream:
					if !ok {
						return
					}
					select {
					case out <- wsEnvelope{Topic: string(topic), Data: msg}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(topic, stream, unsub)
	}

	// Drain reads so client close frames end the stream promptly.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case env := <-out:
			if err := conn.WriteJSON(env); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
