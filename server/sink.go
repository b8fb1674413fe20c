package server

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/interviewmesh/core"
)

// wsSink delivers events to one WebSocket connection. Gorilla permits only
// one concurrent writer, and both the read loop and the watchdog emit, so
// writes are serialized with a mutex.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

var _ core.EventSink = (*wsSink)(nil)

func newWSSink(conn *websocket.Conn) *wsSink {
	return &wsSink{conn: conn}
}

// Send writes the event as one JSON text message.
func (s *wsSink) Send(ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}
