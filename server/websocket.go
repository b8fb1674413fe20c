package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/interview"
)

// clientMessage is what the browser sends over the wire.
type clientMessage struct {
	Type   string `json:"type"`
	Answer string `json:"answer,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	sess, err := s.store.Get(sessionID)
	if errors.Is(err, core.ErrSessionNotFound) {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("server.ws.load_failed", "session_id", sessionID, "error", err)
		httpError(w, http.StatusInternalServerError, "could not load session")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("server.ws.upgrade_failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	sink := newWSSink(conn)
	coord := interview.NewCoordinator(sess, s.gen, s.store, sink, func(o *interview.CoordinatorOptions) {
		o.Duration = s.duration
		o.MaxQuestions = s.maxQuestions
		o.Memory = s.mem
		o.Logger = s.logger
	})

	ctx, cancel := context.WithCancel(r.Context())
	cl := &client{coordinator: coord, cancel: cancel}
	s.registry.Insert(sessionID, cl)
	defer s.registry.Remove(sessionID, cl)

	s.logger.Info("server.ws.connected", "session_id", sessionID)
	if err := sink.Send(core.NewEvent(sessionID, core.EventConnected, map[string]string{
		"session_id": sessionID,
	})); err != nil {
		return
	}

	s.readLoop(ctx, conn, sink, coord, sessionID)
	s.logger.Info("server.ws.disconnected", "session_id", sessionID)
}

// readLoop processes client messages one at a time. Being the only caller
// of the flow operations on this connection, it gives each session the
// one-in-flight-operation serialization the coordinator requires.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sink *wsSink, coord *interview.Coordinator, sessionID string) {
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("server.ws.read_failed", "session_id", sessionID, "error", err)
			}
			return
		}

		switch msg.Type {
		case "start":
			if err := coord.Start(ctx); err != nil {
				if errors.Is(err, core.ErrAlreadyStarted) {
					s.sendError(sink, sessionID, "Interview already started")
					continue
				}
				s.flowError(sink, sessionID, "start", err)
				continue
			}
			go coord.WatchClock(ctx, s.watchInterval)
		case "ready":
			if err := coord.NextQuestion(ctx); err != nil {
				s.flowError(sink, sessionID, "ready", err)
			}
		case "answer":
			if err := coord.ProcessAnswer(ctx, msg.Answer); err != nil && !errors.Is(err, core.ErrNoActiveQuestion) {
				s.flowError(sink, sessionID, "answer", err)
			}
		case "status":
			if err := sink.Send(core.NewEvent(sessionID, core.EventStatus, coord.Status())); err != nil {
				return
			}
		default:
			s.sendError(sink, sessionID, "Unknown message type: "+msg.Type)
		}
	}
}

func (s *Server) flowError(sink *wsSink, sessionID, op string, err error) {
	s.logger.Error("server.ws.flow_failed", "session_id", sessionID, "op", op, "error", err)
	s.sendError(sink, sessionID, "Something went wrong, please try again")
}

func (s *Server) sendError(sink *wsSink, sessionID, msg string) {
	_ = sink.Send(core.NewEvent(sessionID, core.EventError, core.ErrorData{Message: msg}))
}
