package telemetry

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type controlMessage struct {
	Type string `json:"type"`
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}
	obs := s.hub.Subscribe()
	s.conns[obs.ID()] = conn
	s.wg.Add(2)
	s.mu.Unlock()

	go s.writePump(conn, obs)
	go s.readPump(conn, obs)
}

// readPump handles control messages until the connection fails.
func (s *Server) readPump(conn *websocket.Conn, obs *Observer) {
	defer s.wg.Done()
	defer s.hub.Unsubscribe(obs.ID())

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed",
					zap.String("client_id", obs.ID()),
					zap.Error(err))
			}
			return
		}

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("invalid message from debug client",
				zap.String("client_id", obs.ID()),
				zap.Error(err))
			continue
		}
		if msg.Type == "ping" {
			s.hub.Pong(obs.ID())
		}
	}
}

// writePump is the only writer on conn. It exits when the hub closes the
// observer channel or a write fails.
func (s *Server) writePump(conn *websocket.Conn, obs *Observer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, obs.ID())
		s.mu.Unlock()
		s.wg.Done()
	}()

	for {
		select {
		case evt, ok := <-obs.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				s.hub.Unsubscribe(obs.ID())
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.Unsubscribe(obs.ID())
				return
			}
		}
	}
}
