package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
)

// WebSocket timeout constants following Gorilla best practices
// See: https://github.com/gorilla/websocket/blob/master/examples/chat/client.go
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Clients only send control frames
	maxMessageSize = 512
)

// HandleBulkJobStream handles /ws/monuments/bulk/jobs/{id}.
// Each message is a job snapshot; the server closes the stream after the
// completed snapshot.
func (s *Server) HandleBulkJobStream(w http.ResponseWriter, r *http.Request) {
	id, err := parseJobID(r.PathValue("id"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}

	// Subscribe before upgrading so unknown jobs get a plain 404
	updates, unsubscribe, err := s.pipeline.Subscribe(id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.Debugw("WebSocket upgrade failed", logger.FieldJobID, id, logger.FieldError, err)
		return
	}
	defer conn.Close()

	log := s.logger.With(logger.FieldJobID, id)
	log.Debugw("Job stream opened", "remote", r.RemoteAddr)

	gone := make(chan struct{})
	go readPump(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job completed"))
				log.Debugw("Job stream finished")
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Debugw("Job stream write failed", logger.FieldError, err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-gone:
			log.Debugw("Job stream client disconnected")
			return

		case <-r.Context().Done():
			return
		}
	}
}

// readPump consumes control frames so pongs and close frames are handled,
// closing gone when the peer goes away.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
