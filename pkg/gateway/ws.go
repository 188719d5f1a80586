package gateway

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dotsetgreg/dotchat/pkg/agent"
	"github.com/dotsetgreg/dotchat/pkg/logger"
	"github.com/dotsetgreg/dotchat/pkg/metrics"
)

// wsRequest is one inbound websocket frame.
type wsRequest struct {
	Type string `json:"type"`
	agent.ChatRequest
}

// handleWS serves a persistent chat connection. Each inbound message
// frame runs one exchange; event frames stream back as JSON.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnCF("gateway", "WebSocket upgrade failed",
			map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	logger.InfoCF("gateway", "WebSocket connected",
		map[string]interface{}{"remote": r.RemoteAddr})

	var writeMu sync.Mutex
	send := func(ev agent.Event) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			logger.DebugCF("gateway", "WebSocket write failed",
				map[string]interface{}{"error": err.Error()})
		}
	}

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.DebugCF("gateway", "WebSocket read failed",
					map[string]interface{}{"error": err.Error()})
			}
			return
		}
		if req.Type != "" && req.Type != "message" {
			send(agent.Event{Type: agent.EventError, Error: "unsupported frame type: " + req.Type})
			continue
		}

		metrics.ActiveStreams.Inc()
		_, err := s.orch.Process(r.Context(), req.ChatRequest, send)
		metrics.ActiveStreams.Dec()
		if err != nil {
			// Already surfaced to the client as an error frame.
			continue
		}
	}
}
