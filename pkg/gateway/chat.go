package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dotsetgreg/dotchat/pkg/agent"
	"github.com/dotsetgreg/dotchat/pkg/logger"
	"github.com/dotsetgreg/dotchat/pkg/metrics"
)

// handleChat runs one exchange and returns the final result as a
// single JSON document. Tokens are not streamed.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req agent.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.orch.Process(r.Context(), req, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleChatStream runs one exchange as a server-sent event stream.
// Every exchange terminates with exactly one done or error frame.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req agent.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	sink := func(ev agent.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	// Errors already reach the client as an error frame.
	if _, err := s.orch.Process(r.Context(), req, sink); err != nil {
		logger.DebugCF("gateway", "Streamed exchange failed",
			map[string]interface{}{"error": err.Error()})
	}
}
