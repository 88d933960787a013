package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleInferenceStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"inference":   s.orchestrator.InferStats(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
