package api

import (
	"net/http"

	"github.com/seenimoa/etfdj/internal/config"
)

// handleGetConfig returns the effective settings and where each came from.
// Secrets are masked by config.Describe.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.Describe(s.cfg),
	})
}
