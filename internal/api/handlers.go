package api

import (
	"encoding/json"
	"net/http"
)

// handleGetState reports live session count and team scores - the
// non-gameplay snapshot an ops dashboard or load balancer health probe
// wants, never the authoritative game state itself.
func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	a, b := h.engine.TeamScores()
	writeJSON(w, map[string]interface{}{
		"playerCount": h.engine.PlayerCount(),
		"teamScoreA":  a,
		"teamScoreB":  b,
	})
}

// handleGetLeaderboard returns the top 10 sessions by kill count.
func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Leaderboard().Top(10))
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
