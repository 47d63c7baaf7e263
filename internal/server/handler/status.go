package handler

import (
	"net/http"
	"time"
)

// StatusHandler serves the runtime configuration summary.
type StatusHandler struct {
	Mode      string
	Store     string
	Redis     bool
	Reports   bool
	Funds     int
	StartedAt time.Time
}

// GetStatus responds with the run mode, backends and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.Mode,
		"store":          h.Store,
		"redis":          h.Redis,
		"reports":        h.Reports,
		"funds":          h.Funds,
		"started_at":     h.StartedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
	})
}
