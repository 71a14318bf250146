package handlers

import (
	"net/http"
	"time"

	"sndiag/internal/notify"
	"sndiag/internal/version"
	"sndiag/internal/web"
)

// SystemHandler serves health and version info.
type SystemHandler struct {
	notifier  *notify.Manager
	startedAt time.Time
}

func NewSystemHandler(notifier *notify.Manager) *SystemHandler {
	return &SystemHandler{
		notifier:  notifier,
		startedAt: time.Now(),
	}
}

// Health returns process liveness and basic runtime info.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	web.OK(w, r, map[string]interface{}{
		"status":          "ok",
		"version":         version.Version,
		"uptime_seconds":  int64(time.Since(h.startedAt).Seconds()),
		"notify_channels": h.notifier.ChannelNames(),
	})
}

// OAuthNoop answers OAuth discovery probes with 204 No Content. MCP
// clients probe these paths; the server has no authorization server.
func OAuthNoop(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
