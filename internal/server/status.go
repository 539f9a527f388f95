package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gocast/gocast/internal/config"
	"github.com/gocast/gocast/internal/stream"
)

// StatusHandler serves the read-only /api/status and /api/stats contracts:
// a pure snapshot over the dataplane's current state, with no side effects.
type StatusHandler struct {
	mount     *stream.Mount
	cfg       *config.Config
	startTime time.Time
}

// NewStatusHandler creates a StatusHandler whose uptime is measured from
// startTime.
func NewStatusHandler(mount *stream.Mount, cfg *config.Config, startTime time.Time) *StatusHandler {
	return &StatusHandler{mount: mount, cfg: cfg, startTime: startTime}
}

type statusResponse struct {
	SourceConnected bool           `json:"source_connected"`
	SourceStatus    string         `json:"source_status"`
	Metadata        metadataFields `json:"metadata"`
	Listeners       int            `json:"listeners"`
	UptimeSeconds   float64        `json:"uptime_seconds"`
	UptimeFormatted string         `json:"uptime_formatted"`
	StationName     string         `json:"station_name"`
	StationGenre    string         `json:"station_genre"`
}

type metadataFields struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// ServeStatus handles GET /api/status.
func (h *StatusHandler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	title, artist := h.mount.Meta.Get()
	connected := h.mount.SourceAttached()
	status := "disconnected"
	if connected {
		status = "connected"
	}

	uptime := time.Since(h.startTime)
	resp := statusResponse{
		SourceConnected: connected,
		SourceStatus:    status,
		Metadata:        metadataFields{Title: title, Artist: artist},
		Listeners:       h.mount.ListenerCount(),
		UptimeSeconds:   uptime.Seconds(),
		UptimeFormatted: formatUptime(uptime),
		StationName:     h.cfg.Metadata.StationName,
		StationGenre:    h.cfg.Metadata.StationGenre,
	}

	writeJSON(w, http.StatusOK, resp)
}

type bufferStats struct {
	Available      int     `json:"available"`
	Space          int     `json:"space"`
	FillPercentage float64 `json:"fill_percentage"`
}

type statsResponse struct {
	TotalListeners int                    `json:"total_listeners"`
	Listeners      []stream.ListenerStat  `json:"listeners"`
	TotalBytesSent int64                  `json:"total_bytes_sent"`
	Buffer         bufferStats            `json:"buffer"`
}

// ServeStats handles GET /api/stats. Returns 403 when stats are disabled.
func (h *StatusHandler) ServeStats(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Advanced.EnableStats {
		http.Error(w, "stats disabled", http.StatusForbidden)
		return
	}

	total, listeners, totalBytes := h.mount.Stats()
	resp := statsResponse{
		TotalListeners: total,
		Listeners:      listeners,
		TotalBytesSent: totalBytes,
		Buffer: bufferStats{
			Available:      h.mount.Buffer.Available(),
			Space:          h.mount.Buffer.Space(),
			FillPercentage: h.mount.Buffer.FillFraction() * 100,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
