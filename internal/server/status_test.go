package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gocast/gocast/internal/config"
	"github.com/gocast/gocast/internal/stream"
)

func TestServeStatus(t *testing.T) {
	mount := stream.NewMount("/stream", 1024, 10, 0)
	mount.Meta.Set("Song Y", "Artist X")
	cfg := config.Default()
	h := NewStatusHandler(mount, cfg, time.Now().Add(-5*time.Second))

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	h.ServeStatus(rec, req)

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.SourceConnected {
		t.Error("SourceConnected should be false with no source attached")
	}
	if resp.Metadata.Title != "Song Y" || resp.Metadata.Artist != "Artist X" {
		t.Errorf("Metadata = %+v, want title=Song Y artist=Artist X", resp.Metadata)
	}
	if resp.UptimeSeconds < 4 {
		t.Errorf("UptimeSeconds = %v, want >= 4", resp.UptimeSeconds)
	}
}

func TestServeStatsDisabled(t *testing.T) {
	mount := stream.NewMount("/stream", 1024, 10, 0)
	cfg := config.Default()
	cfg.Advanced.EnableStats = false
	h := NewStatusHandler(mount, cfg, time.Now())

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeStats(rec, req)

	if rec.Code != 403 {
		t.Errorf("status = %d, want 403 when stats disabled", rec.Code)
	}
}

func TestServeStatsListenerCountAndBuffer(t *testing.T) {
	mount := stream.NewMount("/stream", 1000, 10, 0)
	mount.Buffer.Write(make([]byte, 250))
	mount.AddListener("1.2.3.4")
	cfg := config.Default()
	h := NewStatusHandler(mount, cfg, time.Now())

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeStats(rec, req)

	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.TotalListeners != 1 {
		t.Errorf("TotalListeners = %d, want 1", resp.TotalListeners)
	}
	if resp.Buffer.FillPercentage != 25 {
		t.Errorf("Buffer.FillPercentage = %v, want 25", resp.Buffer.FillPercentage)
	}
}
