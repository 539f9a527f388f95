package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gocast/gocast/internal/stream"
)

func TestHandlerExposesListenerGauge(t *testing.T) {
	mount := stream.NewMount("/stream", 1024, 10, 0)
	broadcaster := stream.NewBroadcaster(mount, 16, zerolog.Nop())
	mount.AddListener("1.2.3.4")

	c := New()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler(mount, broadcaster).ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "gocast_listeners 1") {
		t.Errorf("metrics output missing gocast_listeners=1, got:\n%s", body)
	}
}
