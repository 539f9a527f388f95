// Package metrics exposes process-level dataplane metrics in Prometheus
// exposition format at GET /metrics. This is an ambient, read-only
// addition alongside (not replacing) the /api/status and /api/stats
// contracts; it never participates in the dataplane's timing or locking.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gocast/gocast/internal/stream"
)

// Collectors holds the Prometheus instruments wired to a single Mount and
// its Broadcaster.
type Collectors struct {
	registry *prometheus.Registry

	listeners        prometheus.Gauge
	bufferFill       prometheus.Gauge
	sourceConnected  prometheus.Gauge
	bytesBroadcast   prometheus.Counter
	droppedChunks    prometheus.Counter
}

// New registers a fresh, empty set of collectors. Call Handler with the
// live Mount and Broadcaster to serve them.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gocast_listeners",
			Help: "Current number of connected listeners.",
		}),
		bufferFill: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gocast_buffer_fill_fraction",
			Help: "Ring buffer occupancy as a fraction of its capacity.",
		}),
		sourceConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gocast_source_connected",
			Help: "1 if a live source is currently attached, else 0.",
		}),
		bytesBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gocast_bytes_broadcast_total",
			Help: "Cumulative bytes broadcast to listeners.",
		}),
		droppedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gocast_dropped_chunks_total",
			Help: "Cumulative count of chunks dropped by the drop-oldest backpressure policy.",
		}),
	}

	c.registry.MustRegister(
		c.listeners, c.bufferFill, c.sourceConnected, c.bytesBroadcast, c.droppedChunks,
	)
	return c
}

// Refresh re-samples the gauges and advances the counters by the delta
// since the last call. Intended to be called once per /metrics scrape via
// Handler, so counters always reflect current cumulative totals without
// double counting between scrapes.
func (c *Collectors) Refresh(mount *stream.Mount, broadcaster *stream.Broadcaster, lastBytes, lastDropped *int64) {
	_, _, totalBytes := mount.Stats()
	if delta := totalBytes - *lastBytes; delta > 0 {
		c.bytesBroadcast.Add(float64(delta))
	}
	*lastBytes = totalBytes

	dropped := broadcaster.DroppedChunks()
	if delta := dropped - *lastDropped; delta > 0 {
		c.droppedChunks.Add(float64(delta))
	}
	*lastDropped = dropped

	c.listeners.Set(float64(mount.ListenerCount()))
	c.bufferFill.Set(mount.Buffer.FillFraction())
	if mount.SourceAttached() {
		c.sourceConnected.Set(1)
	} else {
		c.sourceConnected.Set(0)
	}
}

// Handler returns an http.Handler wrapping the Prometheus exposition
// format, re-sampling gauges/counters on each scrape.
func (c *Collectors) Handler(mount *stream.Mount, broadcaster *stream.Broadcaster) http.Handler {
	var lastBytes, lastDropped int64
	base := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Refresh(mount, broadcaster, &lastBytes, &lastDropped)
		base.ServeHTTP(w, r)
	})
}
