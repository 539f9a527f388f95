package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gocast/gocast/internal/config"
	"github.com/gocast/gocast/internal/geo"
	"github.com/gocast/gocast/internal/stream"
)

const listenerDequeueTimeout = 500 * time.Millisecond

// ListenerHandler serves GET <mount_point>: it registers a Listener,
// streams chunks from its queue to the client socket, and optionally
// interleaves ICY metadata blocks every icy_metaint bytes.
type ListenerHandler struct {
	mount *stream.Mount
	cfg   *config.Config
	geo   *geo.Resolver
	log   zerolog.Logger
}

// NewListenerHandler creates a ListenerHandler. geoResolver may be nil when
// no GeoIP database is configured.
func NewListenerHandler(mount *stream.Mount, cfg *config.Config, geoResolver *geo.Resolver, log zerolog.Logger) *ListenerHandler {
	return &ListenerHandler{
		mount: mount,
		cfg:   cfg,
		geo:   geoResolver,
		log:   log.With().Str("component", "listener").Logger(),
	}
}

func (h *ListenerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	icyMode := r.Header.Get("Icy-MetaData") == "1" && h.cfg.Metadata.EnableICY
	metaInterval := h.cfg.Metadata.ICYMetaInt

	l, ok := h.mount.AddListener(r.RemoteAddr)
	if !ok {
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}
	if h.geo != nil {
		l.Country = h.geo.Country(r.RemoteAddr)
	}
	defer h.mount.RemoveListener(l.ID)

	h.writeHeaders(w, icyMode, metaInterval)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	h.stream(w, r, l, icyMode, metaInterval, flusher)
}

func (h *ListenerHandler) writeHeaders(w http.ResponseWriter, icyMode bool, metaInterval int) {
	header := w.Header()
	header.Set("Content-Type", "audio/mpeg")
	header.Set("Cache-Control", "no-cache, no-store")
	header.Set("Pragma", "no-cache")
	header.Set("Connection", "close")
	header.Set("Accept-Ranges", "none")

	if icyMode {
		header.Set("icy-metaint", strconv.Itoa(metaInterval))
		header.Set("icy-name", h.cfg.Metadata.StationName)
		header.Set("icy-genre", h.cfg.Metadata.StationGenre)
		header.Set("icy-url", h.cfg.Metadata.StationURL)
	}
	w.WriteHeader(http.StatusOK)
}

// stream drains the listener's queue and writes to w until the client
// disconnects or a write fails. When icyMode is set, raw audio bytes are
// interleaved with a metadata block every metaInterval bytes.
func (h *ListenerHandler) stream(w http.ResponseWriter, r *http.Request, l *stream.Listener, icyMode bool, metaInterval int, flusher http.Flusher) {
	sinceMetaBytes := 0
	var lastTitle, lastArtist string
	first := true

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		chunk, ok := l.Dequeue(listenerDequeueTimeout)
		if !ok {
			continue
		}

		if !icyMode {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			continue
		}

		for len(chunk) > 0 {
			remaining := metaInterval - sinceMetaBytes
			n := len(chunk)
			if n > remaining {
				n = remaining
			}
			if _, err := w.Write(chunk[:n]); err != nil {
				return
			}
			chunk = chunk[n:]
			sinceMetaBytes += n

			if sinceMetaBytes >= metaInterval {
				title, artist := h.mount.Meta.Get()
				var block []byte
				if first || title != lastTitle || artist != lastArtist {
					block = formatMetadataBlock(title, artist)
					lastTitle, lastArtist = title, artist
					first = false
				} else {
					block = emptyMetadataBlock
				}
				if _, err := w.Write(block); err != nil {
					return
				}
				sinceMetaBytes = 0
			}
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
