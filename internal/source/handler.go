// Package source implements the Icecast source ingestion protocol: the
// HTTP handshake, Basic-auth password check, single-source exclusivity via
// stream.SourceSlot, and the continuous body-read loop with inline ICY
// metadata sniffing.
package source

import (
	"bufio"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gocast/gocast/internal/auth"
	"github.com/gocast/gocast/internal/stream"
)

const (
	handshakeTimeout   = 5 * time.Second
	handshakeMaxBytes  = 8192
	streamRecvTimeout  = 10 * time.Second
	streamChunkSize    = 8192
	writeRetryInterval = time.Millisecond
	sourceRealm        = "Cycast"
)

// Handler accepts raw TCP connections on the source port and runs the
// Icecast SOURCE/PUT handshake against each one.
type Handler struct {
	mount          *stream.Mount
	sourcePassword string
	log            zerolog.Logger
}

// NewHandler creates a Handler bound to mount, checking incoming
// connections' password against sourcePassword.
func NewHandler(mount *stream.Mount, sourcePassword string, log zerolog.Logger) *Handler {
	return &Handler{
		mount:          mount,
		sourcePassword: sourcePassword,
		log:            log.With().Str("component", "source").Logger(),
	}
}

// Serve accepts connections on ln until it is closed.
func (h *Handler) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go h.handleConnection(conn)
	}
}

// handleConnection runs one connection through handshake, and if it
// succeeds, through the streaming-ingestion loop. The connection is always
// closed by the time this returns unless it was handed off to SourceSlot
// and later preempted (whose closer handles closing it).
func (h *Handler) handleConnection(conn net.Conn) {
	sessionID := uuid.NewString()
	log := h.log.With().Str("session", sessionID).Str("remote", conn.RemoteAddr().String()).Logger()

	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	reader := bufio.NewReader(io.LimitReader(conn, handshakeMaxBytes))

	req, err := parseHandshake(reader)
	if err != nil {
		log.Warn().Err(err).Msg("malformed source handshake")
		conn.Close()
		return
	}

	if req.Method != "SOURCE" && req.Method != "PUT" {
		log.Warn().Str("method", req.Method).Msg("rejected source method")
		writeResponse(conn, "405 Method Not Allowed")
		conn.Close()
		return
	}

	_, password, ok := auth.DecodeBasicAuth(req.Headers["authorization"])
	if !ok || !auth.CheckSourcePassword(password, h.sourcePassword) {
		log.Warn().Msg("source authentication failed")
		writeUnauthorized(conn)
		conn.Close()
		return
	}

	writeResponse(conn, "200 OK")
	conn.SetDeadline(time.Time{})

	token := h.mount.Source.Acquire(conn)
	h.mount.SetSourceAttached(true)
	h.mount.Meta.Set("Live Stream", "")
	log.Info().Msg("source connected")

	h.streamBody(conn, reader, log)
	conn.Close()

	h.mount.Source.Release(token)
	if !h.mount.Source.Occupied() {
		h.mount.SetSourceAttached(false)
	}
	log.Info().Msg("source disconnected")
}

// streamBody reads the already-buffered handshake remainder, then raw
// connection bytes, writing each chunk into the ring buffer and sniffing
// inline ICY metadata, until EOF, timeout, or error.
func (h *Handler) streamBody(conn net.Conn, reader *bufio.Reader, log zerolog.Logger) {
	// Any bytes bufio already buffered past the header terminator belong to
	// the body and must be processed first.
	if n := reader.Buffered(); n > 0 {
		buf := make([]byte, n)
		reader.Read(buf)
		h.ingestChunk(buf)
	}

	buf := make([]byte, streamChunkSize)
	for {
		conn.SetReadDeadline(time.Now().Add(streamRecvTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			h.ingestChunk(chunk)
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				log.Warn().Msg("source receive timeout")
			}
			return
		}
	}
}

// ingestChunk sniffs inline ICY metadata and writes chunk into the ring
// buffer, retrying with backoff while the buffer is full.
func (h *Handler) ingestChunk(chunk []byte) {
	if title, artist, ok := sniffStreamTitle(chunk); ok {
		h.mount.Meta.Set(title, artist)
	}
	for !h.mount.Buffer.Write(chunk) {
		time.Sleep(writeRetryInterval)
	}
}

// sniffStreamTitle looks for an inline `StreamTitle='...';` marker within a
// single chunk (by design: a title split across two recvs is missed,
// matching the original system's behavior exactly). It splits on " - "
// into artist/title when present; otherwise the whole string becomes the
// title with an empty artist.
func sniffStreamTitle(chunk []byte) (title, artist string, ok bool) {
	const marker = "StreamTitle='"
	s := string(chunk)
	idx := strings.Index(s, marker)
	if idx < 0 {
		return "", "", false
	}
	rest := s[idx+len(marker):]
	end := strings.Index(rest, "';")
	if end < 0 {
		return "", "", false
	}
	inner := rest[:end]
	if parts := strings.SplitN(inner, " - ", 2); len(parts) == 2 {
		return parts[1], parts[0], true
	}
	return inner, "", true
}

func writeResponse(conn net.Conn, status string) {
	conn.Write([]byte("HTTP/1.0 " + status + "\r\n\r\n"))
}

func writeUnauthorized(conn net.Conn) {
	conn.Write([]byte("HTTP/1.0 401 Unauthorized\r\nWWW-Authenticate: Basic realm=\"" + sourceRealm + "\"\r\n\r\n"))
}
