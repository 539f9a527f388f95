package server

import "strings"

const icyBlockUnit = 16

// formatMetadataBlock builds the ICY metadata block for title/artist: a
// single length byte L (in units of 16 bytes, L = ceil(len(payload)/16))
// followed by L*16 bytes containing "StreamTitle='<artist> - <title>';"
// NUL-padded to the block boundary.
func formatMetadataBlock(title, artist string) []byte {
	payload := "StreamTitle='"
	if artist != "" {
		payload += escapeMeta(artist) + " - "
	}
	payload += escapeMeta(title) + "';"

	blocks := (len(payload) + icyBlockUnit - 1) / icyBlockUnit
	out := make([]byte, 1+blocks*icyBlockUnit)
	out[0] = byte(blocks)
	copy(out[1:], payload)
	return out
}

// emptyMetadataBlock is the single zero byte emitted when metadata has not
// changed since the last interleave point.
var emptyMetadataBlock = []byte{0}

// escapeMeta escapes a single quote so it cannot terminate the
// StreamTitle='...' value early.
func escapeMeta(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
