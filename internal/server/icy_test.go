package server

import (
	"strings"
	"testing"
)

func TestFormatMetadataBlockOrdersArtistBeforeTitle(t *testing.T) {
	block := formatMetadataBlock("Song Y", "Artist X")
	payload := extractPayload(t, block)
	if payload != "StreamTitle='Artist X - Song Y';" {
		t.Errorf("payload = %q, want %q", payload, "StreamTitle='Artist X - Song Y';")
	}
}

func TestFormatMetadataBlockNoArtist(t *testing.T) {
	block := formatMetadataBlock("Song Y", "")
	payload := extractPayload(t, block)
	if payload != "StreamTitle='Song Y';" {
		t.Errorf("payload = %q, want %q", payload, "StreamTitle='Song Y';")
	}
}

func TestFormatMetadataBlockLengthByteAndPadding(t *testing.T) {
	block := formatMetadataBlock("", "")
	if len(block) != 1+icyBlockUnit {
		t.Fatalf("block length = %d, want %d", len(block), 1+icyBlockUnit)
	}
	if block[0] != 1 {
		t.Errorf("length byte = %d, want 1", block[0])
	}
	for i := len("StreamTitle='';") + 1; i < len(block); i++ {
		if block[i] != 0 {
			t.Errorf("byte %d = %d, want NUL padding", i, block[i])
		}
	}
}

func extractPayload(t *testing.T, block []byte) string {
	t.Helper()
	n := int(block[0])
	payload := string(block[1 : 1+n*icyBlockUnit])
	return strings.TrimRight(payload, "\x00")
}
