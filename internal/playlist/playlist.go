// Package playlist implements the local file fallback producer: it feeds
// the ring buffer with audio files from a directory whenever no live
// source is attached, yielding instantly once one attaches.
package playlist

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog"

	"github.com/gocast/gocast/internal/stream"
)

const (
	pollInterval  = 100 * time.Millisecond
	chunkSize     = 8192
	writeRetry    = 100 * time.Microsecond
	id3HeaderSize = 10
)

// Feeder scans a directory for playable files and streams them into a
// Mount's ring buffer whenever the mount's source is not attached.
type Feeder struct {
	mount      *stream.Mount
	directory  string
	extensions []string
	shuffle    bool
	log        zerolog.Logger

	files []string
	index int

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewFeeder creates a Feeder over mount, scanning directory non-recursively
// for files whose extension is in extensions.
func NewFeeder(mount *stream.Mount, directory string, extensions []string, shuffle bool, log zerolog.Logger) *Feeder {
	return &Feeder{
		mount:      mount,
		directory:  directory,
		extensions: extensions,
		shuffle:    shuffle,
		log:        log.With().Str("component", "playlist").Logger(),
	}
}

// Load scans the directory, building the ordered (optionally shuffled)
// file list. Calling it again rescans the directory and resets the current
// index to 0; it takes no lock, so it is not synchronized with the feeder
// loop started by Start.
func (f *Feeder) Load() error {
	entries, err := os.ReadDir(f.directory)
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if f.hasAllowedExtension(e.Name()) {
			files = append(files, filepath.Join(f.directory, e.Name()))
		}
	}

	if f.shuffle {
		rand.Shuffle(len(files), func(i, j int) { files[i], files[j] = files[j], files[i] })
	}

	f.files = files
	f.index = 0
	return nil
}

func (f *Feeder) hasAllowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range f.extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// Start runs the feeder loop in a background goroutine until Stop is called.
func (f *Feeder) Start() {
	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})
	go f.loop()
}

// Stop signals the loop to exit and waits for it to do so.
func (f *Feeder) Stop() {
	if f.stopCh == nil {
		return
	}
	close(f.stopCh)
	<-f.doneCh
}

func (f *Feeder) loop() {
	defer close(f.doneCh)

	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		if f.mount.SourceAttached() || len(f.files) == 0 {
			time.Sleep(pollInterval)
			continue
		}

		f.playTrack(f.files[f.index])
		f.index = (f.index + 1) % len(f.files)
	}
}

// playTrack streams one file's audio bytes into the ring buffer, skipping
// a leading ID3v2 tag if present, and yields immediately if a live source
// attaches mid-track.
func (f *Feeder) playTrack(path string) {
	file, err := os.Open(path)
	if err != nil {
		f.log.Error().Err(err).Str("file", path).Msg("failed to open playlist file")
		return
	}
	defer file.Close()

	f.setTrackMetadata(path)
	skipID3Header(file)

	buf := make([]byte, chunkSize)
	for {
		select {
		case <-f.stopCh:
			return
		default:
		}
		if f.mount.SourceAttached() {
			return
		}

		n, err := file.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			for !f.mount.Buffer.Write(chunk) {
				time.Sleep(writeRetry)
			}
		}
		if err != nil {
			return
		}
	}
}

// setTrackMetadata updates the mount's metadata to the track's embedded
// tag title/artist when readable, falling back to the bare filename.
func (f *Feeder) setTrackMetadata(path string) {
	title := filepath.Base(path)
	artist := "Playlist"

	if file, err := os.Open(path); err == nil {
		defer file.Close()
		if m, err := tag.ReadFrom(file); err == nil {
			if t := m.Title(); t != "" {
				title = t
				if a := m.Artist(); a != "" {
					artist = a
				}
			}
		}
	}

	f.mount.Meta.Set(title, artist)
}

// skipID3Header seeks past a leading ID3v2 tag if the file starts with
// one, using the standard 28-bit synchsafe size encoding. It seeks back to
// the start if no ID3v2 tag is present.
func skipID3Header(file *os.File) {
	header := make([]byte, id3HeaderSize)
	n, err := file.Read(header)
	if err != nil || n < id3HeaderSize || string(header[:3]) != "ID3" {
		file.Seek(0, 0)
		return
	}

	size := int64(header[6]&0x7F)<<21 | int64(header[7]&0x7F)<<14 |
		int64(header[8]&0x7F)<<7 | int64(header[9]&0x7F)
	file.Seek(id3HeaderSize+size, 0)
}
