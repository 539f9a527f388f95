package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Broadcaster drives the single fan-out worker: it pulls fixed-size chunks
// from a Mount's RingBuffer and pushes them onto every registered
// listener's bounded queue, applying the drop-oldest backpressure policy
// documented on Listener.enqueue. The worker never blocks on a slow
// listener and never exits because of one.
type Broadcaster struct {
	mount     *Mount
	chunkSize int
	log       zerolog.Logger

	running atomic.Bool
	stopCh  chan struct{}
	doneWg  sync.WaitGroup

	droppedChunks atomic.Int64
}

// NewBroadcaster creates a Broadcaster over mount, reading chunkSize bytes
// per iteration (defaulting to 16384 when non-positive).
func NewBroadcaster(mount *Mount, chunkSize int, log zerolog.Logger) *Broadcaster {
	if chunkSize <= 0 {
		chunkSize = 16384
	}
	return &Broadcaster{
		mount:     mount,
		chunkSize: chunkSize,
		log:       log.With().Str("component", "broadcaster").Logger(),
	}
}

// Start is idempotent: calling it while already running is a no-op.
func (b *Broadcaster) Start() {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	b.stopCh = make(chan struct{})
	b.doneWg.Add(1)
	go b.loop()
	b.log.Info().Msg("broadcaster started")
}

// Stop is idempotent and joins the worker within a bounded time (the
// worker checks its stop flag at least once per sleep interval, at most
// ~20ms).
func (b *Broadcaster) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}
	close(b.stopCh)
	b.doneWg.Wait()
	b.log.Info().Msg("broadcaster stopped")
}

func (b *Broadcaster) loop() {
	defer b.doneWg.Done()

	consecutiveEmpty := 0
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		if b.mount.Buffer.Available() >= b.chunkSize {
			chunk := b.mount.Buffer.Read(b.chunkSize)
			if len(chunk) > 0 {
				b.broadcastChunk(chunk)
				consecutiveEmpty = 0

				fill := b.mount.Buffer.FillFraction()
				switch {
				case fill > 0.8:
					time.Sleep(100 * time.Microsecond)
				case fill > 0.5:
					time.Sleep(500 * time.Microsecond)
				default:
					time.Sleep(1 * time.Millisecond)
				}
				continue
			}
		}

		consecutiveEmpty++
		if consecutiveEmpty > 10 {
			time.Sleep(20 * time.Millisecond)
		} else {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// broadcastChunk pushes chunk to every registered listener. A full queue
// drops its oldest entry rather than rejecting chunk (slow-listener
// isolation: one stuck listener never stalls the worker or its peers).
func (b *Broadcaster) broadcastChunk(chunk []byte) {
	listeners := b.mount.snapshotListeners()
	for _, l := range listeners {
		if dropped := l.enqueue(chunk); dropped {
			b.droppedChunks.Add(1)
			b.log.Info().Int64("listener_id", l.ID).Msg("listener queue full, dropped oldest chunk")
		}
		atomic.AddInt64(&l.BytesSent, int64(len(chunk)))
	}
	b.mount.totalBytesSent.Add(int64(len(chunk)))
}

// DroppedChunks returns the cumulative count of oldest-chunk drops across
// all listeners, for the metrics component.
func (b *Broadcaster) DroppedChunks() int64 {
	return b.droppedChunks.Load()
}
