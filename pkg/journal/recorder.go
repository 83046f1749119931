package journal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/NicolasHaas/mutetool/pkg/metrics"
	"github.com/NicolasHaas/mutetool/pkg/model"
)

const (
	// DefaultBuffer is the number of events queued before Record drops.
	DefaultBuffer = 256
	// DefaultKeep is the number of events retained by periodic pruning.
	DefaultKeep = 10000

	pruneEvery = 500
)

// Recorder writes events to a Store on its own goroutine so that callers
// (hardware callback goroutines) never wait on disk I/O. When the buffer
// is full the event is dropped and counted.
type Recorder struct {
	store   Store
	metrics *metrics.Metrics
	keep    int

	mu     sync.RWMutex // guards closed against sends on a closed events
	closed bool
	events chan model.Event
	done   chan struct{}
}

// NewRecorder starts a recorder over store. m may be nil.
func NewRecorder(store Store, m *metrics.Metrics, buffer, keep int) *Recorder {
	if m == nil {
		m = metrics.New()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if keep <= 0 {
		keep = DefaultKeep
	}
	r := &Recorder{
		store:   store,
		metrics: m,
		keep:    keep,
		events:  make(chan model.Event, buffer),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Record queues e. It never blocks. Events recorded after Close are
// dropped.
func (r *Recorder) Record(e model.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.metrics.JournalDrops.Add(1)
		return
	}
	select {
	case r.events <- e:
	default:
		r.metrics.JournalDrops.Add(1)
	}
}

// Close flushes queued events and stops the recorder. It does not close
// the store. It is safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)
	ctx := context.Background()
	written := 0

	for e := range r.events {
		if err := r.store.Append(ctx, &e); err != nil {
			r.metrics.JournalDrops.Add(1)
			slog.Debug("journal append failed", "kind", e.Kind, "err", err)
			continue
		}
		r.metrics.JournalWrites.Add(1)

		written++
		if written%pruneEvery == 0 {
			if n, err := r.store.Prune(ctx, r.keep); err != nil {
				slog.Debug("journal prune failed", "err", err)
			} else if n > 0 {
				slog.Debug("journal pruned", "deleted", n)
			}
		}
	}
}
