package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Recorder is the write-side of the audit log. Emit is fire-and-forget:
// records are queued to a background writer and a full queue drops the
// record rather than blocking the caller. An audit failure must never
// fail the enforcement call that produced it.
type Recorder struct {
	store   Store
	queue   chan *Record
	dropped atomic.Int64
	written atomic.Int64

	sampleMaxChars int
	redact         func(string) string

	logger   *slog.Logger
	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// BufferSize is the dispatch queue capacity.
	// Default: 1024
	BufferSize int

	// SampleMaxChars caps the length of text samples passed through
	// Sample. Default: 200
	SampleMaxChars int

	// Redact is applied to text samples before storage. Optional.
	Redact func(string) string
}

// NewRecorder creates a Recorder writing to the given store and starts
// its background writer.
func NewRecorder(store Store, cfg RecorderConfig) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.SampleMaxChars <= 0 {
		cfg.SampleMaxChars = 200
	}

	r := &Recorder{
		store:          store,
		queue:          make(chan *Record, cfg.BufferSize),
		sampleMaxChars: cfg.SampleMaxChars,
		redact:         cfg.Redact,
		logger:         slog.Default().With("component", "audit.recorder"),
		stopped:        make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()
	return r
}

// Emit queues one audit record. It never blocks and never returns an
// error; if the queue is full the record is dropped and counted.
// A zero ID and CreatedAt are filled in.
func (r *Recorder) Emit(record *Record) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	select {
	case r.queue <- record:
	default:
		n := r.dropped.Add(1)
		if n == 1 || n%100 == 0 {
			r.logger.Warn("audit queue full, dropping records", "dropped_total", n)
		}
	}
}

// Sample prepares a text excerpt for inclusion in audit metadata:
// redacted (if a redactor is configured) and truncated.
func (r *Recorder) Sample(text string) string {
	if r.redact != nil {
		text = r.redact(text)
	}
	if len(text) > r.sampleMaxChars {
		if r.sampleMaxChars <= 3 {
			return text[:r.sampleMaxChars]
		}
		return text[:r.sampleMaxChars-3] + "..."
	}
	return text
}

// DroppedCount returns the number of records dropped due to a full queue.
func (r *Recorder) DroppedCount() int64 {
	return r.dropped.Load()
}

// WrittenCount returns the number of records successfully persisted.
func (r *Recorder) WrittenCount() int64 {
	return r.written.Load()
}

// Close drains the queue and stops the background writer.
func (r *Recorder) Close() {
	r.stopOnce.Do(func() {
		close(r.stopped)
	})
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopped:
			// Drain whatever is already queued.
			for {
				select {
				case record := <-r.queue:
					r.write(record)
				default:
					return
				}
			}
		case record := <-r.queue:
			r.write(record)
		}
	}
}

// write persists one record. Storage errors are logged and swallowed.
func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.Store(ctx, record); err != nil {
		r.logger.Error("failed to write audit record",
			"action", record.Action,
			"category", record.Category,
			"error", err,
		)
		return
	}
	r.written.Add(1)
}
