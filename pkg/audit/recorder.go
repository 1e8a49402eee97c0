package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/gatehouse/pkg/admission"
)

// RecorderConfig contains configuration for the async recorder.
type RecorderConfig struct {
	// BufferSize is the size of the async write channel.
	// Default: 1000
	BufferSize int

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		BufferSize:   1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder turns admission denial events into persisted audit records.
//
// It implements admission.Auditor. RecordDenial never blocks: events are
// handed to a background worker over a buffered channel, and dropped (with
// a counter and a warning) when the buffer is full.
type Recorder struct {
	storage Storage
	config  *RecorderConfig
	events  chan *Event
	dropped atomic.Int64
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
	once    sync.Once
}

// NewRecorder creates a recorder writing to the given storage backend and
// starts its background worker.
func NewRecorder(storage Storage, config *RecorderConfig) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		events:  make(chan *Event, config.BufferSize),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.runWriter()

	return r
}

// RecordDenial implements admission.Auditor.
func (r *Recorder) RecordDenial(event admission.DenialEvent) {
	record := &Event{
		ID:         uuid.NewString(),
		Time:       event.Time,
		Identity:   event.Identity,
		Operation:  event.Operation,
		RetryAfter: event.RetryAfter,
		NewBlock:   event.NewBlock,
	}

	select {
	case r.events <- record:
	default:
		if r.dropped.Add(1)%100 == 1 {
			r.logger.Warn("audit buffer full, dropping events",
				"dropped_total", r.dropped.Load(),
			)
		}
	}
}

// runWriter drains the event channel into storage.
func (r *Recorder) runWriter() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.events:
			r.write(event)
		case <-r.done:
			// Drain what is already buffered before exiting.
			for {
				select {
				case event := <-r.events:
					r.write(event)
				default:
					return
				}
			}
		}
	}
}

// write stores one event with the configured timeout.
func (r *Recorder) write(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, event); err != nil {
		r.logger.Error("failed to store audit event",
			"event_id", event.ID,
			"error", err,
		)
	}
}

// DroppedCount returns the number of events dropped due to a full buffer.
func (r *Recorder) DroppedCount() int64 {
	return r.dropped.Load()
}

// Close stops the worker, flushing buffered events first. The recorder must
// not be used after Close.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}
