package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"PShare/logger"
	"PShare/tools/safe"

	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Journal queues records and hands them to a Sink on one worker goroutine.
// Record never blocks; a full queue drops the record.
type Journal struct {
	sink Sink

	mu     sync.RWMutex
	closed bool
	queue  chan TransferRecord
	done   chan struct{}

	sinkOnce sync.Once
	sinkErr  error

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewJournal starts the worker. size below one means 1024.
func NewJournal(sink Sink, size int) *Journal {
	if size < 1 {
		size = 1024
	}
	j := &Journal{
		sink:  sink,
		queue: make(chan TransferRecord, size),
		done:  make(chan struct{}),
	}
	safe.Go("events.journal", j.run)
	return j
}

func (j *Journal) Record(rec TransferRecord) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.dropped.Add(1)
		return
	}
	select {
	case j.queue <- rec:
	default:
		j.dropped.Add(1)
		logger.Warn("[journal] queue full, record dropped", zap.String("id", rec.ID), zap.String("outcome", string(rec.Outcome)))
	}
}

func (j *Journal) run() {
	defer close(j.done)
	for rec := range j.queue {
		j.publish(rec)
	}
}

func (j *Journal) publish(rec TransferRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err := safe.Run(func() error { return j.sink.Publish(ctx, rec) })
	if err != nil {
		j.failed.Add(1)
		logger.Warn("[journal] publish failed", zap.String("id", rec.ID), zap.Error(err))
	}
}

// Close stops intake, drains what is queued, then closes the sink.
// It gives up waiting when ctx ends.
func (j *Journal) Close(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	j.sinkOnce.Do(func() { j.sinkErr = j.sink.Close() })
	return j.sinkErr
}

// Dropped counts records that never reached the sink queue.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Failed counts records the sink rejected.
func (j *Journal) Failed() int64 { return j.failed.Load() }
