package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"tally/internal/amqp"
)

// Consumer delivers record change messages until ctx is done.
type Consumer interface {
	ConsumeRecordChanged(ctx context.Context, handler func(*amqp.RecordChangedMessage) error) error
}

// Purger drops derived state; cache.Manager implements it.
type Purger interface {
	PurgeAll() int
}

// RefreshWorker keeps this process's spend caches consistent with writes made
// by other processes sharing the same store.
type RefreshWorker struct {
	consumer  Consumer
	caches    Purger
	processed atomic.Int64
}

func NewRefreshWorker(consumer Consumer, caches Purger) *RefreshWorker {
	return &RefreshWorker{
		consumer: consumer,
		caches:   caches,
	}
}

// HandleRecordChanged processes a single record change message from AMQP
func (w *RefreshWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	if msg == nil {
		return errors.New("nil record changed message")
	}

	purged := w.caches.PurgeAll()
	w.processed.Add(1)

	slog.InfoContext(ctx, "Processed record change",
		"kind", msg.Kind,
		"id", msg.ID,
		"op", msg.Op,
		"purged_entries", purged,
		"timestamp", msg.Timestamp)
	return nil
}

// Run consumes messages until ctx is cancelled. A cancelled context is a clean
// shutdown and returns nil.
func (w *RefreshWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Refresh worker started")

	err := w.consumer.ConsumeRecordChanged(ctx, func(msg *amqp.RecordChangedMessage) error {
		return w.HandleRecordChanged(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.InfoContext(ctx, "Refresh worker stopped", "processed", w.processed.Load())
	return nil
}

// Processed reports how many messages have been handled.
func (w *RefreshWorker) Processed() int64 {
	return w.processed.Load()
}
