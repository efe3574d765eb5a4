package worker

import (
	"context"
	"log"

	"sales-ledger/internal/broker"
	"sales-ledger/internal/models"
)

// ChangeHandler reacts to a row change made by another instance
type ChangeHandler interface {
	HandleChange(ctx context.Context, event *models.ChangeEvent) error
}

// ChangeWorker consumes ledger change events and keeps this instance's
// cached sale lists in step with writes made elsewhere.
type ChangeWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewChangeWorker creates a new change worker
func NewChangeWorker(consumer *broker.Consumer, handler ChangeHandler) *ChangeWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnChange(handler.HandleChange)

	return &ChangeWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start blocks consuming until ctx is cancelled
func (w *ChangeWorker) Start(ctx context.Context) error {
	log.Println("Starting change worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ChangeWorker) Stop() error {
	log.Println("Stopping change worker...")
	return w.consumer.Close()
}
