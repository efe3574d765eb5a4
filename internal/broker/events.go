package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"sales-ledger/internal/models"
	"sales-ledger/internal/util"

	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes row change notifications
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishChanges publishes change events keyed by owner
func (ep *EventPublisher) PublishChanges(ctx context.Context, events ...models.ChangeEvent) error {
	msgs := make([]Message, 0, len(events))
	for _, event := range events {
		msgs = append(msgs, Message{Key: ownerKey(event.OwnerID), Value: event})
	}
	if err := ep.producer.Publish(ctx, msgs...); err != nil {
		return err
	}
	for _, event := range events {
		util.ChangeEventsTotal.WithLabelValues(event.Table, "out").Inc()
	}
	return nil
}

func ownerKey(ownerID string) string {
	return fmt.Sprintf("owner-%s", ownerID)
}

// EventHandler routes incoming change events to a callback
type EventHandler struct {
	onChange func(context.Context, *models.ChangeEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnChange registers a handler for row change events
func (eh *EventHandler) OnChange(handler func(context.Context, *models.ChangeEvent) error) {
	eh.onChange = handler
}

// HandleMessage decodes a message and dispatches it
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.ChangeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal change event: %w", err)
	}

	if event.EventType != models.EventTypeRowChange {
		return nil
	}
	util.ChangeEventsTotal.WithLabelValues(event.Table, "in").Inc()

	if eh.onChange == nil {
		return nil
	}
	return eh.onChange(ctx, &event)
}
