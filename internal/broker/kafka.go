package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a new Kafka producer. Messages with the same key land on
// the same partition, so one owner's changes stay ordered.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Producer{writer: writer}
}

// Message is a keyed payload to publish
type Message struct {
	Key   string
	Value interface{}
}

// Publish writes a batch of messages in one request
func (p *Producer) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		value, err := json.Marshal(m.Value)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		out = append(out, kafka.Message{
			Key:   []byte(m.Key),
			Value: value,
			Time:  now,
		})
	}

	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("failed to write messages to kafka: %w", err)
	}
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer represents a Kafka consumer
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a new Kafka consumer. A new group starts from the
// latest offset: old changes are already reflected in the database.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &Consumer{reader: reader}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// MessageHandler is a function type for handling messages
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// StartConsuming fetches, handles and commits messages until ctx is done.
// A message whose handler fails is still committed: change events only
// trigger cache refreshes, and the next event refreshes again.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Println("Consumer context cancelled, stopping...")
				return ctx.Err()
			}
			log.Printf("Error fetching message: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handler(ctx, msg); err != nil {
			log.Printf("Error handling message at offset %d: %v", msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("Error committing message: %v", err)
		}
	}
}
