// Package events publishes the storefront intent journal to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"storefront/internal/store"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "events").Logger()

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// IntentEvent is the payload written for each dispatched intent.
type IntentEvent struct {
	EventID   string    `json:"eventId"`
	Intent    string    `json:"intent"`
	ShopperID string    `json:"shopperId"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher implements store.Journal on top of a Kafka writer.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewPublisher(writer *kafka.Writer) *Publisher {
	return newPublisher(writer)
}

func newPublisher(w messageWriter) *Publisher {
	return &Publisher{writer: w, timeout: 5 * time.Second}
}

// Record publishes rec. The key is intent.<name>.<shopperId> so one
// shopper's intents land on one partition in order.
func (p *Publisher) Record(ctx context.Context, rec store.Record) error {
	event := IntentEvent{
		EventID:   uuid.NewString(),
		Intent:    string(rec.Intent),
		ShopperID: rec.ShopperID,
		Outcome:   rec.Outcome,
		Error:     rec.Error,
		At:        rec.At,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// intent.addToCart.user123
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("intent.%s.%s", rec.Intent, rec.ShopperID)),
		Value: payload,
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error().Err(err).Msgf("Error publishing intent %s", rec.Intent)
		return err
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
