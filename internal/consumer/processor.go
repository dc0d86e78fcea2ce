// Package consumer reads entry events from Kafka and hands them to a Handler.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/caseydemo/workout-app/internal/outbox"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Message) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Message is the decoded form of a record produced by the outbox dispatcher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	Key           string
	EventID       int64
	EventType     string
	Category      string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// EntryID extracts entry_id from the payload. Every entry event carries it.
func (m Message) EntryID() (string, error) {
	var body struct {
		EntryID string `json:"entry_id"`
	}
	if err := json.Unmarshal(m.Payload, &body); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	if body.EntryID == "" {
		return "", errors.New("payload missing entry_id")
	}
	return body.EntryID, nil
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *slog.Logger
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  slog.Default().With("component", "consumer"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes messages until the context is cancelled. Handler failures leave
// the offset uncommitted so the record is redelivered after a restart or rebalance.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Error("fetch failed", "error", err)
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Warn("dropping undecodable message",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", decodeErr)
			recordDecodeError(msg.Topic)
			// malformed records are committed so they cannot wedge the partition
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Error("commit after decode failure", "error", commitErr)
			}
			continue
		}

		if handleErr := p.handler.Handle(ctx, event); handleErr != nil {
			p.logger.Error("handler failed",
				"event_type", event.EventType, "category", event.Category, "offset", event.Offset, "error", handleErr)
			recordHandlerError(event)
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Error("commit failed", "offset", msg.Offset, "error", commitErr)
			continue
		}
		recordProcessed(event)
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) < 5 {
		return Message{}, fmt.Errorf("invalid payload length: %d", len(msg.Value))
	}
	if msg.Value[0] != 0 {
		return Message{}, fmt.Errorf("unexpected magic byte %d", msg.Value[0])
	}

	eventType, ok := headerValue(msg, outbox.HeaderEventType)
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	category, _ := headerValue(msg, outbox.HeaderCategory)
	schemaSubject, _ := headerValue(msg, outbox.HeaderSchemaSubject)

	var eventID int64
	if raw, ok := headerValue(msg, outbox.HeaderEventID); ok {
		id, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return Message{}, fmt.Errorf("parse event_id header: %w", err)
		}
		eventID = id
	}

	payload := json.RawMessage(append([]byte(nil), msg.Value[5:]...))
	if !json.Valid(payload) {
		return Message{}, errors.New("payload is not valid JSON")
	}

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		Key:           string(msg.Key),
		EventID:       eventID,
		EventType:     string(eventType),
		Category:      string(category),
		SchemaSubject: string(schemaSubject),
		SchemaID:      int(binary.BigEndian.Uint32(msg.Value[1:5])),
		Payload:       payload,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
