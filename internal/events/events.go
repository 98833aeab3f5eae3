package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	EventCartItemAdded   = "cart.item.added"
	EventCartItemUpdated = "cart.item.updated"
	EventCartItemRemoved = "cart.item.removed"
	EventProductDeleted  = "product.deleted"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type CartItemPayload struct {
	UserID    uint `json:"user_id"`
	CartID    uint `json:"cart_id"`
	ItemID    uint `json:"item_id"`
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type ProductDeletedPayload struct {
	ProductID uint `json:"product_id"`
}

// Sink delivers an encoded envelope to a broker. The event type doubles as topic / routing key.
type Sink interface {
	Send(ctx context.Context, topic string, key, body []byte) error
	Close() error
}

// Publisher is the dependency services publish through.
type Publisher interface {
	Publish(ctx context.Context, eventType, correlationID string, payload interface{}) error
}

// Bus encodes events into envelopes and hands them to a Sink.
type Bus struct {
	sink     Sink
	producer string
	now      func() time.Time
}

// NewBus creates a Bus that stamps envelopes with producer.
func NewBus(sink Sink, producer string) *Bus {
	return &Bus{sink: sink, producer: producer, now: time.Now}
}

func (b *Bus) Publish(ctx context.Context, eventType, correlationID string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	body, err := json.Marshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    b.now().UTC(),
		Producer:      b.producer,
		CorrelationID: correlationID,
		Payload:       raw,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", eventType, err)
	}

	if err := b.sink.Send(ctx, eventType, []byte(correlationID), body); err != nil {
		return fmt.Errorf("failed to send %s: %w", eventType, err)
	}
	return nil
}

// Close closes the underlying sink.
func (b *Bus) Close() error {
	return b.sink.Close()
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, interface{}) error { return nil }

// Decode unwraps an envelope's payload into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// Audit logs one encoded envelope. Malformed bodies are rejected so the broker can drop them.
func Audit(body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("malformed event: %w", err)
	}

	switch env.EventType {
	case EventCartItemAdded, EventCartItemUpdated, EventCartItemRemoved:
		p, err := Decode[CartItemPayload](env)
		if err != nil {
			return err
		}
		log.Printf("audit: %s user=%d cart=%d item=%d product=%d quantity=%d",
			env.EventType, p.UserID, p.CartID, p.ItemID, p.ProductID, p.Quantity)
	case EventProductDeleted:
		p, err := Decode[ProductDeletedPayload](env)
		if err != nil {
			return err
		}
		log.Printf("audit: %s product=%d", env.EventType, p.ProductID)
	default:
		log.Printf("audit: unknown event %s (%s)", env.EventType, env.EventID)
	}
	return nil
}
