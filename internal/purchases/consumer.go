package purchases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/portfolios-backend/internal/portfolios"
	"github.com/angelmondragon/portfolios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/portfolios-backend/pkg/errors"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
)

// ConsumerName scopes the idempotency keys of this consumer.
const ConsumerName = "portfolio-purchase-hook"

var validate = validator.New(validator.WithRequiredStructEnabled())

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type recorder interface {
	RecordPurchase(ctx context.Context, clientID uuid.UUID, orderedAt time.Time) (portfolios.PurchaseResult, error)
}

type guard interface {
	Once(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

// Envelope is the message body published for order events.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId" validate:"required,uuid"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data" validate:"required"`
}

// OrderPlaced is the data of an order.placed event.
type OrderPlaced struct {
	OrderID   uuid.UUID `json:"orderId" validate:"required"`
	ClientID  uuid.UUID `json:"clientId" validate:"required"`
	OrderedAt time.Time `json:"orderedAt" validate:"required"`
}

// ConsumerParams wires the order events consumer.
type ConsumerParams struct {
	Logger       *logger.Logger
	Subscription subscriber
	Recorder     recorder
	Idempotency  guard
}

// Consumer feeds order.placed events into the purchase hook.
type Consumer struct {
	logg         *logger.Logger
	subscription subscriber
	recorder     recorder
	idempotency  guard
}

// NewConsumer builds the order events consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("purchase recorder required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	return &Consumer{
		logg:         params.Logger,
		subscription: params.Subscription,
		recorder:     params.Recorder,
		idempotency:  params.Idempotency,
	}, nil
}

// Run receives messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Process(ctx, msg.ID, msg.Attributes, msg.Data) == Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Decision tells the transport what to do with a message.
type Decision int

const (
	Ack Decision = iota
	Nack
)

// Process handles one message. Malformed messages are acked and logged since
// redelivery cannot fix them; transient failures are nacked.
func (c *Consumer) Process(ctx context.Context, messageID string, attributes map[string]string, data []byte) Decision {
	eventType := enums.OrderEventType(attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": string(eventType),
	})

	if eventType != enums.EventOrderPlaced {
		c.logg.Debug(logCtx, "skipping order event")
		return Ack
	}

	event, eventID, err := decode(data)
	if err != nil {
		c.logg.Error(logCtx, "discarding malformed order event", err)
		return Ack
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":  eventID.String(),
		"order_id":  event.OrderID.String(),
		"client_id": event.ClientID.String(),
	})

	ran, err := c.idempotency.Once(logCtx, ConsumerName, eventID, func(ctx context.Context) error {
		_, err := c.recorder.RecordPurchase(ctx, event.ClientID, event.OrderedAt)
		return err
	})
	if err != nil {
		if pkgerrors.IsRetryable(err) {
			c.logg.Error(logCtx, "purchase hook failed; will retry", err)
			return Nack
		}
		c.logg.Error(logCtx, "purchase hook rejected order event", err)
		return Ack
	}
	if !ran {
		c.logg.Info(logCtx, "order event already processed")
	}
	return Ack
}

func decode(data []byte) (OrderPlaced, uuid.UUID, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return OrderPlaced{}, uuid.Nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := validate.Struct(envelope); err != nil {
		return OrderPlaced{}, uuid.Nil, fmt.Errorf("invalid envelope: %w", err)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return OrderPlaced{}, uuid.Nil, fmt.Errorf("parse event id: %w", err)
	}
	var event OrderPlaced
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		return OrderPlaced{}, uuid.Nil, fmt.Errorf("decode order placed: %w", err)
	}
	if err := validate.Struct(event); err != nil {
		return OrderPlaced{}, uuid.Nil, fmt.Errorf("invalid order placed: %w", err)
	}
	return event, eventID, nil
}
