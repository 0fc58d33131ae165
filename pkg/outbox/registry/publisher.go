package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/etchbroker/makelar-backend/pkg/config"
	"github.com/etchbroker/makelar-backend/pkg/db/models"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/outbox"
	"github.com/etchbroker/makelar-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.QuoteTopic == "" {
		return nil, fmt.Errorf("quote topic is required")
	}
	if cfg.OrderTopic == "" {
		return nil, fmt.Errorf("order topic is required")
	}
	if cfg.PaymentTopic == "" {
		return nil, fmt.Errorf("payment topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventQuoteCreated,
			AggregateType:  enums.AggregateQuote,
			Topic:          cfg.QuoteTopic,
			PayloadFactory: func() interface{} { return &payloads.QuoteCreatedEvent{} },
		},
		{
			EventType:      enums.EventQuoteSentToVendor,
			AggregateType:  enums.AggregateQuote,
			Topic:          cfg.QuoteTopic,
			PayloadFactory: func() interface{} { return &payloads.QuoteSentToVendorEvent{} },
		},
		{
			EventType:      enums.EventQuoteStatusChanged,
			AggregateType:  enums.AggregateQuote,
			Topic:          cfg.QuoteTopic,
			PayloadFactory: func() interface{} { return &payloads.QuoteStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventVendorRespondedToQuote,
			AggregateType:  enums.AggregateQuote,
			Topic:          cfg.QuoteTopic,
			PayloadFactory: func() interface{} { return &payloads.VendorRespondedToQuoteEvent{} },
		},
		{
			EventType:      enums.EventOrderStatusChanged,
			AggregateType:  enums.AggregateOrder,
			Topic:          cfg.OrderTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventOrderSLABreached,
			AggregateType:  enums.AggregateOrder,
			Topic:          cfg.OrderTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderSLAEvent{} },
		},
		{
			EventType:      enums.EventOrderSLAEscalated,
			AggregateType:  enums.AggregateOrder,
			Topic:          cfg.OrderTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderSLAEvent{} },
		},
		{
			EventType:      enums.EventPaymentRecorded,
			AggregateType:  enums.AggregatePayment,
			Topic:          cfg.PaymentTopic,
			PayloadFactory: func() interface{} { return &payloads.PaymentRecordedEvent{} },
		},
		{
			EventType:      enums.EventVendorPayoutRecorded,
			AggregateType:  enums.AggregatePayment,
			Topic:          cfg.PaymentTopic,
			PayloadFactory: func() interface{} { return &payloads.PaymentRecordedEvent{} },
		},
	} {
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
