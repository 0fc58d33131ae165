package payloads

import (
	"time"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/google/uuid"
)

// QuoteCreatedEvent announces a new draft quote.
type QuoteCreatedEvent struct {
	QuoteID      uuid.UUID      `json:"quote_id"`
	QuoteNumber  string         `json:"quote_number"`
	OrderID      uuid.UUID      `json:"order_id"`
	VendorID     uuid.UUID      `json:"vendor_id"`
	InitialOffer int64          `json:"initial_offer"`
	Currency     enums.Currency `json:"currency"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
}

// QuoteSentToVendorEvent is emitted when a quote goes out to the vendor.
type QuoteSentToVendorEvent struct {
	QuoteID     uuid.UUID      `json:"quote_id"`
	OrderID     uuid.UUID      `json:"order_id"`
	VendorID    uuid.UUID      `json:"vendor_id"`
	LatestOffer int64          `json:"latest_offer"`
	Currency    enums.Currency `json:"currency"`
	SentAt      time.Time      `json:"sent_at"`
}

// QuoteStatusChangedEvent is emitted for every quote transition.
type QuoteStatusChangedEvent struct {
	QuoteID   uuid.UUID         `json:"quote_id"`
	OrderID   uuid.UUID         `json:"order_id"`
	VendorID  uuid.UUID         `json:"vendor_id"`
	From      enums.QuoteStatus `json:"from"`
	To        enums.QuoteStatus `json:"to"`
	Reason    string            `json:"reason"`
	ChangedBy *uuid.UUID        `json:"changed_by,omitempty"`
}

// VendorRespondedToQuoteEvent carries a vendor's answer.
type VendorRespondedToQuoteEvent struct {
	QuoteID      uuid.UUID           `json:"quote_id"`
	OrderID      uuid.UUID           `json:"order_id"`
	VendorID     uuid.UUID           `json:"vendor_id"`
	Response     enums.QuoteResponse `json:"response"`
	Status       enums.QuoteStatus   `json:"status"`
	CounterOffer *int64              `json:"counter_offer,omitempty"`
	Round        int                 `json:"round"`
	Notes        string              `json:"notes,omitempty"`
}

// OrderStatusChangedEvent is emitted for every order transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Reason      string            `json:"reason,omitempty"`
	ChangedBy   *uuid.UUID        `json:"changed_by,omitempty"`
}

// OrderSLAEvent reports an SLA breach or escalation for the active status.
type OrderSLAEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	Status         enums.OrderStatus `json:"status"`
	DueAt          time.Time         `json:"due_at"`
	ElapsedMinutes int               `json:"elapsed_minutes"`
	Level          string            `json:"level,omitempty"`
	Channel        string            `json:"channel,omitempty"`
}

// PaymentRecordedEvent is emitted after a payment and its allocations commit.
type PaymentRecordedEvent struct {
	OrderID       uuid.UUID                  `json:"order_id"`
	TransactionID uuid.UUID                  `json:"transaction_id"`
	Direction     enums.TransactionDirection `json:"direction"`
	Type          enums.TransactionType      `json:"type"`
	Amount        int64                      `json:"amount"`
	Currency      enums.Currency             `json:"currency"`
	PaidAmount    int64                      `json:"paid_amount"`
	Allocations   []AllocationLine           `json:"allocations"`
}

// AllocationLine summarises one allocation row.
type AllocationLine struct {
	Type       enums.AllocationType `json:"type"`
	Amount     int64                `json:"amount"`
	Percentage string               `json:"percentage"`
}
