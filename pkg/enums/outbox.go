package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateQuote   OutboxAggregateType = "quote"
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateQuote,
	AggregateOrder,
	AggregatePayment,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventQuoteCreated           OutboxEventType = "quote_created"
	EventQuoteSentToVendor      OutboxEventType = "quote_sent_to_vendor"
	EventQuoteStatusChanged     OutboxEventType = "quote_status_changed"
	EventVendorRespondedToQuote OutboxEventType = "vendor_responded_to_quote"
	EventOrderStatusChanged     OutboxEventType = "order_status_changed"
	EventOrderSLABreached       OutboxEventType = "order_sla_breached"
	EventOrderSLAEscalated      OutboxEventType = "order_sla_escalated"
	EventPaymentRecorded        OutboxEventType = "payment_recorded"
	EventVendorPayoutRecorded   OutboxEventType = "vendor_payout_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventQuoteCreated,
	EventQuoteSentToVendor,
	EventQuoteStatusChanged,
	EventVendorRespondedToQuote,
	EventOrderStatusChanged,
	EventOrderSLABreached,
	EventOrderSLAEscalated,
	EventPaymentRecorded,
	EventVendorPayoutRecorded,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
