package enums

import "fmt"

// OrderStatus is the lifecycle position of a brokered etching order.
type OrderStatus string

const (
	OrderStatusNew               OrderStatus = "new"
	OrderStatusVendorSourcing    OrderStatus = "vendor_sourcing"
	OrderStatusVendorNegotiation OrderStatus = "vendor_negotiation"
	OrderStatusCustomerQuote     OrderStatus = "customer_quote"
	OrderStatusAwaitingPayment   OrderStatus = "awaiting_payment"
	OrderStatusPartialPayment    OrderStatus = "partial_payment"
	OrderStatusFullPayment       OrderStatus = "full_payment"
	OrderStatusInProduction      OrderStatus = "in_production"
	OrderStatusQualityCheck      OrderStatus = "quality_check"
	OrderStatusReadyToShip       OrderStatus = "ready_to_ship"
	OrderStatusShipped           OrderStatus = "shipped"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusRefunded          OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusVendorSourcing,
	OrderStatusVendorNegotiation,
	OrderStatusCustomerQuote,
	OrderStatusAwaitingPayment,
	OrderStatusPartialPayment,
	OrderStatusFullPayment,
	OrderStatusInProduction,
	OrderStatusQualityCheck,
	OrderStatusReadyToShip,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// IsTerminal reports whether no further transitions leave the status.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// AllOrderStatuses returns the statuses in canonical lifecycle order.
func AllOrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}
