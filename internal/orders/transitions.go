package orders

import "github.com/etchbroker/makelar-backend/pkg/enums"

// forward lists the canonical next statuses. Cancelled and refunded are added
// to every non-terminal status by AllowedTransitions.
var forward = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusNew:               {enums.OrderStatusVendorSourcing},
	enums.OrderStatusVendorSourcing:    {enums.OrderStatusVendorNegotiation},
	enums.OrderStatusVendorNegotiation: {enums.OrderStatusCustomerQuote},
	enums.OrderStatusCustomerQuote:     {enums.OrderStatusAwaitingPayment},
	enums.OrderStatusAwaitingPayment:   {enums.OrderStatusPartialPayment, enums.OrderStatusFullPayment},
	enums.OrderStatusPartialPayment:    {enums.OrderStatusFullPayment, enums.OrderStatusInProduction},
	enums.OrderStatusFullPayment:       {enums.OrderStatusInProduction},
	enums.OrderStatusInProduction:      {enums.OrderStatusQualityCheck},
	enums.OrderStatusQualityCheck:      {enums.OrderStatusReadyToShip},
	enums.OrderStatusReadyToShip:       {enums.OrderStatusShipped},
	enums.OrderStatusShipped:           {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:         {enums.OrderStatusCompleted},
}

var sideExits = []enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusRefunded}

type statusInfo struct {
	label       string
	description string
}

var statusInfos = map[enums.OrderStatus]statusInfo{
	enums.OrderStatusNew:               {"New", "Order received from the customer"},
	enums.OrderStatusVendorSourcing:    {"Vendor Sourcing", "Looking for a vendor able to produce the order"},
	enums.OrderStatusVendorNegotiation: {"Vendor Negotiation", "Negotiating price and lead time with the vendor"},
	enums.OrderStatusCustomerQuote:     {"Customer Quote", "Price quotation sent to the customer"},
	enums.OrderStatusAwaitingPayment:   {"Awaiting Payment", "Waiting for the customer's payment"},
	enums.OrderStatusPartialPayment:    {"Partial Payment", "Down payment received"},
	enums.OrderStatusFullPayment:       {"Full Payment", "Order paid in full"},
	enums.OrderStatusInProduction:      {"In Production", "Vendor is producing the order"},
	enums.OrderStatusQualityCheck:      {"Quality Check", "Inspecting the produced goods"},
	enums.OrderStatusReadyToShip:       {"Ready to Ship", "Goods packed and waiting for pickup"},
	enums.OrderStatusShipped:           {"Shipped", "Goods handed to the courier"},
	enums.OrderStatusDelivered:         {"Delivered", "Customer received the goods"},
	enums.OrderStatusCompleted:         {"Completed", "Order closed"},
	enums.OrderStatusCancelled:         {"Cancelled", "Order cancelled"},
	enums.OrderStatusRefunded:          {"Refunded", "Payment returned to the customer"},
}

// AvailableTransition describes one status an order may move to next.
type AvailableTransition struct {
	Status      enums.OrderStatus `json:"status"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	Violations  []string          `json:"violations,omitempty"`
}

// AllowedTransitions returns the statuses reachable from from in display
// order. Terminal statuses return nothing.
func AllowedTransitions(from enums.OrderStatus) []enums.OrderStatus {
	if from.IsTerminal() || !from.IsValid() {
		return nil
	}
	next := append([]enums.OrderStatus(nil), forward[from]...)
	return append(next, sideExits...)
}

// CanTransition reports whether the ordering table allows from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range AllowedTransitions(from) {
		if candidate == to {
			return true
		}
	}
	return false
}

// Label is the human name of a status.
func Label(status enums.OrderStatus) string {
	if info, ok := statusInfos[status]; ok {
		return info.label
	}
	return string(status)
}

func describe(statuses []enums.OrderStatus) []AvailableTransition {
	out := make([]AvailableTransition, 0, len(statuses))
	for _, status := range statuses {
		info := statusInfos[status]
		out = append(out, AvailableTransition{Status: status, Label: info.label, Description: info.description})
	}
	return out
}
