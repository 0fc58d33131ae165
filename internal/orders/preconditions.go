package orders

import (
	"fmt"

	"github.com/etchbroker/makelar-backend/internal/pricing"
	"github.com/etchbroker/makelar-backend/pkg/enums"
)

type rule func(o *Order) (string, bool)

var preconditions = map[enums.OrderStatus][]rule{
	enums.OrderStatusVendorSourcing: {
		must(func(o *Order) bool { return o.customerID != nil }, "customer must be assigned"),
		must(func(o *Order) bool { return len(o.items) > 0 }, "order must have at least one item"),
	},
	enums.OrderStatusVendorNegotiation: {
		must(func(o *Order) bool { return o.vendorID != nil }, "vendor must be assigned"),
	},
	enums.OrderStatusCustomerQuote: {
		must(func(o *Order) bool { return o.vendorCost > 0 }, "vendor cost must be greater than zero"),
		must(func(o *Order) bool { return o.customerPrice > 0 }, "customer price must be greater than zero"),
	},
	enums.OrderStatusAwaitingPayment: {
		must(func(o *Order) bool { return o.customerPrice > 0 }, "customer price must be greater than zero"),
		must(func(o *Order) bool { return o.paymentType != nil }, "payment type must be selected"),
	},
	enums.OrderStatusPartialPayment: {
		func(o *Order) (string, bool) {
			floor := pricing.DownPaymentFloor(o.customerPrice)
			return fmt.Sprintf("paid amount %d is below the down payment of %d", o.paidAmount, floor), o.paidAmount >= floor
		},
	},
	enums.OrderStatusFullPayment: {
		func(o *Order) (string, bool) {
			return fmt.Sprintf("paid amount %d does not cover the price of %d", o.paidAmount, o.customerPrice), o.paidAmount >= o.customerPrice
		},
	},
	enums.OrderStatusInProduction: {
		must(func(o *Order) bool {
			return o.status == enums.OrderStatusPartialPayment || o.status == enums.OrderStatusFullPayment
		}, "order must be partially or fully paid"),
		must(func(o *Order) bool { return o.vendorID != nil }, "vendor must be assigned"),
	},
}

func must(ok func(o *Order) bool, message string) rule {
	return func(o *Order) (string, bool) { return message, ok(o) }
}

// Violations lists every rule that blocks the move to to, including the
// ordering table itself. An empty result means the transition is allowed.
func (o *Order) Violations(to enums.OrderStatus) []string {
	var out []string
	if !to.IsValid() {
		return []string{fmt.Sprintf("unknown status %q", to)}
	}
	if o.status == to {
		out = append(out, fmt.Sprintf("order is already %s", to))
	} else if !CanTransition(o.status, to) {
		out = append(out, fmt.Sprintf("%s cannot move to %s", Label(o.status), Label(to)))
	}
	for _, check := range preconditions[to] {
		if message, ok := check(o); !ok {
			out = append(out, message)
		}
	}
	return out
}
