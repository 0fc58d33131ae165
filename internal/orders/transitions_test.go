package orders

import (
	"testing"

	"github.com/etchbroker/makelar-backend/pkg/enums"
)

func TestAllowedTransitionsFollowCanonicalOrder(t *testing.T) {
	cases := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
		ok   bool
	}{
		{enums.OrderStatusNew, enums.OrderStatusVendorSourcing, true},
		{enums.OrderStatusNew, enums.OrderStatusVendorNegotiation, false},
		{enums.OrderStatusAwaitingPayment, enums.OrderStatusPartialPayment, true},
		{enums.OrderStatusAwaitingPayment, enums.OrderStatusFullPayment, true},
		{enums.OrderStatusPartialPayment, enums.OrderStatusFullPayment, true},
		{enums.OrderStatusFullPayment, enums.OrderStatusPartialPayment, false},
		{enums.OrderStatusShipped, enums.OrderStatusReadyToShip, false},
		{enums.OrderStatusShipped, enums.OrderStatusRefunded, true},
		{enums.OrderStatusNew, enums.OrderStatusCancelled, true},
		{enums.OrderStatusCompleted, enums.OrderStatusRefunded, false},
		{enums.OrderStatusCancelled, enums.OrderStatusNew, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestEveryNonTerminalStatusCanExit(t *testing.T) {
	for _, status := range enums.AllOrderStatuses() {
		next := AllowedTransitions(status)
		if status.IsTerminal() {
			if next != nil {
				t.Errorf("%s is terminal but allows %v", status, next)
			}
			continue
		}
		if len(next) < 3 {
			t.Errorf("%s should have a forward step and both side exits, got %v", status, next)
		}
	}
}

func TestLabelFallsBackToRawValue(t *testing.T) {
	if Label(enums.OrderStatusReadyToShip) != "Ready to Ship" {
		t.Fatal("unexpected label")
	}
	if Label("mystery") != "mystery" {
		t.Fatal("expected raw fallback")
	}
}
