package orders

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/outbox/payloads"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newOrder(t *testing.T) *Order {
	t.Helper()
	customer := uuid.New()
	o, err := New(NewOrderParams{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		CustomerID: &customer,
		Items: []types.OrderItem{{
			ProductID:      uuid.New(),
			Quantity:       100,
			UnitPrice:      1_000,
			Specifications: types.JSONMap{"material": "stainless"},
		}},
	}, baseTime)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	return o
}

func mustTransition(t *testing.T, o *Order, to enums.OrderStatus, at time.Time) {
	t.Helper()
	if err := o.TransitionTo(to, TransitionInput{}, at); err != nil {
		t.Fatalf("transition to %s: %v (violations %v)", to, err, pkgerrors.Violations(err))
	}
}

// quotedOrder returns an order sitting in customer_quote with pricing set.
func quotedOrder(t *testing.T) *Order {
	t.Helper()
	o := newOrder(t)
	mustTransition(t, o, enums.OrderStatusVendorSourcing, baseTime)
	if err := o.AssignVendor(uuid.New(), baseTime); err != nil {
		t.Fatalf("assign vendor: %v", err)
	}
	mustTransition(t, o, enums.OrderStatusVendorNegotiation, baseTime)
	if err := o.SetPricing(75_000, 100_000, baseTime); err != nil {
		t.Fatalf("set pricing: %v", err)
	}
	mustTransition(t, o, enums.OrderStatusCustomerQuote, baseTime)
	return o
}

func TestNewOrderDefaults(t *testing.T) {
	o := newOrder(t)
	if o.Status() != enums.OrderStatusNew || o.PaymentStatus() != enums.PaymentStatusUnpaid {
		t.Fatalf("unexpected initial state %s/%s", o.Status(), o.PaymentStatus())
	}
	if o.Currency != enums.CurrencyIDR {
		t.Fatalf("expected default currency, got %s", o.Currency)
	}
	if o.Version() != 1 || len(o.StatusHistory()) != 1 {
		t.Fatalf("unexpected version %d history %d", o.Version(), len(o.StatusHistory()))
	}
	if !strings.HasPrefix(o.OrderNumber, "ORD-20260310-") || len(o.OrderNumber) != len("ORD-20260310-ABCDEF") {
		t.Fatalf("unexpected order number %q", o.OrderNumber)
	}
}

func TestOrderNumberUsesIDSuffix(t *testing.T) {
	id := uuid.MustParse("0190c2a4-5b6e-7c1d-8e2f-00000a1b2c3d")
	if got := OrderNumber(id, baseTime); got != "ORD-20260310-1B2C3D" {
		t.Fatalf("unexpected order number %q", got)
	}
}

func TestNewOrderRejectsBadItems(t *testing.T) {
	_, err := New(NewOrderParams{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Items:    []types.OrderItem{{ProductID: uuid.New(), Quantity: 0}},
	}, baseTime)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetPricingComputesMarkup(t *testing.T) {
	o := newOrder(t)
	if err := o.SetPricing(75_000, 100_000, baseTime); err != nil {
		t.Fatalf("set pricing: %v", err)
	}
	if o.MarkupAmount() != 25_000 {
		t.Fatalf("expected markup 25000, got %d", o.MarkupAmount())
	}
	if o.MarkupPercentage().String() != "33.33" {
		t.Fatalf("expected 33.33%%, got %s", o.MarkupPercentage())
	}
	if err := o.SetPricing(-1, 100, baseTime); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative cost, got %v", err)
	}
}

func TestSkippingPaymentListsEveryViolation(t *testing.T) {
	o := quotedOrder(t)

	err := o.TransitionTo(enums.OrderStatusInProduction, TransitionInput{}, baseTime)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	violations := pkgerrors.Violations(err)
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %v", violations)
	}
	if violations[0] != "Customer Quote cannot move to In Production" {
		t.Fatalf("unexpected ordering violation %q", violations[0])
	}
	if violations[1] != "order must be partially or fully paid" {
		t.Fatalf("unexpected precondition violation %q", violations[1])
	}
	if o.Status() != enums.OrderStatusCustomerQuote {
		t.Fatalf("status must not change on failure, got %s", o.Status())
	}
}

func TestPreconditionsCollectAllFailures(t *testing.T) {
	o, err := New(NewOrderParams{ID: uuid.New(), TenantID: uuid.New()}, baseTime)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	got := o.Violations(enums.OrderStatusVendorSourcing)
	if len(got) != 2 {
		t.Fatalf("expected customer and items violations, got %v", got)
	}
	if v := o.Violations(enums.OrderStatusNew); len(v) != 1 || v[0] != "order is already new" {
		t.Fatalf("unexpected self transition violations %v", v)
	}
	if v := o.Violations("bogus"); len(v) != 1 {
		t.Fatalf("unexpected unknown status violations %v", v)
	}
}

func TestPaymentFlowToProduction(t *testing.T) {
	o := quotedOrder(t)
	dp := enums.PaymentTypeDP50
	if err := o.SelectPaymentType(dp, baseTime); err != nil {
		t.Fatalf("select payment type: %v", err)
	}
	mustTransition(t, o, enums.OrderStatusAwaitingPayment, baseTime)

	if err := o.ApplyPayment(49_999, baseTime); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	err := o.TransitionTo(enums.OrderStatusPartialPayment, TransitionInput{}, baseTime)
	if v := pkgerrors.Violations(err); len(v) != 1 || !strings.Contains(v[0], "below the down payment of 50000") {
		t.Fatalf("expected down payment violation, got %v", v)
	}
	if err := o.ApplyPayment(1, baseTime); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if o.PaymentStatus() != enums.PaymentStatusPartial {
		t.Fatalf("expected partial payment status, got %s", o.PaymentStatus())
	}
	mustTransition(t, o, enums.OrderStatusPartialPayment, baseTime)
	mustTransition(t, o, enums.OrderStatusInProduction, baseTime)

	if o.Outstanding() != 50_000 {
		t.Fatalf("expected 50000 outstanding, got %d", o.Outstanding())
	}
}

func TestApplyPaymentGuards(t *testing.T) {
	o := quotedOrder(t)
	if err := o.ApplyPayment(0, baseTime); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidPayment) {
		t.Fatalf("expected invalid payment for zero, got %v", err)
	}
	if err := o.ApplyPayment(100_001, baseTime); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidPayment) {
		t.Fatalf("expected invalid payment for overpay, got %v", err)
	}
	if err := o.ApplyPayment(100_000, baseTime); err != nil {
		t.Fatalf("apply full payment: %v", err)
	}
	if o.PaymentStatus() != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", o.PaymentStatus())
	}
	if err := o.SetPricing(75_000, 120_000, baseTime); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("pricing must freeze after payment, got %v", err)
	}
}

func TestBackwardMoveRejected(t *testing.T) {
	o := quotedOrder(t)
	err := o.TransitionTo(enums.OrderStatusVendorSourcing, TransitionInput{}, baseTime)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestCancelSideEffects(t *testing.T) {
	o := quotedOrder(t)
	actor := uuid.New()
	err := o.TransitionTo(enums.OrderStatusCancelled, TransitionInput{
		Actor:              &actor,
		CancellationReason: "customer withdrew",
	}, baseTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if o.CancelledAt() == nil || o.PaymentStatus() != enums.PaymentStatusCancelled {
		t.Fatalf("unexpected cancel state %v/%s", o.CancelledAt(), o.PaymentStatus())
	}
	if o.Metadata()["cancellation_reason"] != "customer withdrew" {
		t.Fatalf("missing cancellation reason in %v", o.Metadata())
	}
	if o.ActiveSLA() != nil {
		t.Fatal("terminal order must not keep an sla window")
	}
	if len(o.AvailableTransitions()) != 0 {
		t.Fatal("cancelled order has no next statuses")
	}
	last := o.StatusHistory()[len(o.StatusHistory())-1]
	if last.ChangedBy == nil || *last.ChangedBy != actor || *last.From != "customer_quote" {
		t.Fatalf("unexpected history entry %+v", last)
	}
}

func TestRefundValidatesAmount(t *testing.T) {
	o := quotedOrder(t)
	if err := o.ApplyPayment(50_000, baseTime); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	tooMuch := int64(60_000)
	err := o.TransitionTo(enums.OrderStatusRefunded, TransitionInput{RefundAmount: &tooMuch}, baseTime)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidPayment) {
		t.Fatalf("expected invalid payment, got %v", err)
	}
	amount := int64(50_000)
	if err := o.TransitionTo(enums.OrderStatusRefunded, TransitionInput{RefundAmount: &amount, RefundReason: "defect"}, baseTime); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if o.PaymentStatus() != enums.PaymentStatusRefunded || o.Metadata()["refund_amount"] != int64(50_000) {
		t.Fatalf("unexpected refund state %s %v", o.PaymentStatus(), o.Metadata())
	}
}

func TestShippingSideEffects(t *testing.T) {
	o := quotedOrder(t)
	if err := o.SelectPaymentType(enums.PaymentTypeFull100, baseTime); err != nil {
		t.Fatalf("select payment type: %v", err)
	}
	mustTransition(t, o, enums.OrderStatusAwaitingPayment, baseTime)
	if err := o.ApplyPayment(100_000, baseTime); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	mustTransition(t, o, enums.OrderStatusFullPayment, baseTime)

	eta := baseTime.Add(7 * 24 * time.Hour)
	if err := o.TransitionTo(enums.OrderStatusInProduction, TransitionInput{EstimatedDelivery: &eta}, baseTime); err != nil {
		t.Fatalf("start production: %v", err)
	}
	if err := o.AssignVendor(uuid.New(), baseTime); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("vendor must be frozen in production, got %v", err)
	}
	mustTransition(t, o, enums.OrderStatusQualityCheck, baseTime)
	mustTransition(t, o, enums.OrderStatusReadyToShip, baseTime)

	tracking := "  JNE123  "
	if err := o.TransitionTo(enums.OrderStatusShipped, TransitionInput{TrackingNumber: &tracking}, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if o.TrackingNumber() == nil || *o.TrackingNumber() != "JNE123" || o.ShippedAt() == nil {
		t.Fatalf("unexpected shipping state %v %v", o.TrackingNumber(), o.ShippedAt())
	}
	mustTransition(t, o, enums.OrderStatusDelivered, baseTime.Add(2*time.Hour))
	if o.DeliveredAt() == nil || !o.DeliveredAt().Equal(baseTime.Add(2*time.Hour)) {
		t.Fatalf("unexpected delivered at %v", o.DeliveredAt())
	}
	mustTransition(t, o, enums.OrderStatusCompleted, baseTime.Add(3*time.Hour))
	if !o.IsTerminal() || o.EstimatedDelivery() == nil {
		t.Fatal("expected completed order with eta")
	}
}

func TestTransitionEmitsStatusEvent(t *testing.T) {
	o := newOrder(t)
	mustTransition(t, o, enums.OrderStatusVendorSourcing, baseTime)
	events := o.PullEvents()
	if len(events) != 1 || events[0].Type != enums.EventOrderStatusChanged {
		t.Fatalf("unexpected events %+v", events)
	}
	payload, ok := events[0].Payload.(payloads.OrderStatusChangedEvent)
	if !ok || payload.From != enums.OrderStatusNew || payload.To != enums.OrderStatusVendorSourcing {
		t.Fatalf("unexpected payload %+v", events[0].Payload)
	}
	if len(o.PullEvents()) != 0 {
		t.Fatal("events must drain")
	}
}

func TestAvailableTransitionsCarryViolations(t *testing.T) {
	o := quotedOrder(t)
	got := o.AvailableTransitions()
	if len(got) != 3 {
		t.Fatalf("expected awaiting_payment plus side exits, got %+v", got)
	}
	if got[0].Status != enums.OrderStatusAwaitingPayment || got[0].Label != "Awaiting Payment" {
		t.Fatalf("unexpected first transition %+v", got[0])
	}
	if len(got[0].Violations) != 1 || got[0].Violations[0] != "payment type must be selected" {
		t.Fatalf("unexpected violations %v", got[0].Violations)
	}
	if len(got[1].Violations) != 0 {
		t.Fatalf("cancel should be open, got %v", got[1].Violations)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	o := newOrder(t)
	items := o.Items()
	items[0].Specifications["material"] = "brass"
	items[0].Quantity = 1
	if o.Items()[0].Quantity != 100 || o.Items()[0].Specifications["material"] != "stainless" {
		t.Fatal("items accessor leaked internal state")
	}
	history := o.StatusHistory()
	history[0].Reason = "mutated"
	if o.StatusHistory()[0].Reason == "mutated" {
		t.Fatal("history accessor leaked internal state")
	}

	actor := uuid.New()
	if err := o.TransitionTo(enums.OrderStatusVendorSourcing, TransitionInput{Actor: &actor}, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("transition: %v", err)
	}
	moved := o.StatusHistory()
	*moved[1].From = string(enums.OrderStatusCancelled)
	*moved[1].ChangedBy = uuid.New()
	stored := o.StatusHistory()[1]
	if *stored.From != string(enums.OrderStatusNew) || *stored.ChangedBy != actor {
		t.Fatalf("history entry rewritten through accessor: %+v", stored)
	}

	if err := o.AssignVendor(uuid.New(), baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("assign vendor: %v", err)
	}
	if err := o.TransitionTo(enums.OrderStatusVendorNegotiation, TransitionInput{}, baseTime.Add(2*time.Hour)); err != nil {
		t.Fatalf("transition: %v", err)
	}
	closed := o.SLAHistory()
	if len(closed) == 0 || closed[0].EndedAt == nil {
		t.Fatalf("expected a closed sla window, got %+v", closed)
	}
	*closed[0].EndedAt = baseTime.Add(-time.Hour)
	if got := o.SLAHistory()[0].EndedAt; !got.Equal(baseTime.Add(2 * time.Hour)) {
		t.Fatalf("sla history rewritten through accessor: %v", got)
	}
}
