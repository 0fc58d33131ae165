package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/etchbroker/makelar-backend/internal/pricing"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/outbox/payloads"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

// Order is a customer purchase brokered to one vendor. Status, money fields
// and the audit trail only change through its methods.
type Order struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	OrderNumber string
	Currency    enums.Currency
	CreatedAt   time.Time
	UpdatedAt   time.Time

	customerID        *uuid.UUID
	vendorID          *uuid.UUID
	items             []types.OrderItem
	status            enums.OrderStatus
	paymentType       *enums.PaymentType
	paymentStatus     enums.PaymentStatus
	vendorCost        int64
	customerPrice     int64
	markupAmount      int64
	markupPercentage  decimal.Decimal
	paidAmount        int64
	statusHistory     []types.StatusChange
	activeSLA         *types.SLAWindow
	slaHistory        []types.SLAWindow
	metadata          types.JSONMap
	trackingNumber    *string
	estimatedDelivery *time.Time
	shippedAt         *time.Time
	deliveredAt       *time.Time
	cancelledAt       *time.Time
	version           int
	events            []Event
}

type NewOrderParams struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	CustomerID *uuid.UUID
	Items      []types.OrderItem
	Currency   enums.Currency
	Metadata   types.JSONMap
	CreatedBy  *uuid.UUID
}

// OrderNumber formats ORD-{YYYYMMDD}-{6 hex chars of the id}.
func OrderNumber(id uuid.UUID, at time.Time) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), strings.ToUpper(hex[len(hex)-6:]))
}

// New creates an order in status new.
func New(p NewOrderParams, now time.Time) (*Order, error) {
	if p.ID == uuid.Nil {
		return nil, pkgerrors.InvalidArgument("id", "order id is required")
	}
	if p.TenantID == uuid.Nil {
		return nil, pkgerrors.InvalidArgument("tenant_id", "tenant id is required")
	}
	if p.Currency == "" {
		p.Currency = enums.DefaultCurrency
	}
	if !p.Currency.IsValid() {
		return nil, pkgerrors.InvalidArgument("currency", "unsupported currency")
	}
	if err := validateItems(p.Items); err != nil {
		return nil, err
	}
	return &Order{
		ID:               p.ID,
		TenantID:         p.TenantID,
		OrderNumber:      OrderNumber(p.ID, now),
		Currency:         p.Currency,
		CreatedAt:        now,
		UpdatedAt:        now,
		customerID:       p.CustomerID,
		items:            cloneItems(p.Items),
		status:           enums.OrderStatusNew,
		paymentStatus:    enums.PaymentStatusUnpaid,
		markupPercentage: decimal.Zero,
		metadata:         p.Metadata.Clone(),
		version:          1,
		statusHistory: []types.StatusChange{{
			To:        string(enums.OrderStatusNew),
			ChangedBy: p.CreatedBy,
			ChangedAt: now,
			Reason:    "Order created",
		}},
	}, nil
}

func (o *Order) Status() enums.OrderStatus          { return o.status }
func (o *Order) CustomerID() *uuid.UUID             { return o.customerID }
func (o *Order) VendorID() *uuid.UUID               { return o.vendorID }
func (o *Order) PaymentType() *enums.PaymentType    { return o.paymentType }
func (o *Order) PaymentStatus() enums.PaymentStatus { return o.paymentStatus }
func (o *Order) VendorCost() int64                  { return o.vendorCost }
func (o *Order) CustomerPrice() int64               { return o.customerPrice }
func (o *Order) MarkupAmount() int64                { return o.markupAmount }
func (o *Order) MarkupPercentage() decimal.Decimal  { return o.markupPercentage }
func (o *Order) PaidAmount() int64                  { return o.paidAmount }
func (o *Order) Outstanding() int64                 { return o.customerPrice - o.paidAmount }
func (o *Order) TrackingNumber() *string            { return o.trackingNumber }
func (o *Order) EstimatedDelivery() *time.Time      { return o.estimatedDelivery }
func (o *Order) ShippedAt() *time.Time              { return o.shippedAt }
func (o *Order) DeliveredAt() *time.Time            { return o.deliveredAt }
func (o *Order) CancelledAt() *time.Time            { return o.cancelledAt }
func (o *Order) Version() int                       { return o.version }
func (o *Order) IsTerminal() bool                   { return o.status.IsTerminal() }
func (o *Order) Metadata() types.JSONMap            { return o.metadata.Clone() }
func (o *Order) Items() []types.OrderItem           { return cloneItems(o.items) }
func (o *Order) ActiveSLA() *types.SLAWindow        { return cloneWindow(o.activeSLA) }
func (o *Order) StatusHistory() []types.StatusChange {
	return types.CloneStatusHistory(o.statusHistory)
}
func (o *Order) SLAHistory() []types.SLAWindow {
	out := make([]types.SLAWindow, len(o.slaHistory))
	for i, w := range o.slaHistory {
		out[i] = w.Clone()
	}
	return out
}

// AssignCustomer sets the ordering customer. Once the order has left new the
// customer can no longer change.
func (o *Order) AssignCustomer(customerID uuid.UUID, now time.Time) error {
	if customerID == uuid.Nil {
		return pkgerrors.InvalidArgument("customer_id", "customer id is required")
	}
	if o.status != enums.OrderStatusNew {
		return o.frozen("customer")
	}
	o.customerID = &customerID
	o.UpdatedAt = now
	return nil
}

// AssignVendor sets the producing vendor. It is fixed once production starts.
func (o *Order) AssignVendor(vendorID uuid.UUID, now time.Time) error {
	if vendorID == uuid.Nil {
		return pkgerrors.InvalidArgument("vendor_id", "vendor id is required")
	}
	if o.IsTerminal() || o.productionStarted() {
		return o.frozen("vendor")
	}
	o.vendorID = &vendorID
	o.UpdatedAt = now
	return nil
}

// SetItems replaces the ordered products while the order is still being sourced.
func (o *Order) SetItems(items []types.OrderItem, now time.Time) error {
	if !o.commercialOpen() {
		return o.frozen("items")
	}
	if err := validateItems(items); err != nil {
		return err
	}
	o.items = cloneItems(items)
	o.UpdatedAt = now
	return nil
}

// SetPricing stores the negotiated vendor cost and customer price and
// recomputes the markup.
func (o *Order) SetPricing(vendorCost, customerPrice int64, now time.Time) error {
	if vendorCost < 0 {
		return pkgerrors.InvalidArgument("vendor_cost", "vendor cost must not be negative")
	}
	if customerPrice < 0 {
		return pkgerrors.InvalidArgument("customer_price", "customer price must not be negative")
	}
	if !o.commercialOpen() {
		return o.frozen("pricing")
	}
	markup := pricing.CalculateMarkup(vendorCost, customerPrice)
	o.vendorCost = vendorCost
	o.customerPrice = customerPrice
	o.markupAmount = customerPrice - vendorCost
	o.markupPercentage = markup.MarkupPercentage
	o.UpdatedAt = now
	return nil
}

// SelectPaymentType chooses between a 50% down payment and full prepayment.
func (o *Order) SelectPaymentType(paymentType enums.PaymentType, now time.Time) error {
	if !paymentType.IsValid() {
		return pkgerrors.InvalidArgument("payment_type", "payment type must be dp_50 or full_100")
	}
	if !o.commercialOpen() {
		return o.frozen("payment type")
	}
	o.paymentType = &paymentType
	o.UpdatedAt = now
	return nil
}

// ApplyPayment adds a collected customer amount. The total may never exceed
// the customer price.
func (o *Order) ApplyPayment(amount int64, now time.Time) error {
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidPayment, "payment amount must be greater than zero").
			WithDetails(map[string]any{"amount": amount})
	}
	if o.IsTerminal() {
		return o.frozen("payments")
	}
	if o.paidAmount+amount > o.customerPrice {
		return pkgerrors.New(pkgerrors.CodeInvalidPayment, "payment exceeds the outstanding balance").
			WithDetails(map[string]any{
				"amount":         amount,
				"paid_amount":    o.paidAmount,
				"customer_price": o.customerPrice,
				"outstanding":    o.Outstanding(),
			})
	}
	o.paidAmount += amount
	if o.paidAmount >= o.customerPrice {
		o.paymentStatus = enums.PaymentStatusPaid
	} else {
		o.paymentStatus = enums.PaymentStatusPartial
	}
	o.UpdatedAt = now
	return nil
}

// TransitionInput carries the actor, reason and the optional side-effect
// data some target statuses accept.
type TransitionInput struct {
	Actor              *uuid.UUID
	Reason             string
	QuotationAmount    *int64
	EstimatedDelivery  *time.Time
	TrackingNumber     *string
	DeliveredAt        *time.Time
	CancellationReason string
	RefundAmount       *int64
	RefundReason       string
	SLA                SLAPolicies
}

// TransitionTo validates every rule for to and, when none is violated, moves
// the order, applies side effects and rolls the SLA window.
func (o *Order) TransitionTo(to enums.OrderStatus, in TransitionInput, now time.Time) error {
	if violations := o.Violations(to); len(violations) > 0 {
		return pkgerrors.InvalidTransition("order", string(o.status), string(to), violations...)
	}
	if err := o.validateSideEffects(to, in); err != nil {
		return err
	}
	policies := in.SLA
	if policies == nil {
		policies = DefaultSLAPolicies()
	}

	from := o.status
	o.closeSLA(now)
	o.status = to
	o.applySideEffects(to, in, now)
	o.startSLA(policies, to, now)

	reason := in.Reason
	if reason == "" {
		reason = fmt.Sprintf("Status changed from %s to %s", Label(from), Label(to))
	}
	fromRaw := string(from)
	o.statusHistory = append(o.statusHistory, types.StatusChange{
		From:      &fromRaw,
		To:        string(to),
		ChangedBy: in.Actor,
		ChangedAt: now,
		Reason:    reason,
	})
	o.UpdatedAt = now
	o.record(enums.EventOrderStatusChanged, now, in.Actor, payloads.OrderStatusChangedEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		From:        from,
		To:          to,
		Reason:      reason,
		ChangedBy:   in.Actor,
	})
	return nil
}

// AvailableTransitions lists the next statuses with any rule currently
// blocking each of them.
func (o *Order) AvailableTransitions() []AvailableTransition {
	out := describe(AllowedTransitions(o.status))
	for i := range out {
		out[i].Violations = o.Violations(out[i].Status)
	}
	return out
}

func (o *Order) validateSideEffects(to enums.OrderStatus, in TransitionInput) error {
	switch to {
	case enums.OrderStatusRefunded:
		if in.RefundAmount != nil && (*in.RefundAmount <= 0 || *in.RefundAmount > o.paidAmount) {
			return pkgerrors.New(pkgerrors.CodeInvalidPayment, "refund must be positive and at most the paid amount").
				WithDetails(map[string]any{"refund_amount": *in.RefundAmount, "paid_amount": o.paidAmount})
		}
	case enums.OrderStatusCustomerQuote:
		if in.QuotationAmount != nil && *in.QuotationAmount <= 0 {
			return pkgerrors.InvalidArgument("quotation_amount", "quotation amount must be positive")
		}
	}
	return nil
}

func (o *Order) applySideEffects(to enums.OrderStatus, in TransitionInput, now time.Time) {
	switch to {
	case enums.OrderStatusCustomerQuote:
		if in.QuotationAmount != nil {
			o.setMeta("quotation_amount", *in.QuotationAmount)
			o.setMeta("quotation_date", now.Format(time.RFC3339))
		}
	case enums.OrderStatusInProduction:
		if in.EstimatedDelivery != nil {
			at := *in.EstimatedDelivery
			o.estimatedDelivery = &at
		}
	case enums.OrderStatusShipped:
		shipped := now
		o.shippedAt = &shipped
		if in.TrackingNumber != nil && strings.TrimSpace(*in.TrackingNumber) != "" {
			tracking := strings.TrimSpace(*in.TrackingNumber)
			o.trackingNumber = &tracking
		}
	case enums.OrderStatusDelivered:
		delivered := now
		if in.DeliveredAt != nil {
			delivered = *in.DeliveredAt
		}
		o.deliveredAt = &delivered
	case enums.OrderStatusCancelled:
		cancelled := now
		o.cancelledAt = &cancelled
		o.paymentStatus = enums.PaymentStatusCancelled
		if in.CancellationReason != "" {
			o.setMeta("cancellation_reason", in.CancellationReason)
			o.setMeta("cancelled_at", now.Format(time.RFC3339))
		}
	case enums.OrderStatusRefunded:
		o.paymentStatus = enums.PaymentStatusRefunded
		if in.RefundAmount != nil {
			o.setMeta("refund_amount", *in.RefundAmount)
			o.setMeta("refunded_at", now.Format(time.RFC3339))
			if in.RefundReason != "" {
				o.setMeta("refund_reason", in.RefundReason)
			}
		}
	}
}

func (o *Order) setMeta(key string, value any) {
	if o.metadata == nil {
		o.metadata = types.JSONMap{}
	}
	o.metadata[key] = value
}

// commercialOpen reports whether items, price and payment terms may still be
// edited: before any money was collected and before the order closed.
func (o *Order) commercialOpen() bool {
	switch o.status {
	case enums.OrderStatusNew, enums.OrderStatusVendorSourcing, enums.OrderStatusVendorNegotiation,
		enums.OrderStatusCustomerQuote, enums.OrderStatusAwaitingPayment:
		return o.paidAmount == 0
	}
	return false
}

func (o *Order) productionStarted() bool {
	for _, status := range enums.AllOrderStatuses() {
		switch status {
		case enums.OrderStatusInProduction:
			return true
		case o.status:
			return false
		}
	}
	return true
}

func (o *Order) frozen(field string) error {
	return pkgerrors.InvalidTransition("order", string(o.status), string(o.status),
		fmt.Sprintf("%s cannot change while the order is %s", field, Label(o.status)))
}

func validateItems(items []types.OrderItem) error {
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.InvalidArgument(fmt.Sprintf("items[%d].product_id", i), "product id is required")
		}
		if item.Quantity < 1 {
			return pkgerrors.InvalidArgument(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		if item.UnitPrice < 0 {
			return pkgerrors.InvalidArgument(fmt.Sprintf("items[%d].unit_price", i), "unit price must not be negative")
		}
	}
	return nil
}

func cloneItems(items []types.OrderItem) []types.OrderItem {
	if items == nil {
		return nil
	}
	out := make([]types.OrderItem, len(items))
	for i, item := range items {
		item.Specifications = item.Specifications.Clone()
		out[i] = item
	}
	return out
}

func cloneWindow(w *types.SLAWindow) *types.SLAWindow {
	if w == nil {
		return nil
	}
	out := w.Clone()
	return &out
}
