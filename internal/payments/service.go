package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/internal/orders"
	"github.com/etchbroker/makelar-backend/pkg/clock"
	"github.com/etchbroker/makelar-backend/pkg/db/models"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/ids"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/metrics"
	"github.com/etchbroker/makelar-backend/pkg/outbox"
	"github.com/etchbroker/makelar-backend/pkg/outbox/payloads"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
)

const defaultMethod = "bank_transfer"

// Customer money is accepted once the quote was agreed and until the order
// closes.
var customerPaymentStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusAwaitingPayment: true,
	enums.OrderStatusPartialPayment:  true,
	enums.OrderStatusFullPayment:     true,
	enums.OrderStatusInProduction:    true,
	enums.OrderStatusQualityCheck:    true,
	enums.OrderStatusReadyToShip:     true,
	enums.OrderStatusShipped:         true,
	enums.OrderStatusDelivered:       true,
}

// Vendors are paid once the customer paid something.
var vendorPayoutStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusPartialPayment: true,
	enums.OrderStatusFullPayment:    true,
	enums.OrderStatusInProduction:   true,
	enums.OrderStatusQualityCheck:   true,
	enums.OrderStatusReadyToShip:    true,
	enums.OrderStatusShipped:        true,
	enums.OrderStatusDelivered:      true,
	enums.OrderStatusCompleted:      true,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service records payments and their allocations.
type Service interface {
	RecordCustomerPayment(ctx context.Context, input CustomerPaymentInput) (*models.PaymentTransaction, error)
	RecordVendorPayout(ctx context.Context, input VendorPayoutInput) (*models.PaymentTransaction, error)
	Preview(ctx context.Context, orderID uuid.UUID, amount int64) ([]Allocation, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error)
	MarkAllocationPaid(ctx context.Context, allocationID uuid.UUID) error
}

type CustomerPaymentInput struct {
	OrderID   uuid.UUID
	Amount    int64
	Method    string
	Reference *string
	PaidAt    *time.Time
}

type VendorPayoutInput struct {
	OrderID   uuid.UUID
	Type      enums.TransactionType
	Amount    int64
	Method    string
	Reference *string
	PaidAt    *time.Time
}

type ServiceParams struct {
	Repo    Repository
	Orders  orders.Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Clock   clock.Clock
	IDs     ids.Generator
	Metrics *metrics.DomainMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	orders  orders.Repository
	tx      txRunner
	outbox  outboxPublisher
	clock   clock.Clock
	ids     ids.Generator
	metrics *metrics.DomainMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.System()
	}
	gen := params.IDs
	if gen == nil {
		gen = ids.Default()
	}
	return &service{
		repo:    params.Repo,
		orders:  params.Orders,
		tx:      params.Tx,
		outbox:  params.Outbox,
		clock:   clk,
		ids:     gen,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// RecordCustomerPayment stores an incoming payment, its allocation rows and
// the order's new paid amount in one transaction.
func (s *service) RecordCustomerPayment(ctx context.Context, input CustomerPaymentInput) (*models.PaymentTransaction, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	payment := Payment{
		Direction: enums.TransactionDirectionIncoming,
		Type:      enums.TransactionTypeCustomerPayment,
		Amount:    input.Amount,
	}
	now := s.clock.Now()

	var txn *models.PaymentTransaction
	var order *orders.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		var err error
		if order, err = orderRepo.FindByIDForUpdate(ctx, scope, input.OrderID); err != nil {
			return err
		}
		if !customerPaymentStatuses[order.Status()] {
			return ineligible(order, "customer payments")
		}
		allocations, err := Allocate(termsOf(order), payment)
		if err != nil {
			return err
		}
		if err := order.ApplyPayment(input.Amount, now); err != nil {
			return err
		}
		txn = s.buildTransaction(ctx, scope, order, payment, input.Method, input.Reference, input.PaidAt, now, allocations, nil)
		if err := s.repo.WithTx(tx).CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if err := orderRepo.Update(ctx, order); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPaymentRecorded, order, txn, now)
	})
	if err != nil {
		return nil, err
	}
	s.observe(ctx, order, txn)
	return txn, nil
}

// RecordVendorPayout stores an outgoing disbursement. Total payouts may not
// exceed the order's vendor cost.
func (s *service) RecordVendorPayout(ctx context.Context, input VendorPayoutInput) (*models.PaymentTransaction, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	payment := Payment{
		Direction: enums.TransactionDirectionOutgoing,
		Type:      input.Type,
		Amount:    input.Amount,
	}
	now := s.clock.Now()

	var txn *models.PaymentTransaction
	var order *orders.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		var err error
		if order, err = orderRepo.FindByIDForUpdate(ctx, scope, input.OrderID); err != nil {
			return err
		}
		if !vendorPayoutStatuses[order.Status()] {
			return ineligible(order, "vendor payouts")
		}
		if order.VendorID() == nil {
			return pkgerrors.InvalidArgument("vendor_id", "order has no vendor")
		}
		allocations, err := Allocate(termsOf(order), payment)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		paid, err := repo.SumOutgoing(ctx, scope, order.ID)
		if err != nil {
			return err
		}
		if paid+input.Amount > order.VendorCost() {
			return pkgerrors.New(pkgerrors.CodeInvalidPayment, "payout exceeds the vendor cost").
				WithDetails(map[string]any{
					"amount":      input.Amount,
					"paid_out":    paid,
					"vendor_cost": order.VendorCost(),
				})
		}
		txn = s.buildTransaction(ctx, scope, order, payment, input.Method, input.Reference, input.PaidAt, now, allocations, order.VendorID())
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		// a payout that read the same version concurrently fails here
		if err := orderRepo.Update(ctx, order); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventVendorPayoutRecorded, order, txn, now)
	})
	if err != nil {
		return nil, err
	}
	s.observe(ctx, order, txn)
	return txn, nil
}

// Preview computes the split of a hypothetical customer payment without
// writing anything.
func (s *service) Preview(ctx context.Context, orderID uuid.UUID, amount int64) ([]Allocation, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, scope, orderID)
	if err != nil {
		return nil, err
	}
	return Allocate(termsOf(order), Payment{
		Direction: enums.TransactionDirectionIncoming,
		Type:      enums.TransactionTypeCustomerPayment,
		Amount:    amount,
	})
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOrder(ctx, scope, orderID)
}

func (s *service) MarkAllocationPaid(ctx context.Context, allocationID uuid.UUID) error {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return err
	}
	if err := s.repo.MarkAllocationPaid(ctx, scope, allocationID, s.clock.Now()); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(s.logg.WithTenantID(ctx, scope.TenantID.String()), "allocation_id", allocationID.String()), "allocation marked paid")
	return nil
}

func (s *service) buildTransaction(
	ctx context.Context,
	scope tenant.Scope,
	order *orders.Order,
	payment Payment,
	method string,
	reference *string,
	paidAt *time.Time,
	now time.Time,
	allocations []Allocation,
	vendorID *uuid.UUID,
) *models.PaymentTransaction {
	if strings.TrimSpace(method) == "" {
		method = defaultMethod
	}
	at := now
	if paidAt != nil {
		at = *paidAt
	}
	txn := &models.PaymentTransaction{
		ID:         s.ids.New(),
		TenantID:   scope.TenantID,
		OrderID:    order.ID,
		Direction:  payment.Direction,
		Type:       payment.Type,
		Amount:     payment.Amount,
		Currency:   order.Currency,
		Method:     method,
		Reference:  reference,
		VendorID:   vendorID,
		RecordedBy: tenant.ActorFromContext(ctx),
		PaidAt:     at,
		CreatedAt:  now,
	}
	target := order.VendorID()
	for _, a := range allocations {
		var vendor *uuid.UUID
		if a.Type != enums.AllocationTypeProfitMargin {
			vendor = target
		}
		txn.Allocations = append(txn.Allocations, models.PaymentAllocation{
			ID:                  s.ids.New(),
			TenantID:            scope.TenantID,
			OrderID:             order.ID,
			TransactionID:       txn.ID,
			AllocationType:      a.Type,
			AllocatedAmount:     a.Amount,
			AllocatedPercentage: a.Percentage,
			TargetVendorID:      vendor,
			Status:              enums.AllocationStatusAllocated,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}
	return txn
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *orders.Order, txn *models.PaymentTransaction, now time.Time) error {
	lines := make([]payloads.AllocationLine, 0, len(txn.Allocations))
	for _, a := range txn.Allocations {
		lines = append(lines, payloads.AllocationLine{
			Type:       a.AllocationType,
			Amount:     a.AllocatedAmount,
			Percentage: a.AllocatedPercentage.StringFixed(percentPlaces),
		})
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		TenantID:      order.TenantID,
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   txn.ID,
		Actor:         &outbox.ActorRef{UserID: txn.RecordedBy, TenantID: order.TenantID},
		Data: payloads.PaymentRecordedEvent{
			OrderID:       order.ID,
			TransactionID: txn.ID,
			Direction:     txn.Direction,
			Type:          txn.Type,
			Amount:        txn.Amount,
			Currency:      txn.Currency,
			PaidAmount:    order.PaidAmount(),
			Allocations:   lines,
		},
		OccurredAt: now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue payment event")
	}
	return nil
}

func (s *service) observe(ctx context.Context, order *orders.Order, txn *models.PaymentTransaction) {
	s.metrics.PaymentRecorded(string(txn.Direction), string(txn.Type))
	for _, a := range txn.Allocations {
		s.metrics.Allocation(string(a.AllocationType), string(txn.Currency), a.AllocatedAmount)
	}
	logCtx := s.logg.WithOrderID(s.logg.WithTenantID(ctx, order.TenantID.String()), order.ID.String())
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"transaction_id": txn.ID.String(),
		"direction":      txn.Direction,
		"amount":         txn.Amount,
	}), "payment recorded")
}

func termsOf(order *orders.Order) Terms {
	return Terms{
		VendorCost:    order.VendorCost(),
		CustomerPrice: order.CustomerPrice(),
		PaymentType:   order.PaymentType(),
	}
}

func ineligible(order *orders.Order, what string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidPayment, fmt.Sprintf("order %s does not accept %s", order.OrderNumber, what)).
		WithDetails(map[string]any{"order_id": order.ID, "status": order.Status()})
}
