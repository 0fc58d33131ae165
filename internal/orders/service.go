package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/pkg/clock"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/ids"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/metrics"
	"github.com/etchbroker/makelar-backend/pkg/outbox"
	"github.com/etchbroker/makelar-backend/pkg/pagination"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Order, error)
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[*Order], error)
	AssignParties(ctx context.Context, id uuid.UUID, input AssignInput) (*Order, error)
	SetItems(ctx context.Context, id uuid.UUID, items []types.OrderItem) (*Order, error)
	SetPricing(ctx context.Context, id uuid.UUID, input PricingInput) (*Order, error)
	SelectPaymentType(ctx context.Context, id uuid.UUID, paymentType enums.PaymentType) (*Order, error)
	Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus, input TransitionInput) (*Order, error)
	AvailableTransitions(ctx context.Context, id uuid.UUID) ([]AvailableTransition, error)
	EvaluateSLA(ctx context.Context, scope tenant.Scope, id uuid.UUID) (bool, error)
}

// CreateInput opens a new order.
type CreateInput struct {
	CustomerID *uuid.UUID
	Items      []types.OrderItem
	Currency   enums.Currency
	Metadata   types.JSONMap
}

// AssignInput sets either party; nil fields are left unchanged.
type AssignInput struct {
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
}

type PricingInput struct {
	VendorCost    int64
	CustomerPrice int64
}

type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Clock       clock.Clock
	IDs         ids.Generator
	Metrics     *metrics.DomainMetrics
	Logger      *logger.Logger
	SLAPolicies SLAPolicies
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	clock    clock.Clock
	ids      ids.Generator
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	policies SLAPolicies
}

// NewService builds the order service. Metrics and SLAPolicies are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
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
	policies := params.SLAPolicies
	if policies == nil {
		policies = DefaultSLAPolicies()
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		clock:    clk,
		ids:      gen,
		metrics:  params.Metrics,
		logg:     params.Logger,
		policies: policies,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	order, err := New(NewOrderParams{
		ID:         s.ids.New(),
		TenantID:   scope.TenantID,
		CustomerID: input.CustomerID,
		Items:      input.Items,
		Currency:   input.Currency,
		Metadata:   input.Metadata,
		CreatedBy:  tenant.ActorFromContext(ctx),
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, order)
	}); err != nil {
		return nil, err
	}
	s.logg.Info(s.orderCtx(ctx, order), "order created")
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, scope, id)
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[*Order], error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope, filter, params)
}

func (s *service) AssignParties(ctx context.Context, id uuid.UUID, input AssignInput) (*Order, error) {
	if input.CustomerID == nil && input.VendorID == nil {
		return nil, pkgerrors.InvalidArgument("customer_id", "customer or vendor is required")
	}
	return s.mutate(ctx, id, func(o *Order, _ *uuid.UUID, now time.Time) error {
		if input.CustomerID != nil {
			if err := o.AssignCustomer(*input.CustomerID, now); err != nil {
				return err
			}
		}
		if input.VendorID != nil {
			return o.AssignVendor(*input.VendorID, now)
		}
		return nil
	})
}

func (s *service) SetItems(ctx context.Context, id uuid.UUID, items []types.OrderItem) (*Order, error) {
	return s.mutate(ctx, id, func(o *Order, _ *uuid.UUID, now time.Time) error {
		return o.SetItems(items, now)
	})
}

func (s *service) SetPricing(ctx context.Context, id uuid.UUID, input PricingInput) (*Order, error) {
	return s.mutate(ctx, id, func(o *Order, _ *uuid.UUID, now time.Time) error {
		return o.SetPricing(input.VendorCost, input.CustomerPrice, now)
	})
}

func (s *service) SelectPaymentType(ctx context.Context, id uuid.UUID, paymentType enums.PaymentType) (*Order, error) {
	return s.mutate(ctx, id, func(o *Order, _ *uuid.UUID, now time.Time) error {
		return o.SelectPaymentType(paymentType, now)
	})
}

// Transition moves the order to to. Every unmet precondition is reported in
// one InvalidTransition error.
func (s *service) Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus, input TransitionInput) (*Order, error) {
	return s.mutate(ctx, id, func(o *Order, actor *uuid.UUID, now time.Time) error {
		if input.Actor == nil {
			input.Actor = actor
		}
		if input.SLA == nil {
			input.SLA = s.policies
		}
		return o.TransitionTo(to, input, now)
	})
}

func (s *service) AvailableTransitions(ctx context.Context, id uuid.UUID) ([]AvailableTransition, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return order.AvailableTransitions(), nil
}

// EvaluateSLA is driven by the SLA job with an explicit scope. It reports
// whether an escalation or breach was recorded.
func (s *service) EvaluateSLA(ctx context.Context, scope tenant.Scope, id uuid.UUID) (bool, error) {
	var changed bool
	var order *Order
	now := s.clock.Now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if order, err = repo.FindByID(ctx, scope, id); err != nil {
			return err
		}
		if changed = order.EvaluateSLA(now); !changed {
			return nil
		}
		if err := repo.Update(ctx, order); err != nil {
			return err
		}
		return s.flush(ctx, tx, order)
	})
	if err != nil || !changed {
		return false, err
	}
	s.logg.Warn(s.orderCtx(ctx, order), "order sla escalated")
	return true, nil
}

func (s *service) mutate(ctx context.Context, id uuid.UUID, apply func(o *Order, actor *uuid.UUID, now time.Time) error) (*Order, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	actor := tenant.ActorFromContext(ctx)
	now := s.clock.Now()

	var order *Order
	var from enums.OrderStatus
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if order, err = repo.FindByID(ctx, scope, id); err != nil {
			return err
		}
		from = order.Status()
		if err := apply(order, actor, now); err != nil {
			return err
		}
		if err := repo.Update(ctx, order); err != nil {
			return err
		}
		return s.flush(ctx, tx, order)
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
			s.metrics.TransitionRejected("order", pkgerrors.TransitionTarget(err))
		}
		return nil, err
	}
	if order.Status() != from {
		s.metrics.Transition("order", string(from), string(order.Status()))
		s.logg.Info(s.logg.WithFields(s.orderCtx(ctx, order), map[string]any{
			"from": from,
			"to":   order.Status(),
		}), "order status changed")
	}
	return order, nil
}

func (s *service) flush(ctx context.Context, tx *gorm.DB, order *Order) error {
	for _, event := range order.PullEvents() {
		switch event.Type {
		case enums.EventOrderSLAEscalated, enums.EventOrderSLABreached:
			s.metrics.SLAEvent(string(event.Type), string(order.Status()))
		}
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      order.TenantID,
			EventType:     event.Type,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: event.Actor, TenantID: order.TenantID},
			Data:          event.Payload,
			OccurredAt:    event.OccurredAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order event")
		}
	}
	return nil
}

func (s *service) orderCtx(ctx context.Context, order *Order) context.Context {
	ctx = s.logg.WithTenantID(ctx, order.TenantID.String())
	return s.logg.WithOrderID(ctx, order.ID.String())
}
