package quotes

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/internal/pricing"
	"github.com/etchbroker/makelar-backend/pkg/clock"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/ids"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/metrics"
	"github.com/etchbroker/makelar-backend/pkg/money"
	"github.com/etchbroker/makelar-backend/pkg/outbox"
	"github.com/etchbroker/makelar-backend/pkg/pagination"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

const leadTimeKey = "lead_time_days"

var comparableStatuses = map[enums.QuoteStatus]bool{
	enums.QuoteStatusOpen:      true,
	enums.QuoteStatusSent:      true,
	enums.QuoteStatusCountered: true,
	enums.QuoteStatusAccepted:  true,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PairLocker serialises quote creation for one (tenant, order, vendor) pair
// across API instances. The returned unlock must be called once.
type PairLocker interface {
	LockPair(ctx context.Context, tenantID, orderID, vendorID uuid.UUID) (func(context.Context) error, error)
}

// Service exposes the quote negotiation flows.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Quote, error)
	Get(ctx context.Context, id uuid.UUID) (*Quote, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[*Quote], error)
	ListActiveForOrder(ctx context.Context, orderID uuid.UUID) ([]*Quote, error)
	Send(ctx context.Context, id uuid.UUID) (*Quote, error)
	RecordResponse(ctx context.Context, input ResponseInput) (*Quote, error)
	UpdateOffer(ctx context.Context, id uuid.UUID, amount money.Money) (*Quote, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, update DetailsUpdate) (*Quote, error)
	ExtendExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) (*Quote, error)
	Expire(ctx context.Context, scope tenant.Scope, id uuid.UUID) (bool, error)
	CompareForOrder(ctx context.Context, orderID uuid.UUID) (pricing.Comparison, error)
}

// CreateInput opens a negotiation with a vendor.
type CreateInput struct {
	OrderID        uuid.UUID
	VendorID       uuid.UUID
	ProductID      *uuid.UUID
	Quantity       int
	Specifications types.JSONMap
	InitialOffer   money.Money
	ExpiresAt      *time.Time
}

// ResponseInput records the vendor's answer.
type ResponseInput struct {
	QuoteID      uuid.UUID
	Response     enums.QuoteResponse
	Notes        string
	CounterOffer *int64
}

// ServiceParams wires the quote service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Guard    *Guard
	Clock    clock.Clock
	IDs      ids.Generator
	Locker   PairLocker
	Metrics  *metrics.DomainMetrics
	Logger   *logger.Logger
	Validity time.Duration
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	guard    *Guard
	clock    clock.Clock
	ids      ids.Generator
	locker   PairLocker
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	validity time.Duration
}

// NewService builds the quote service. Locker and Metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("quotes repository required")
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
	guard := params.Guard
	if guard == nil {
		var err error
		if guard, err = NewGuard(params.Repo, nil); err != nil {
			return nil, err
		}
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.System()
	}
	gen := params.IDs
	if gen == nil {
		gen = ids.Default()
	}
	validity := params.Validity
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		guard:    guard,
		clock:    clk,
		ids:      gen,
		locker:   params.Locker,
		metrics:  params.Metrics,
		logg:     params.Logger,
		validity: validity,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Quote, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil || input.VendorID == uuid.Nil {
		return nil, pkgerrors.InvalidArgument("order_id", "order and vendor are required")
	}
	actor := tenant.ActorFromContext(ctx)

	if s.locker != nil {
		unlock, err := s.locker.LockPair(ctx, scope.TenantID, input.OrderID, input.VendorID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release quote pair lock failed")
			}
		}()
	}

	quote, err := New(NewQuoteParams{
		ID:             s.ids.New(),
		TenantID:       scope.TenantID,
		OrderID:        input.OrderID,
		VendorID:       input.VendorID,
		ProductID:      input.ProductID,
		Quantity:       input.Quantity,
		Specifications: input.Specifications,
		InitialOffer:   input.InitialOffer,
		ExpiresAt:      input.ExpiresAt,
		Validity:       s.validity,
		CreatedBy:      actor,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.guard.WithRepository(repo).ValidateNoDuplicate(ctx, scope, input.OrderID, input.VendorID); err != nil {
			return err
		}
		if err := repo.Create(ctx, quote); err != nil {
			return err
		}
		return s.flush(ctx, tx, quote)
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeDuplicateQuote) {
			s.metrics.DuplicateQuoteRejected()
		}
		return nil, err
	}

	s.logg.Info(s.quoteCtx(ctx, quote), "quote created")
	return quote, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Quote, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, scope, id)
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[*Quote], error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope, filter, params)
}

func (s *service) ListActiveForOrder(ctx context.Context, orderID uuid.UUID) ([]*Quote, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	return s.guard.ListActive(ctx, scope, orderID)
}

func (s *service) Send(ctx context.Context, id uuid.UUID) (*Quote, error) {
	return s.mutate(ctx, id, func(q *Quote, actor *uuid.UUID, now time.Time) error {
		return q.MarkAsSent(actor, now)
	})
}

func (s *service) RecordResponse(ctx context.Context, input ResponseInput) (*Quote, error) {
	return s.mutate(ctx, input.QuoteID, func(q *Quote, actor *uuid.UUID, now time.Time) error {
		return q.RecordVendorResponse(input.Response, input.Notes, input.CounterOffer, actor, now)
	})
}

func (s *service) UpdateOffer(ctx context.Context, id uuid.UUID, amount money.Money) (*Quote, error) {
	return s.mutate(ctx, id, func(q *Quote, actor *uuid.UUID, now time.Time) error {
		return q.UpdateOffer(amount, actor, now)
	})
}

func (s *service) UpdateDetails(ctx context.Context, id uuid.UUID, update DetailsUpdate) (*Quote, error) {
	return s.mutate(ctx, id, func(q *Quote, actor *uuid.UUID, now time.Time) error {
		return q.UpdateDetails(update, actor, now)
	})
}

func (s *service) ExtendExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) (*Quote, error) {
	return s.mutate(ctx, id, func(q *Quote, actor *uuid.UUID, now time.Time) error {
		return q.ExtendExpiration(expiresAt, actor, now)
	})
}

// Expire closes one overdue quote. It is called by the expiry job with an
// explicit scope and reports whether the quote changed.
func (s *service) Expire(ctx context.Context, scope tenant.Scope, id uuid.UUID) (bool, error) {
	var changed bool
	now := s.clock.Now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		quote, err := repo.FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		if !quote.IsExpired(now) {
			return nil
		}
		from := quote.Status()
		if changed, err = quote.MarkAsExpired(nil, now); err != nil || !changed {
			return err
		}
		if err := repo.Update(ctx, quote); err != nil {
			return err
		}
		s.metrics.Transition("quote", string(from), string(quote.Status()))
		return s.flush(ctx, tx, quote)
	})
	return changed, err
}

// CompareForOrder ranks the order's open and accepted quotes by latest offer.
// Each quote needs a whole positive lead_time_days specification.
func (s *service) CompareForOrder(ctx context.Context, orderID uuid.UUID) (pricing.Comparison, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return pricing.Comparison{}, err
	}
	quotes, err := s.repo.ListByOrder(ctx, scope, orderID)
	if err != nil {
		return pricing.Comparison{}, err
	}
	candidates := make([]pricing.QuoteCandidate, 0, len(quotes))
	for _, q := range quotes {
		if !comparableStatuses[q.Status()] {
			continue
		}
		leadTime, ok := leadTimeDays(q.Specifications)
		if !ok {
			return pricing.Comparison{}, pkgerrors.InvalidArgument(leadTimeKey,
				fmt.Sprintf("quote %s needs a whole positive number of lead time days", q.Number()))
		}
		candidates = append(candidates, pricing.QuoteCandidate{
			VendorID:     q.VendorID,
			QuoteID:      q.ID,
			Price:        q.LatestOffer(),
			LeadTimeDays: leadTime,
		})
	}
	return pricing.CompareQuotes(candidates)
}

func (s *service) mutate(ctx context.Context, id uuid.UUID, apply func(q *Quote, actor *uuid.UUID, now time.Time) error) (*Quote, error) {
	scope, err := tenant.ScopeFromContext(ctx, false)
	if err != nil {
		return nil, err
	}
	actor := tenant.ActorFromContext(ctx)
	now := s.clock.Now()

	var quote *Quote
	var from enums.QuoteStatus
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if quote, err = repo.FindByID(ctx, scope, id); err != nil {
			return err
		}
		from = quote.Status()
		if err := apply(quote, actor, now); err != nil {
			return err
		}
		if to := quote.Status(); to != from && s.guard.IsActive(to) {
			if err := s.guard.WithRepository(repo).ValidateNoDuplicate(ctx, scope, quote.OrderID, quote.VendorID, ExcludingIDs(quote.ID)); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, quote); err != nil {
			return err
		}
		return s.flush(ctx, tx, quote)
	})
	if err != nil {
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition):
			s.metrics.TransitionRejected("quote", pkgerrors.TransitionTarget(err))
		case pkgerrors.IsCode(err, pkgerrors.CodeDuplicateQuote):
			s.metrics.DuplicateQuoteRejected()
		}
		return nil, err
	}
	if quote.Status() != from {
		s.metrics.Transition("quote", string(from), string(quote.Status()))
		s.logg.Info(s.logg.WithFields(s.quoteCtx(ctx, quote), map[string]any{
			"from": from,
			"to":   quote.Status(),
		}), "quote status changed")
	}
	return quote, nil
}

// flush drains the aggregate's events into the outbox on tx.
func (s *service) flush(ctx context.Context, tx *gorm.DB, quote *Quote) error {
	for _, event := range quote.PullEvents() {
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      quote.TenantID,
			EventType:     event.Type,
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Actor:         &outbox.ActorRef{UserID: event.Actor, TenantID: quote.TenantID},
			Data:          event.Payload,
			OccurredAt:    event.OccurredAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue quote event")
		}
	}
	return nil
}

func (s *service) quoteCtx(ctx context.Context, quote *Quote) context.Context {
	ctx = s.logg.WithTenantID(ctx, quote.TenantID.String())
	ctx = s.logg.WithOrderID(ctx, quote.OrderID.String())
	return s.logg.WithQuoteID(ctx, quote.ID.String())
}

func leadTimeDays(specs types.JSONMap) (int, bool) {
	raw, ok := specs[leadTimeKey]
	if !ok {
		return 0, false
	}
	var days int
	switch v := raw.(type) {
	case int:
		days = v
	case int64:
		days = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		days = int(v)
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		days = parsed
	default:
		return 0, false
	}
	return days, days > 0
}
