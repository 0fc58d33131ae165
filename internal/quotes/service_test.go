package quotes

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/pkg/clock"
	"github.com/etchbroker/makelar-backend/pkg/db"
	"github.com/etchbroker/makelar-backend/pkg/db/dbtest"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/ids"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/money"
	"github.com/etchbroker/makelar-backend/pkg/outbox"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

type stubOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) types() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type stubLocker struct {
	calls    int
	released int
	err      error
}

func (s *stubLocker) LockPair(ctx context.Context, tenantID, orderID, vendorID uuid.UUID) (func(context.Context) error, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return func(context.Context) error {
		s.released++
		return nil
	}, nil
}

type serviceHarness struct {
	svc     Service
	repo    Repository
	outbox  *stubOutbox
	locker  *stubLocker
	clock   *clock.Fixed
	ctx     context.Context
	scope   tenant.Scope
	actorID uuid.UUID
}

func newHarness(t *testing.T) serviceHarness {
	t.Helper()
	return newHarnessWithActive(t, nil)
}

// newHarnessWithActive configures the duplication guard with activeStatuses;
// nil keeps the defaults.
func newHarnessWithActive(t *testing.T, activeStatuses []enums.QuoteStatus) serviceHarness {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	guard, err := NewGuard(repo, activeStatuses)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	box := &stubOutbox{}
	locker := &stubLocker{}
	clk := clock.NewFixed(baseTime)
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Tx:     db.NewFromConn(conn),
		Outbox: box,
		Guard:  guard,
		Clock:  clk,
		IDs:    ids.Default(),
		Locker: locker,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	tenantID, actorID := uuid.New(), uuid.New()
	ctx := tenant.WithActor(tenant.WithTenant(context.Background(), tenantID), actorID)
	return serviceHarness{
		svc: svc, repo: repo, outbox: box, locker: locker, clock: clk,
		ctx: ctx, scope: tenant.Scope{TenantID: tenantID}, actorID: actorID,
	}
}

func (h serviceHarness) create(t *testing.T, orderID, vendorID uuid.UUID, leadTime int) *Quote {
	t.Helper()
	q, err := h.svc.Create(h.ctx, CreateInput{
		OrderID:        orderID,
		VendorID:       vendorID,
		Quantity:       25,
		Specifications: types.JSONMap{"lead_time_days": leadTime},
		InitialOffer:   money.New(1_500_000, enums.CurrencyIDR),
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	return q
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without repository")
	}
}

func TestServiceCreatePersistsAndQueuesEvent(t *testing.T) {
	h := newHarness(t)
	q := h.create(t, uuid.New(), uuid.New(), 5)

	if q.Sequence() != 1 || *q.CreatedBy != h.actorID {
		t.Fatalf("unexpected quote %+v", q)
	}
	if h.locker.calls != 1 || h.locker.released != 1 {
		t.Fatalf("expected lock acquired and released once, got %d/%d", h.locker.calls, h.locker.released)
	}
	if got := h.outbox.types(); len(got) != 1 || got[0] != enums.EventQuoteCreated {
		t.Fatalf("unexpected events %v", got)
	}
	event := h.outbox.events[0]
	if event.TenantID != h.scope.TenantID || event.AggregateID != q.ID || event.Actor.UserID == nil {
		t.Fatalf("unexpected event envelope %+v", event)
	}
}

func TestServiceCreateRequiresTenant(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Create(context.Background(), CreateInput{OrderID: uuid.New(), VendorID: uuid.New(), InitialOffer: money.New(1, "")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestServiceCreateRejectsDuplicateActiveQuote(t *testing.T) {
	h := newHarness(t)
	orderID, vendorID := uuid.New(), uuid.New()
	first := h.create(t, orderID, vendorID, 5)
	if _, err := h.svc.Send(h.ctx, first.ID); err != nil {
		t.Fatalf("send: %v", err)
	}

	_, err := h.svc.Create(h.ctx, CreateInput{
		OrderID: orderID, VendorID: vendorID, InitialOffer: money.New(10, enums.CurrencyIDR),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDuplicateQuote) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if h.locker.released != h.locker.calls {
		t.Fatal("lock not released after failure")
	}
}

func TestServiceSendRejectsSecondActiveQuote(t *testing.T) {
	h := newHarness(t)
	orderID, vendorID := uuid.New(), uuid.New()
	first := h.create(t, orderID, vendorID, 5)
	second := h.create(t, orderID, vendorID, 5)
	if _, err := h.svc.Send(h.ctx, first.ID); err != nil {
		t.Fatalf("send first: %v", err)
	}

	if _, err := h.svc.Send(h.ctx, second.ID); !pkgerrors.IsCode(err, pkgerrors.CodeDuplicateQuote) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	stored, err := h.repo.FindByID(context.Background(), h.scope, second.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status() != enums.QuoteStatusDraft {
		t.Fatalf("rejected send must not persist, got %s", stored.Status())
	}
}

func TestServiceSendHonoursConfiguredActiveStatuses(t *testing.T) {
	h := newHarnessWithActive(t, []enums.QuoteStatus{
		enums.QuoteStatusSent, enums.QuoteStatusCountered, enums.QuoteStatusAccepted,
	})
	orderID, vendorID := uuid.New(), uuid.New()
	first := h.create(t, orderID, vendorID, 5)
	second := h.create(t, orderID, vendorID, 5)
	if _, err := h.svc.Send(h.ctx, first.ID); err != nil {
		t.Fatalf("send first: %v", err)
	}
	if _, err := h.svc.RecordResponse(h.ctx, ResponseInput{QuoteID: first.ID, Response: enums.QuoteResponseAccept}); err != nil {
		t.Fatalf("accept first: %v", err)
	}

	// accepted is outside the storage index, only the guard knows it is active
	if _, err := h.svc.Send(h.ctx, second.ID); !pkgerrors.IsCode(err, pkgerrors.CodeDuplicateQuote) {
		t.Fatalf("expected duplicate error against the accepted quote, got %v", err)
	}
}

func TestServiceCreateFailsWhenLockHeld(t *testing.T) {
	h := newHarness(t)
	h.locker.err = pkgerrors.New(pkgerrors.CodeConflict, "busy")
	_, err := h.svc.Create(h.ctx, CreateInput{OrderID: uuid.New(), VendorID: uuid.New(), InitialOffer: money.New(10, "")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestServiceNegotiationFlow(t *testing.T) {
	h := newHarness(t)
	q := h.create(t, uuid.New(), uuid.New(), 5)

	if _, err := h.svc.Send(h.ctx, q.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	counter := int64(1_650_000)
	h.clock.Advance(time.Hour)
	countered, err := h.svc.RecordResponse(h.ctx, ResponseInput{
		QuoteID: q.ID, Response: enums.QuoteResponseCounter, CounterOffer: &counter,
	})
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if countered.Status() != enums.QuoteStatusCountered || countered.Round() != 2 {
		t.Fatalf("unexpected countered quote %s round %d", countered.Status(), countered.Round())
	}
	if _, err := h.svc.Send(h.ctx, q.ID); err != nil {
		t.Fatalf("resend after counter: %v", err)
	}
	accepted, err := h.svc.RecordResponse(h.ctx, ResponseInput{QuoteID: q.ID, Response: enums.QuoteResponseAccept})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	stored, err := h.repo.FindByID(context.Background(), h.scope, q.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status() != enums.QuoteStatusAccepted || stored.Version() != accepted.Version() {
		t.Fatalf("stored quote out of sync: %s v%d", stored.Status(), stored.Version())
	}
	if len(stored.StatusHistory()) != 5 {
		t.Fatalf("expected 5 history entries, got %d", len(stored.StatusHistory()))
	}

	want := []enums.OutboxEventType{
		enums.EventQuoteCreated,
		enums.EventQuoteStatusChanged, enums.EventQuoteSentToVendor,
		enums.EventQuoteStatusChanged, enums.EventVendorRespondedToQuote,
		enums.EventQuoteStatusChanged, enums.EventQuoteSentToVendor,
		enums.EventQuoteStatusChanged, enums.EventVendorRespondedToQuote,
	}
	got := h.outbox.types()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if _, err := h.svc.UpdateOffer(h.ctx, q.ID, money.New(1, enums.CurrencyIDR)); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected closed quote to refuse offer update, got %v", err)
	}
}

func TestServiceOutboxFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	q := h.create(t, uuid.New(), uuid.New(), 5)
	h.outbox.err = errors.New("outbox down")

	if _, err := h.svc.Send(h.ctx, q.ID); err == nil {
		t.Fatal("expected error")
	}
	stored, err := h.repo.FindByID(context.Background(), h.scope, q.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status() != enums.QuoteStatusDraft || stored.Version() != 1 {
		t.Fatalf("send should have rolled back, got %s v%d", stored.Status(), stored.Version())
	}
}

func TestServiceExpire(t *testing.T) {
	h := newHarness(t)
	q := h.create(t, uuid.New(), uuid.New(), 5)

	changed, err := h.svc.Expire(context.Background(), h.scope, q.ID)
	if err != nil || changed {
		t.Fatalf("fresh quote must not expire, got %v %v", changed, err)
	}

	h.clock.Advance(31 * 24 * time.Hour)
	changed, err = h.svc.Expire(context.Background(), h.scope, q.ID)
	if err != nil || !changed {
		t.Fatalf("expected expiry, got %v %v", changed, err)
	}
	changed, err = h.svc.Expire(context.Background(), h.scope, q.ID)
	if err != nil || changed {
		t.Fatalf("expected idempotent expiry, got %v %v", changed, err)
	}

	stored, _ := h.repo.FindByID(context.Background(), h.scope, q.ID)
	if stored.Status() != enums.QuoteStatusExpired {
		t.Fatalf("expected expired, got %s", stored.Status())
	}
}

func TestServiceExtendAndDetails(t *testing.T) {
	h := newHarness(t)
	q := h.create(t, uuid.New(), uuid.New(), 5)

	target := baseTime.Add(60 * 24 * time.Hour)
	extended, err := h.svc.ExtendExpiration(h.ctx, q.ID, target)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !extended.ExpiresAt().Equal(target) {
		t.Fatalf("unexpected expiry %v", extended.ExpiresAt())
	}
	qty := 40
	updated, err := h.svc.UpdateDetails(h.ctx, q.ID, DetailsUpdate{Quantity: &qty})
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if updated.Quantity != 40 || len(updated.History()) != 2 {
		t.Fatalf("unexpected update %d %d", updated.Quantity, len(updated.History()))
	}
}

func TestServiceCompareForOrder(t *testing.T) {
	h := newHarness(t)
	orderID := uuid.New()
	a := h.create(t, orderID, uuid.New(), 10)
	b := h.create(t, orderID, uuid.New(), 4)
	c := h.create(t, orderID, uuid.New(), 7)

	for _, q := range []*Quote{a, b, c} {
		if _, err := h.svc.Send(h.ctx, q.ID); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	cheaper := int64(1_200_000)
	if _, err := h.svc.RecordResponse(h.ctx, ResponseInput{QuoteID: b.ID, Response: enums.QuoteResponseCounter, CounterOffer: &cheaper}); err != nil {
		t.Fatalf("counter: %v", err)
	}
	if _, err := h.svc.RecordResponse(h.ctx, ResponseInput{QuoteID: c.ID, Response: enums.QuoteResponseReject}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	cmp, err := h.svc.CompareForOrder(h.ctx, orderID)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(cmp.Quotes) != 2 {
		t.Fatalf("rejected quote must be skipped, got %d", len(cmp.Quotes))
	}
	if cmp.Quotes[0].QuoteID != b.ID || cmp.MinPrice != cheaper || cmp.Quotes[0].LeadTimeDays != 4 {
		t.Fatalf("unexpected ranking %+v", cmp.Quotes[0])
	}
	if cmp.Quotes[1].DeltaFromMin != 300_000 {
		t.Fatalf("unexpected delta %d", cmp.Quotes[1].DeltaFromMin)
	}

	active, err := h.svc.ListActiveForOrder(h.ctx, orderID)
	if err != nil || len(active) != 2 {
		t.Fatalf("expected 2 active quotes, got %d (%v)", len(active), err)
	}
}

func TestLeadTimeDaysRequiresWholePositiveDays(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
		ok   bool
	}{
		{name: "int", raw: 7, want: 7, ok: true},
		{name: "whole float from json", raw: float64(3), want: 3, ok: true},
		{name: "fractional float", raw: 2.7, ok: false},
		{name: "numeric string", raw: "4", want: 4, ok: true},
		{name: "zero", raw: 0, ok: false},
		{name: "text", raw: "soon", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := leadTimeDays(types.JSONMap{leadTimeKey: tt.raw})
			if ok != tt.ok || (ok && got != tt.want) {
				t.Fatalf("expected (%d, %v), got (%d, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestServiceCompareRejectsFractionalLeadTime(t *testing.T) {
	h := newHarness(t)
	orderID := uuid.New()
	q, err := h.svc.Create(h.ctx, CreateInput{
		OrderID:        orderID,
		VendorID:       uuid.New(),
		Quantity:       5,
		Specifications: types.JSONMap{leadTimeKey: 2.7},
		InitialOffer:   money.New(900_000, enums.CurrencyIDR),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Send(h.ctx, q.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := h.svc.CompareForOrder(h.ctx, orderID); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for a fractional lead time, got %v", err)
	}
}
