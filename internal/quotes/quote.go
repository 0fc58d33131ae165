package quotes

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/money"
	"github.com/etchbroker/makelar-backend/pkg/outbox/payloads"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

const (
	// DefaultValidity applies when a quote is created without an expiry.
	DefaultValidity = 30 * 24 * time.Hour

	draftNumber = "QT-DRAFT"

	actionOfferUpdated       = "offer_updated"
	actionDetailsUpdated     = "details_updated"
	actionExpirationExtended = "expiration_extended"
)

// Quote is one vendor negotiation for an order. Status and the audit trails
// only change through the methods below.
type Quote struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	OrderID        uuid.UUID
	VendorID       uuid.UUID
	ProductID      *uuid.UUID
	Quantity       int
	Specifications types.JSONMap
	Currency       enums.Currency
	InitialOffer   int64
	CreatedBy      *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time

	sequence      int64
	version       int
	status        enums.QuoteStatus
	latestOffer   int64
	round         int
	statusHistory []types.StatusChange
	history       []types.HistoryEntry
	sentAt        *time.Time
	respondedAt   *time.Time
	expiresAt     *time.Time
	closedAt      *time.Time
	events        []Event
}

type NewQuoteParams struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	OrderID        uuid.UUID
	VendorID       uuid.UUID
	ProductID      *uuid.UUID
	Quantity       int
	Specifications types.JSONMap
	InitialOffer   money.Money
	ExpiresAt      *time.Time
	Validity       time.Duration
	CreatedBy      *uuid.UUID
}

// New creates a draft quote and records QuoteCreated.
func New(p NewQuoteParams, now time.Time) (*Quote, error) {
	switch {
	case p.ID == uuid.Nil:
		return nil, pkgerrors.InvalidArgument("id", "quote id is required")
	case p.TenantID == uuid.Nil:
		return nil, pkgerrors.InvalidArgument("tenant_id", "tenant id is required")
	case p.OrderID == uuid.Nil:
		return nil, pkgerrors.InvalidArgument("order_id", "order id is required")
	case p.VendorID == uuid.Nil:
		return nil, pkgerrors.InvalidArgument("vendor_id", "vendor id is required")
	case !p.InitialOffer.IsPositive():
		return nil, pkgerrors.InvalidArgument("initial_offer", "initial offer must be positive")
	case p.Quantity < 0:
		return nil, pkgerrors.InvalidArgument("quantity", "quantity must be positive")
	}
	if p.InitialOffer.Currency == "" {
		p.InitialOffer.Currency = enums.DefaultCurrency
	}
	if !p.InitialOffer.Currency.IsValid() {
		return nil, pkgerrors.InvalidArgument("currency", "unsupported currency")
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}

	expiresAt := p.ExpiresAt
	if expiresAt == nil {
		validity := p.Validity
		if validity <= 0 {
			validity = DefaultValidity
		}
		at := now.Add(validity)
		expiresAt = &at
	} else if !expiresAt.After(now) {
		return nil, pkgerrors.InvalidArgument("expires_at", "expiry must be in the future")
	}

	q := &Quote{
		ID:             p.ID,
		TenantID:       p.TenantID,
		OrderID:        p.OrderID,
		VendorID:       p.VendorID,
		ProductID:      p.ProductID,
		Quantity:       p.Quantity,
		Specifications: p.Specifications.Clone(),
		Currency:       p.InitialOffer.Currency,
		InitialOffer:   p.InitialOffer.Amount,
		CreatedBy:      p.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
		version:        1,
		status:         enums.QuoteStatusDraft,
		latestOffer:    p.InitialOffer.Amount,
		round:          1,
		expiresAt:      expiresAt,
		statusHistory: []types.StatusChange{{
			To:        string(enums.QuoteStatusDraft),
			ChangedBy: p.CreatedBy,
			ChangedAt: now,
			Reason:    "Initial status",
		}},
	}
	q.record(enums.EventQuoteCreated, now, p.CreatedBy, payloads.QuoteCreatedEvent{
		QuoteID:      q.ID,
		QuoteNumber:  q.Number(),
		OrderID:      q.OrderID,
		VendorID:     q.VendorID,
		InitialOffer: q.InitialOffer,
		Currency:     q.Currency,
		ExpiresAt:    q.expiresAt,
	})
	return q, nil
}

func (q *Quote) Status() enums.QuoteStatus { return q.status }
func (q *Quote) LatestOffer() int64        { return q.latestOffer }
func (q *Quote) Round() int                { return q.round }
func (q *Quote) Sequence() int64           { return q.sequence }
func (q *Quote) Version() int              { return q.version }
func (q *Quote) SentAt() *time.Time        { return q.sentAt }
func (q *Quote) RespondedAt() *time.Time   { return q.respondedAt }
func (q *Quote) ExpiresAt() *time.Time     { return q.expiresAt }
func (q *Quote) ClosedAt() *time.Time      { return q.closedAt }

// StatusHistory returns a copy of the status audit trail.
func (q *Quote) StatusHistory() []types.StatusChange {
	return types.CloneStatusHistory(q.statusHistory)
}

// History returns a copy of the free-form action log.
func (q *Quote) History() []types.HistoryEntry {
	return types.CloneHistory(q.history)
}

// Number is the display number, QT-DRAFT until persistence assigns a sequence.
func (q *Quote) Number() string {
	if q.sequence <= 0 {
		return draftNumber
	}
	return fmt.Sprintf("QT-%s-%05d", q.CreatedAt.Format("200601"), q.sequence)
}

func (q *Quote) IsTerminal() bool { return IsTerminal(q.status) }

// IsExpired reports whether now is past the expiry. No expiry never expires.
func (q *Quote) IsExpired(now time.Time) bool {
	return q.expiresAt != nil && now.After(*q.expiresAt)
}

// CanBeModified reports whether offer and detail updates are accepted.
func (q *Quote) CanBeModified(now time.Time) bool {
	return !q.IsTerminal() && !q.IsExpired(now)
}

func (q *Quote) RequiresVendorAction() bool { return RequiresVendorAction(q.status) }
func (q *Quote) RequiresAdminAction() bool  { return RequiresAdminAction(q.status) }

// MarkAsSent sends the quote to the vendor.
func (q *Quote) MarkAsSent(by *uuid.UUID, now time.Time) error {
	if err := q.guardExpired(now); err != nil {
		return err
	}
	if err := q.transition(enums.QuoteStatusSent, by, "Quote sent to vendor", now); err != nil {
		return err
	}
	q.sentAt = &now
	q.record(enums.EventQuoteSentToVendor, now, by, payloads.QuoteSentToVendorEvent{
		QuoteID:     q.ID,
		OrderID:     q.OrderID,
		VendorID:    q.VendorID,
		LatestOffer: q.latestOffer,
		Currency:    q.Currency,
		SentAt:      now,
	})
	return nil
}

// RecordVendorResponse applies a vendor's accept, reject or counter.
// A counter requires a positive counterOffer and opens a new round.
func (q *Quote) RecordVendorResponse(response enums.QuoteResponse, notes string, counterOffer *int64, by *uuid.UUID, now time.Time) error {
	target, ok := responseTargets[response]
	if !ok {
		return pkgerrors.InvalidArgument("response", "response must be accept, reject or counter")
	}
	if err := q.guardExpired(now); err != nil {
		return err
	}
	if !CanTransition(q.status, target) {
		return q.invalidTransition(target)
	}
	if response == enums.QuoteResponseCounter && (counterOffer == nil || *counterOffer <= 0) {
		return pkgerrors.InvalidArgument("counter_offer", "counter offer must be positive")
	}

	reason := fmt.Sprintf("Vendor %s quote", responseVerbs[response])
	if notes != "" {
		reason += ": " + notes
	}
	if err := q.transition(target, by, reason, now); err != nil {
		return err
	}
	q.respondedAt = &now

	var counter *int64
	switch response {
	case enums.QuoteResponseCounter:
		amount := *counterOffer
		counter = &amount
		q.latestOffer = amount
		q.round++
	default:
		q.closedAt = &now
	}

	q.record(enums.EventVendorRespondedToQuote, now, by, payloads.VendorRespondedToQuoteEvent{
		QuoteID:      q.ID,
		OrderID:      q.OrderID,
		VendorID:     q.VendorID,
		Response:     response,
		Status:       q.status,
		CounterOffer: counter,
		Round:        q.round,
		Notes:        notes,
	})
	return nil
}

// UpdateOffer replaces the latest offer without touching status.
func (q *Quote) UpdateOffer(amount money.Money, by *uuid.UUID, now time.Time) error {
	if err := q.guardModifiable(now); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return pkgerrors.InvalidArgument("amount", "offer must be positive")
	}
	if amount.Currency != "" && amount.Currency != q.Currency {
		return pkgerrors.InvalidArgument("currency", "offer currency must match quote currency")
	}
	previous := q.latestOffer
	q.latestOffer = amount.Amount
	q.appendHistory(actionOfferUpdated, by, now, types.JSONMap{
		"previous": previous,
		"amount":   amount.Amount,
		"currency": string(q.Currency),
	})
	return nil
}

// DetailsUpdate carries optional replacements for the quoted product.
type DetailsUpdate struct {
	ProductID      *uuid.UUID
	Quantity       *int
	Specifications types.JSONMap
}

// UpdateDetails replaces product, quantity or specifications.
func (q *Quote) UpdateDetails(update DetailsUpdate, by *uuid.UUID, now time.Time) error {
	if err := q.guardModifiable(now); err != nil {
		return err
	}
	changed := types.JSONMap{}
	if update.Quantity != nil {
		if *update.Quantity < 1 {
			return pkgerrors.InvalidArgument("quantity", "quantity must be positive")
		}
		changed["quantity"] = *update.Quantity
	}
	if update.ProductID != nil {
		changed["product_id"] = update.ProductID.String()
	}
	if update.Specifications != nil {
		changed["specifications"] = map[string]any(update.Specifications.Clone())
	}
	if len(changed) == 0 {
		return pkgerrors.InvalidArgument("details", "no details to update")
	}

	if update.Quantity != nil {
		q.Quantity = *update.Quantity
	}
	if update.ProductID != nil {
		id := *update.ProductID
		q.ProductID = &id
	}
	if update.Specifications != nil {
		q.Specifications = update.Specifications.Clone()
	}
	q.appendHistory(actionDetailsUpdated, by, now, changed)
	return nil
}

// ExtendExpiration moves expires_at forward. Time-expired quotes that have
// not been closed may be reopened this way.
func (q *Quote) ExtendExpiration(newExpiresAt time.Time, by *uuid.UUID, now time.Time) error {
	if q.IsTerminal() {
		return q.closedError()
	}
	if !newExpiresAt.After(now) {
		return pkgerrors.InvalidArgument("expires_at", "new expiry must be in the future")
	}
	data := types.JSONMap{"new_expires_at": newExpiresAt.UTC().Format(time.RFC3339)}
	if q.expiresAt != nil {
		data["previous_expires_at"] = q.expiresAt.UTC().Format(time.RFC3339)
	}
	at := newExpiresAt
	q.expiresAt = &at
	q.appendHistory(actionExpirationExtended, by, now, data)
	return nil
}

// MarkAsExpired closes the quote as expired. It reports false without error
// when the quote was already terminal.
func (q *Quote) MarkAsExpired(by *uuid.UUID, now time.Time) (bool, error) {
	if q.IsTerminal() {
		return false, nil
	}
	if err := q.transition(enums.QuoteStatusExpired, by, "Quote expired without response", now); err != nil {
		return false, err
	}
	q.closedAt = &now
	return true, nil
}

func (q *Quote) transition(to enums.QuoteStatus, by *uuid.UUID, reason string, now time.Time) error {
	if !CanTransition(q.status, to) {
		return q.invalidTransition(to)
	}
	from := q.status
	fromRaw := string(from)
	q.statusHistory = append(q.statusHistory, types.StatusChange{
		From:      &fromRaw,
		To:        string(to),
		ChangedBy: by,
		ChangedAt: now,
		Reason:    reason,
	})
	q.status = to
	q.UpdatedAt = now
	q.record(enums.EventQuoteStatusChanged, now, by, payloads.QuoteStatusChangedEvent{
		QuoteID:   q.ID,
		OrderID:   q.OrderID,
		VendorID:  q.VendorID,
		From:      from,
		To:        to,
		Reason:    reason,
		ChangedBy: by,
	})
	return nil
}

func (q *Quote) appendHistory(action string, by *uuid.UUID, now time.Time, data types.JSONMap) {
	q.history = append(q.history, types.HistoryEntry{
		Action:    action,
		UserID:    by,
		Timestamp: now,
		Data:      data,
	})
	q.UpdatedAt = now
}

func (q *Quote) guardExpired(now time.Time) error {
	if q.IsExpired(now) && !q.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeQuoteExpired, "quote has expired").
			WithDetails(map[string]any{"quote_id": q.ID, "expires_at": q.expiresAt})
	}
	return nil
}

func (q *Quote) guardModifiable(now time.Time) error {
	if q.IsTerminal() {
		return q.closedError()
	}
	return q.guardExpired(now)
}

func (q *Quote) closedError() error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("quote is %s and can no longer change", q.status)).
		WithDetails(pkgerrors.TransitionDetails{Entity: "quote", From: string(q.status), Violations: []string{"quote is closed"}})
}

func (q *Quote) invalidTransition(to enums.QuoteStatus) error {
	return pkgerrors.InvalidTransition("quote", string(q.status), string(to),
		fmt.Sprintf("%s cannot move to %s", q.status, to))
}
