package quotes

import (
	"time"

	"github.com/google/uuid"

	internalquotes "github.com/etchbroker/makelar-backend/internal/quotes"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/pagination"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

// QuoteDTO is the API shape of a vendor quote.
type QuoteDTO struct {
	ID                   uuid.UUID            `json:"id"`
	QuoteNumber          string               `json:"quote_number"`
	OrderID              uuid.UUID            `json:"order_id"`
	VendorID             uuid.UUID            `json:"vendor_id"`
	ProductID            *uuid.UUID           `json:"product_id,omitempty"`
	Quantity             int                  `json:"quantity"`
	Specifications       types.JSONMap        `json:"specifications,omitempty"`
	Currency             enums.Currency       `json:"currency"`
	Status               enums.QuoteStatus    `json:"status"`
	InitialOffer         int64                `json:"initial_offer"`
	LatestOffer          int64                `json:"latest_offer"`
	Round                int                  `json:"round"`
	RequiresVendorAction bool                 `json:"requires_vendor_action"`
	RequiresAdminAction  bool                 `json:"requires_admin_action"`
	SentAt               *time.Time           `json:"sent_at,omitempty"`
	RespondedAt          *time.Time           `json:"responded_at,omitempty"`
	ExpiresAt            *time.Time           `json:"expires_at,omitempty"`
	ClosedAt             *time.Time           `json:"closed_at,omitempty"`
	StatusHistory        []types.StatusChange `json:"status_history"`
	History              []types.HistoryEntry `json:"history"`
	Version              int                  `json:"version"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

func toDTO(q *internalquotes.Quote) QuoteDTO {
	return QuoteDTO{
		ID:                   q.ID,
		QuoteNumber:          q.Number(),
		OrderID:              q.OrderID,
		VendorID:             q.VendorID,
		ProductID:            q.ProductID,
		Quantity:             q.Quantity,
		Specifications:       q.Specifications,
		Currency:             q.Currency,
		Status:               q.Status(),
		InitialOffer:         q.InitialOffer,
		LatestOffer:          q.LatestOffer(),
		Round:                q.Round(),
		RequiresVendorAction: q.RequiresVendorAction(),
		RequiresAdminAction:  q.RequiresAdminAction(),
		SentAt:               q.SentAt(),
		RespondedAt:          q.RespondedAt(),
		ExpiresAt:            q.ExpiresAt(),
		ClosedAt:             q.ClosedAt(),
		StatusHistory:        q.StatusHistory(),
		History:              q.History(),
		Version:              q.Version(),
		CreatedAt:            q.CreatedAt,
		UpdatedAt:            q.UpdatedAt,
	}
}

func toDTOs(in []*internalquotes.Quote) []QuoteDTO {
	out := make([]QuoteDTO, 0, len(in))
	for _, q := range in {
		out = append(out, toDTO(q))
	}
	return out
}

func toPage(page *pagination.Page[*internalquotes.Quote]) pagination.Page[QuoteDTO] {
	if page == nil {
		return pagination.Page[QuoteDTO]{Items: []QuoteDTO{}}
	}
	return pagination.Page[QuoteDTO]{Items: toDTOs(page.Items), NextCursor: page.NextCursor}
}
