package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/etchbroker/makelar-backend/internal/orders"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/pagination"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

// OrderDTO is the API shape of an order aggregate.
type OrderDTO struct {
	ID                uuid.UUID            `json:"id"`
	OrderNumber       string               `json:"order_number"`
	Status            enums.OrderStatus    `json:"status"`
	CustomerID        *uuid.UUID           `json:"customer_id"`
	VendorID          *uuid.UUID           `json:"vendor_id"`
	Currency          enums.Currency       `json:"currency"`
	Items             []types.OrderItem    `json:"items"`
	PaymentType       *enums.PaymentType   `json:"payment_type"`
	PaymentStatus     enums.PaymentStatus  `json:"payment_status"`
	VendorCost        int64                `json:"vendor_cost"`
	CustomerPrice     int64                `json:"customer_price"`
	MarkupAmount      int64                `json:"markup_amount"`
	MarkupPercentage  decimal.Decimal      `json:"markup_percentage"`
	PaidAmount        int64                `json:"paid_amount"`
	Outstanding       int64                `json:"outstanding"`
	TrackingNumber    *string              `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time           `json:"estimated_delivery,omitempty"`
	ShippedAt         *time.Time           `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time           `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time           `json:"cancelled_at,omitempty"`
	ActiveSLA         *types.SLAWindow     `json:"active_sla,omitempty"`
	StatusHistory     []types.StatusChange `json:"status_history"`
	Metadata          types.JSONMap        `json:"metadata,omitempty"`
	Version           int                  `json:"version"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func toDTO(o *internalorders.Order) OrderDTO {
	return OrderDTO{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		Status:            o.Status(),
		CustomerID:        o.CustomerID(),
		VendorID:          o.VendorID(),
		Currency:          o.Currency,
		Items:             o.Items(),
		PaymentType:       o.PaymentType(),
		PaymentStatus:     o.PaymentStatus(),
		VendorCost:        o.VendorCost(),
		CustomerPrice:     o.CustomerPrice(),
		MarkupAmount:      o.MarkupAmount(),
		MarkupPercentage:  o.MarkupPercentage(),
		PaidAmount:        o.PaidAmount(),
		Outstanding:       o.Outstanding(),
		TrackingNumber:    o.TrackingNumber(),
		EstimatedDelivery: o.EstimatedDelivery(),
		ShippedAt:         o.ShippedAt(),
		DeliveredAt:       o.DeliveredAt(),
		CancelledAt:       o.CancelledAt(),
		ActiveSLA:         o.ActiveSLA(),
		StatusHistory:     o.StatusHistory(),
		Metadata:          o.Metadata(),
		Version:           o.Version(),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func toPage(page *pagination.Page[*internalorders.Order]) pagination.Page[OrderDTO] {
	out := pagination.Page[OrderDTO]{Items: make([]OrderDTO, 0)}
	if page == nil {
		return out
	}
	for _, o := range page.Items {
		out.Items = append(out.Items, toDTO(o))
	}
	out.NextCursor = page.NextCursor
	return out
}
