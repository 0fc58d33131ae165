package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

// Order is a customer purchase brokered to a single vendor.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null"`
	OrderNumber       string               `gorm:"column:order_number;not null"`
	CustomerID        *uuid.UUID           `gorm:"column:customer_id;type:uuid"`
	VendorID          *uuid.UUID           `gorm:"column:vendor_id;type:uuid"`
	Status            enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'new'"`
	PaymentType       *enums.PaymentType   `gorm:"column:payment_type;type:text"`
	PaymentStatus     enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	Currency          enums.Currency       `gorm:"column:currency;type:text;not null;default:'IDR'"`
	VendorCost        int64                `gorm:"column:vendor_cost;not null;default:0"`
	CustomerPrice     int64                `gorm:"column:customer_price;not null;default:0"`
	MarkupAmount      int64                `gorm:"column:markup_amount;not null;default:0"`
	MarkupPercentage  decimal.Decimal      `gorm:"column:markup_percentage;type:numeric(12,2);not null;default:0"`
	PaidAmount        int64                `gorm:"column:paid_amount;not null;default:0"`
	Items             []types.OrderItem    `gorm:"column:items;type:jsonb;serializer:json"`
	StatusHistory     []types.StatusChange `gorm:"column:status_history;type:jsonb;serializer:json"`
	ActiveSLA         *types.SLAWindow     `gorm:"column:active_sla;type:jsonb;serializer:json"`
	SLAHistory        []types.SLAWindow    `gorm:"column:sla_history;type:jsonb;serializer:json"`
	Metadata          types.JSONMap        `gorm:"column:metadata;type:jsonb;serializer:json"`
	TrackingNumber    *string              `gorm:"column:tracking_number"`
	EstimatedDelivery *time.Time           `gorm:"column:estimated_delivery"`
	ShippedAt         *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time           `gorm:"column:delivered_at"`
	CancelledAt       *time.Time           `gorm:"column:cancelled_at"`
	Version           int                  `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time            `gorm:"column:created_at"`
	UpdatedAt         time.Time            `gorm:"column:updated_at"`
	DeletedAt         gorm.DeletedAt       `gorm:"column:deleted_at;index"`
}

func (Order) TableName() string { return "orders" }
