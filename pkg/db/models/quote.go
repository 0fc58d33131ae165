package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

// Quote is one vendor negotiation against an order.
type Quote struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	TenantID       uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null"`
	Sequence       int64                `gorm:"column:sequence;not null"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	VendorID       uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null"`
	ProductID      *uuid.UUID           `gorm:"column:product_id;type:uuid"`
	Quantity       int                  `gorm:"column:quantity;not null;default:1"`
	Specifications types.JSONMap        `gorm:"column:specifications;type:jsonb;serializer:json"`
	Currency       enums.Currency       `gorm:"column:currency;type:text;not null;default:'IDR'"`
	InitialOffer   int64                `gorm:"column:initial_offer;not null"`
	LatestOffer    int64                `gorm:"column:latest_offer;not null"`
	Round          int                  `gorm:"column:round;not null;default:1"`
	Status         enums.QuoteStatus    `gorm:"column:status;type:text;not null;default:'draft'"`
	StatusHistory  []types.StatusChange `gorm:"column:status_history;type:jsonb;serializer:json"`
	History        []types.HistoryEntry `gorm:"column:history;type:jsonb;serializer:json"`
	SentAt         *time.Time           `gorm:"column:sent_at"`
	RespondedAt    *time.Time           `gorm:"column:responded_at"`
	ExpiresAt      *time.Time           `gorm:"column:expires_at"`
	ClosedAt       *time.Time           `gorm:"column:closed_at"`
	CreatedBy      *uuid.UUID           `gorm:"column:created_by;type:uuid"`
	Version        int                  `gorm:"column:version;not null;default:1"`
	CreatedAt      time.Time            `gorm:"column:created_at"`
	UpdatedAt      time.Time            `gorm:"column:updated_at"`
	DeletedAt      gorm.DeletedAt       `gorm:"column:deleted_at;index"`
}

func (Quote) TableName() string { return "quotes" }
