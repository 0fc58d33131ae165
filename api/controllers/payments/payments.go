package payments

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/etchbroker/makelar-backend/api/responses"
	"github.com/etchbroker/makelar-backend/api/validators"
	internalpayments "github.com/etchbroker/makelar-backend/internal/payments"
	"github.com/etchbroker/makelar-backend/pkg/db/models"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/logger"
)

const (
	maxMethodLength    = 64
	maxReferenceLength = 128
)

type recordRequest struct {
	Amount    int64      `json:"amount"`
	Method    string     `json:"method"`
	Reference *string    `json:"reference"`
	PaidAt    *time.Time `json:"paid_at"`
}

type payoutRequest struct {
	recordRequest
	Type string `json:"type" validate:"required,oneof=vendor_dp vendor_final"`
}

type previewRequest struct {
	Amount int64 `json:"amount"`
}

// TransactionDTO is the API shape of a recorded payment with its splits.
type TransactionDTO struct {
	ID          uuid.UUID                  `json:"id"`
	OrderID     uuid.UUID                  `json:"order_id"`
	Direction   enums.TransactionDirection `json:"direction"`
	Type        enums.TransactionType      `json:"type"`
	Amount      int64                      `json:"amount"`
	Currency    enums.Currency             `json:"currency"`
	Method      string                     `json:"method"`
	Reference   *string                    `json:"reference,omitempty"`
	VendorID    *uuid.UUID                 `json:"vendor_id,omitempty"`
	RecordedBy  *uuid.UUID                 `json:"recorded_by,omitempty"`
	PaidAt      time.Time                  `json:"paid_at"`
	CreatedAt   time.Time                  `json:"created_at"`
	Allocations []AllocationDTO            `json:"allocations"`
}

type AllocationDTO struct {
	ID             uuid.UUID              `json:"id"`
	Type           enums.AllocationType   `json:"type"`
	Amount         int64                  `json:"amount"`
	Percentage     decimal.Decimal        `json:"percentage"`
	TargetVendorID *uuid.UUID             `json:"target_vendor_id,omitempty"`
	Status         enums.AllocationStatus `json:"status"`
	PaidAt         *time.Time             `json:"paid_at,omitempty"`
}

// RecordCustomerPayment books an incoming payment against an order. Amounts
// must be positive; a zero or negative amount is rejected with
// INVALID_PAYMENT_AMOUNT by the allocation engine.
func RecordCustomerPayment(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req recordRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.RecordCustomerPayment(r.Context(), internalpayments.CustomerPaymentInput{
			OrderID:   orderID,
			Amount:    req.Amount,
			Method:    validators.SanitizeString(req.Method, maxMethodLength),
			Reference: sanitizeRef(req.Reference),
			PaidAt:    req.PaidAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toDTO(txn))
	}
}

// RecordVendorPayout books a disbursement to the order's vendor.
func RecordVendorPayout(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req payoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txType, err := enums.ParseTransactionType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.InvalidArgument("type", err.Error()))
			return
		}
		txn, err := svc.RecordVendorPayout(r.Context(), internalpayments.VendorPayoutInput{
			OrderID:   orderID,
			Type:      txType,
			Amount:    req.Amount,
			Method:    validators.SanitizeString(req.Method, maxMethodLength),
			Reference: sanitizeRef(req.Reference),
			PaidAt:    req.PaidAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toDTO(txn))
	}
}

// Preview shows how a customer payment of the given amount would be split.
func Preview(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req previewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		allocations, err := svc.Preview(r.Context(), orderID, req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, allocations)
	}
}

func List(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txns, err := svc.ListForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]TransactionDTO, 0, len(txns))
		for i := range txns {
			out = append(out, toDTO(&txns[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// MarkAllocationPaid settles one allocation line.
func MarkAllocationPaid(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allocationID, err := validators.ParseUUIDParam(r, "allocationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkAllocationPaid(r.Context(), allocationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": allocationID, "status": enums.AllocationStatusPaid})
	}
}

func sanitizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	clean := validators.SanitizeString(*ref, maxReferenceLength)
	if clean == "" {
		return nil
	}
	return &clean
}

func toDTO(txn *models.PaymentTransaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          txn.ID,
		OrderID:     txn.OrderID,
		Direction:   txn.Direction,
		Type:        txn.Type,
		Amount:      txn.Amount,
		Currency:    txn.Currency,
		Method:      txn.Method,
		Reference:   txn.Reference,
		VendorID:    txn.VendorID,
		RecordedBy:  txn.RecordedBy,
		PaidAt:      txn.PaidAt,
		CreatedAt:   txn.CreatedAt,
		Allocations: make([]AllocationDTO, 0, len(txn.Allocations)),
	}
	for _, a := range txn.Allocations {
		dto.Allocations = append(dto.Allocations, AllocationDTO{
			ID:             a.ID,
			Type:           a.AllocationType,
			Amount:         a.AllocatedAmount,
			Percentage:     a.AllocatedPercentage,
			TargetVendorID: a.TargetVendorID,
			Status:         a.Status,
			PaidAt:         a.PaidAt,
		})
	}
	return dto
}
