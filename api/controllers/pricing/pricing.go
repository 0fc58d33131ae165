package pricing

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/api/responses"
	"github.com/etchbroker/makelar-backend/api/validators"
	internalpricing "github.com/etchbroker/makelar-backend/internal/pricing"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/logger"
)

type markupRequest struct {
	VendorCost    int64 `json:"vendor_cost" validate:"gt=0"`
	CustomerPrice int64 `json:"customer_price" validate:"gt=0"`
}

type profitRequest struct {
	VendorUnitCost    int64 `json:"vendor_unit_cost" validate:"gte=0"`
	CustomerUnitPrice int64 `json:"customer_unit_price" validate:"gte=0"`
	Quantity          int   `json:"quantity" validate:"gt=0"`
}

type candidateRequest struct {
	VendorID     uuid.UUID `json:"vendor_id" validate:"required"`
	QuoteID      uuid.UUID `json:"quote_id"`
	Price        int64     `json:"price" validate:"gte=0"`
	LeadTimeDays int       `json:"lead_time_days" validate:"gt=0"`
}

type compareRequest struct {
	Quotes []candidateRequest `json:"quotes" validate:"required,min=1,dive"`
}

type scheduleRequest struct {
	CustomerPrice int64  `json:"customer_price" validate:"gt=0"`
	PaymentType   string `json:"payment_type" validate:"required"`
}

type scheduleResponse struct {
	PaymentType      enums.PaymentType             `json:"payment_type"`
	Installments     []internalpricing.Installment `json:"installments"`
	DownPaymentFloor int64                         `json:"down_payment_floor"`
}

// Markup previews the margin of a customer price over a vendor cost.
func Markup(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalpricing.CalculateMarkup(req.VendorCost, req.CustomerPrice))
	}
}

func Profit(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalpricing.CalculateProfit(req.VendorUnitCost, req.CustomerUnitPrice, req.Quantity))
	}
}

// Compare ranks ad-hoc vendor prices without touching stored quotes.
func Compare(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compareRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		candidates := make([]internalpricing.QuoteCandidate, 0, len(req.Quotes))
		for _, q := range req.Quotes {
			candidates = append(candidates, internalpricing.QuoteCandidate{
				VendorID:     q.VendorID,
				QuoteID:      q.QuoteID,
				Price:        q.Price,
				LeadTimeDays: q.LeadTimeDays,
			})
		}
		comparison, err := internalpricing.CompareQuotes(candidates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, comparison)
	}
}

func Schedule(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentType, err := enums.ParsePaymentType(req.PaymentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.InvalidArgument("payment_type", err.Error()))
			return
		}
		installments, err := internalpricing.PaymentSchedule(req.CustomerPrice, paymentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, scheduleResponse{
			PaymentType:      paymentType,
			Installments:     installments,
			DownPaymentFloor: internalpricing.DownPaymentFloor(req.CustomerPrice),
		})
	}
}
