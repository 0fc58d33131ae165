package quotes

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/api/responses"
	"github.com/etchbroker/makelar-backend/api/validators"
	internalquotes "github.com/etchbroker/makelar-backend/internal/quotes"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/money"
	"github.com/etchbroker/makelar-backend/pkg/pagination"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

const maxNotesLength = 2000

type createRequest struct {
	OrderID        uuid.UUID     `json:"order_id" validate:"required"`
	VendorID       uuid.UUID     `json:"vendor_id" validate:"required"`
	ProductID      *uuid.UUID    `json:"product_id"`
	Quantity       int           `json:"quantity" validate:"gt=0"`
	Specifications types.JSONMap `json:"specifications"`
	InitialOffer   int64         `json:"initial_offer" validate:"gt=0"`
	Currency       string        `json:"currency"`
	ExpiresAt      *time.Time    `json:"expires_at"`
}

type responseRequest struct {
	Response     string `json:"response" validate:"required,oneof=accept reject counter"`
	Notes        string `json:"notes"`
	CounterOffer *int64 `json:"counter_offer"`
}

type offerRequest struct {
	Amount   int64  `json:"amount" validate:"gt=0"`
	Currency string `json:"currency"`
}

type detailsRequest struct {
	ProductID      *uuid.UUID    `json:"product_id"`
	Quantity       *int          `json:"quantity" validate:"omitempty,gt=0"`
	Specifications types.JSONMap `json:"specifications"`
}

type extendRequest struct {
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
}

// Create opens a quote for one vendor on one order. A second active quote
// for the same pair is rejected with DUPLICATE_ACTIVE_QUOTE.
func Create(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := parseMoney(req.InitialOffer, req.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Create(r.Context(), internalquotes.CreateInput{
			OrderID:        req.OrderID,
			VendorID:       req.VendorID,
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			Specifications: req.Specifications,
			InitialOffer:   offer,
			ExpiresAt:      req.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toDTO(quote))
	}
}

func List(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := buildListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPage(page))
	}
}

func Detail(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Get(r.Context(), quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(quote))
	}
}

// ListActiveForOrder returns the open negotiations of one order.
func ListActiveForOrder(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := svc.ListActiveForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTOs(active))
	}
}

// Compare ranks the order's quotes by latest offer.
func Compare(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		comparison, err := svc.CompareForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, comparison)
	}
}

func Send(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Send(r.Context(), quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(quote))
	}
}

// RecordResponse stores the vendor's accept, reject or counter.
func RecordResponse(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req responseRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		response, err := enums.ParseQuoteResponse(req.Response)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.InvalidArgument("response", err.Error()))
			return
		}
		quote, err := svc.RecordResponse(r.Context(), internalquotes.ResponseInput{
			QuoteID:      quoteID,
			Response:     response,
			Notes:        validators.SanitizeString(req.Notes, maxNotesLength),
			CounterOffer: req.CounterOffer,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(quote))
	}
}

func UpdateOffer(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req offerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := parseMoney(req.Amount, req.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.UpdateOffer(r.Context(), quoteID, amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(quote))
	}
}

func UpdateDetails(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req detailsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.UpdateDetails(r.Context(), quoteID, internalquotes.DetailsUpdate{
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			Specifications: req.Specifications,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(quote))
	}
}

// ExtendExpiration pushes the expiry of an open quote later.
func ExtendExpiration(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req extendRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.ExtendExpiration(r.Context(), quoteID, req.ExpiresAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(quote))
	}
}

func parseMoney(amount int64, rawCurrency string) (money.Money, error) {
	rawCurrency = strings.TrimSpace(rawCurrency)
	if rawCurrency == "" {
		return money.Money{Amount: amount}, nil
	}
	currency, err := enums.ParseCurrency(rawCurrency)
	if err != nil {
		return money.Money{}, pkgerrors.InvalidArgument("currency", err.Error())
	}
	return money.New(amount, currency), nil
}

func buildListFilter(r *http.Request) (internalquotes.ListFilter, error) {
	var filter internalquotes.ListFilter
	var raw []string
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			raw = append(raw, strings.TrimSpace(part))
		}
	}
	statuses, err := enums.ParseQuoteStatuses(raw)
	if err != nil {
		return filter, pkgerrors.InvalidArgument("status", err.Error())
	}
	if len(statuses) > 0 {
		filter.Statuses = statuses
	}
	if filter.OrderID, err = validators.ParseQueryUUID(r, "order_id"); err != nil {
		return filter, err
	}
	if filter.VendorID, err = validators.ParseQueryUUID(r, "vendor_id"); err != nil {
		return filter, err
	}
	return filter, nil
}
