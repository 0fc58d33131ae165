package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/api/responses"
	"github.com/etchbroker/makelar-backend/api/validators"
	internalorders "github.com/etchbroker/makelar-backend/internal/orders"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/pagination"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

const maxReasonLength = 500

type itemRequest struct {
	ProductID      uuid.UUID     `json:"product_id" validate:"required"`
	Quantity       int           `json:"quantity" validate:"gt=0"`
	UnitPrice      int64         `json:"unit_price" validate:"gte=0"`
	Specifications types.JSONMap `json:"specifications"`
}

type createRequest struct {
	CustomerID *uuid.UUID    `json:"customer_id"`
	Currency   string        `json:"currency"`
	Items      []itemRequest `json:"items" validate:"dive"`
	Metadata   types.JSONMap `json:"metadata"`
}

type partiesRequest struct {
	CustomerID *uuid.UUID `json:"customer_id"`
	VendorID   *uuid.UUID `json:"vendor_id"`
}

type itemsRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type pricingRequest struct {
	VendorCost    int64 `json:"vendor_cost" validate:"gt=0"`
	CustomerPrice int64 `json:"customer_price" validate:"gt=0"`
}

type paymentTypeRequest struct {
	PaymentType string `json:"payment_type" validate:"required"`
}

type transitionRequest struct {
	Status             string     `json:"status" validate:"required"`
	Reason             string     `json:"reason"`
	QuotationAmount    *int64     `json:"quotation_amount"`
	EstimatedDelivery  *time.Time `json:"estimated_delivery"`
	TrackingNumber     *string    `json:"tracking_number"`
	DeliveredAt        *time.Time `json:"delivered_at"`
	CancellationReason string     `json:"cancellation_reason"`
	RefundAmount       *int64     `json:"refund_amount"`
	RefundReason       string     `json:"refund_reason"`
}

// Create opens a new order for the caller's tenant.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var currency enums.Currency
		if strings.TrimSpace(req.Currency) != "" {
			parsed, err := enums.ParseCurrency(req.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.InvalidArgument("currency", err.Error()))
				return
			}
			currency = parsed
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			CustomerID: req.CustomerID,
			Items:      toItems(req.Items),
			Currency:   currency,
			Metadata:   req.Metadata,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toDTO(order))
	}
}

// List returns a page of the tenant's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(order))
	}
}

// AssignParties sets the customer and/or vendor of an order.
func AssignParties(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req partiesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.AssignParties(r.Context(), orderID, internalorders.AssignInput{
			CustomerID: req.CustomerID,
			VendorID:   req.VendorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(order))
	}
}

func SetItems(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req itemsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.SetItems(r.Context(), orderID, toItems(req.Items))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(order))
	}
}

// SetPricing records vendor cost and customer price; markup is derived.
func SetPricing(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req pricingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.SetPricing(r.Context(), orderID, internalorders.PricingInput{
			VendorCost:    req.VendorCost,
			CustomerPrice: req.CustomerPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(order))
	}
}

func SelectPaymentType(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req paymentTypeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentType, err := enums.ParsePaymentType(req.PaymentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.InvalidArgument("payment_type", err.Error()))
			return
		}
		order, err := svc.SelectPaymentType(r.Context(), orderID, paymentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(order))
	}
}

// Transition moves the order to the requested status. A refused move returns
// 422 with every unmet precondition listed in details.violations.
func Transition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.InvalidArgument("status", err.Error()))
			return
		}
		order, err := svc.Transition(r.Context(), orderID, to, internalorders.TransitionInput{
			Reason:             validators.SanitizeString(req.Reason, maxReasonLength),
			QuotationAmount:    req.QuotationAmount,
			EstimatedDelivery:  req.EstimatedDelivery,
			TrackingNumber:     req.TrackingNumber,
			DeliveredAt:        req.DeliveredAt,
			CancellationReason: validators.SanitizeString(req.CancellationReason, maxReasonLength),
			RefundAmount:       req.RefundAmount,
			RefundReason:       validators.SanitizeString(req.RefundReason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(order))
	}
}

// AvailableTransitions lists the next statuses with any blocking violations.
func AvailableTransitions(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transitions, err := svc.AvailableTransitions(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if transitions == nil {
			transitions = []internalorders.AvailableTransition{}
		}
		responses.WriteSuccess(w, transitions)
	}
}

func buildListFilter(r *http.Request) (internalorders.ListFilter, error) {
	var filter internalorders.ListFilter
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, err := enums.ParseOrderStatus(part)
			if err != nil {
				return filter, pkgerrors.InvalidArgument("status", err.Error())
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	customerID, err := validators.ParseQueryUUID(r, "customer_id")
	if err != nil {
		return filter, err
	}
	vendorID, err := validators.ParseQueryUUID(r, "vendor_id")
	if err != nil {
		return filter, err
	}
	filter.CustomerID = customerID
	filter.VendorID = vendorID
	return filter, nil
}

func toItems(in []itemRequest) []types.OrderItem {
	items := make([]types.OrderItem, 0, len(in))
	for _, item := range in {
		items = append(items, types.OrderItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			Specifications: item.Specifications,
		})
	}
	return items
}
