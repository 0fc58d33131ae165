package quotes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	internalpricing "github.com/etchbroker/makelar-backend/internal/pricing"
	internalquotes "github.com/etchbroker/makelar-backend/internal/quotes"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/money"
	"github.com/etchbroker/makelar-backend/pkg/pagination"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type stubQuotesService struct {
	quote       *internalquotes.Quote
	err         error
	createInput internalquotes.CreateInput
	response    internalquotes.ResponseInput
	offer       money.Money
	listFilter  internalquotes.ListFilter
	comparison  internalpricing.Comparison
}

func (s *stubQuotesService) Create(_ context.Context, input internalquotes.CreateInput) (*internalquotes.Quote, error) {
	s.createInput = input
	return s.quote, s.err
}

func (s *stubQuotesService) Get(context.Context, uuid.UUID) (*internalquotes.Quote, error) {
	return s.quote, s.err
}

func (s *stubQuotesService) List(_ context.Context, filter internalquotes.ListFilter, _ pagination.Params) (*pagination.Page[*internalquotes.Quote], error) {
	s.listFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return &pagination.Page[*internalquotes.Quote]{Items: []*internalquotes.Quote{s.quote}}, nil
}

func (s *stubQuotesService) ListActiveForOrder(context.Context, uuid.UUID) ([]*internalquotes.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*internalquotes.Quote{s.quote}, nil
}

func (s *stubQuotesService) Send(context.Context, uuid.UUID) (*internalquotes.Quote, error) {
	return s.quote, s.err
}

func (s *stubQuotesService) RecordResponse(_ context.Context, input internalquotes.ResponseInput) (*internalquotes.Quote, error) {
	s.response = input
	return s.quote, s.err
}

func (s *stubQuotesService) UpdateOffer(_ context.Context, _ uuid.UUID, amount money.Money) (*internalquotes.Quote, error) {
	s.offer = amount
	return s.quote, s.err
}

func (s *stubQuotesService) UpdateDetails(context.Context, uuid.UUID, internalquotes.DetailsUpdate) (*internalquotes.Quote, error) {
	return s.quote, s.err
}

func (s *stubQuotesService) ExtendExpiration(context.Context, uuid.UUID, time.Time) (*internalquotes.Quote, error) {
	return s.quote, s.err
}

func (s *stubQuotesService) Expire(context.Context, tenant.Scope, uuid.UUID) (bool, error) {
	return false, s.err
}

func (s *stubQuotesService) CompareForOrder(context.Context, uuid.UUID) (internalpricing.Comparison, error) {
	return s.comparison, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newQuote(t *testing.T) *internalquotes.Quote {
	t.Helper()
	quote, err := internalquotes.New(internalquotes.NewQuoteParams{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		OrderID:      uuid.New(),
		VendorID:     uuid.New(),
		Quantity:     50,
		InitialOffer: money.New(750_000, enums.CurrencyIDR),
	}, baseTime)
	if err != nil {
		t.Fatalf("new quote: %v", err)
	}
	return quote
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateReturnsDraftQuote(t *testing.T) {
	svc := &stubQuotesService{quote: newQuote(t)}
	body := `{"order_id":"` + uuid.NewString() + `","vendor_id":"` + uuid.NewString() + `","quantity":50,"initial_offer":750000}`
	rec := httptest.NewRecorder()

	Create(svc, testLogger())(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.createInput.InitialOffer.Amount != 750_000 || svc.createInput.InitialOffer.Currency != "" {
		t.Fatalf("unexpected offer %+v", svc.createInput.InitialOffer)
	}
	var payload struct {
		Data QuoteDTO `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.Status != enums.QuoteStatusDraft || payload.Data.LatestOffer != 750_000 {
		t.Fatalf("unexpected quote %+v", payload.Data)
	}
}

func TestCreateRejectsMissingOffer(t *testing.T) {
	svc := &stubQuotesService{quote: newQuote(t)}
	body := `{"order_id":"` + uuid.NewString() + `","vendor_id":"` + uuid.NewString() + `","quantity":1}`
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCreateMapsDuplicateActiveQuote(t *testing.T) {
	svc := &stubQuotesService{err: pkgerrors.New(pkgerrors.CodeDuplicateQuote, "vendor already has an active quote for this order")}
	body := `{"order_id":"` + uuid.NewString() + `","vendor_id":"` + uuid.NewString() + `","quantity":1,"initial_offer":100}`
	rec := httptest.NewRecorder()

	Create(svc, testLogger())(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(body)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(pkgerrors.CodeDuplicateQuote)) {
		t.Fatalf("expected duplicate code in body: %s", rec.Body.String())
	}
}

func TestRecordResponseMapsExpiredQuote(t *testing.T) {
	svc := &stubQuotesService{err: pkgerrors.New(pkgerrors.CodeQuoteExpired, "quote has expired")}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"response":"accept"}`)), "quoteId", uuid.NewString())
	rec := httptest.NewRecorder()

	RecordResponse(svc, testLogger())(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if svc.response.Response != enums.QuoteResponseAccept {
		t.Fatalf("response not forwarded: %+v", svc.response)
	}
}

func TestRecordResponseForwardsCounterOffer(t *testing.T) {
	svc := &stubQuotesService{quote: newQuote(t)}
	body := `{"response":"counter","counter_offer":820000,"notes":"  rush fee  "}`
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "quoteId", uuid.NewString())
	rec := httptest.NewRecorder()

	RecordResponse(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.response.CounterOffer == nil || *svc.response.CounterOffer != 820_000 {
		t.Fatalf("counter offer not forwarded")
	}
	if svc.response.Notes != "rush fee" {
		t.Fatalf("notes not sanitized: %q", svc.response.Notes)
	}
}

func TestRecordResponseRejectsUnknownResponse(t *testing.T) {
	svc := &stubQuotesService{quote: newQuote(t)}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"response":"maybe"}`)), "quoteId", uuid.NewString())
	rec := httptest.NewRecorder()
	RecordResponse(svc, testLogger())(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUpdateOfferParsesCurrency(t *testing.T) {
	svc := &stubQuotesService{quote: newQuote(t)}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"amount":700000,"currency":"IDR"}`)), "quoteId", uuid.NewString())
	rec := httptest.NewRecorder()

	UpdateOffer(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.offer.Amount != 700_000 || svc.offer.Currency != enums.CurrencyIDR {
		t.Fatalf("unexpected offer %+v", svc.offer)
	}
}

func TestUpdateOfferRejectsUnknownCurrency(t *testing.T) {
	svc := &stubQuotesService{quote: newQuote(t)}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"amount":700000,"currency":"XXX"}`)), "quoteId", uuid.NewString())
	rec := httptest.NewRecorder()
	UpdateOffer(svc, testLogger())(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestListParsesStatusAndOrderFilter(t *testing.T) {
	svc := &stubQuotesService{quote: newQuote(t)}
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes?status=sent,countered&order_id="+orderID.String(), nil)
	rec := httptest.NewRecorder()

	List(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.listFilter.Statuses) != 2 || svc.listFilter.Statuses[1] != enums.QuoteStatusCountered {
		t.Fatalf("unexpected statuses %v", svc.listFilter.Statuses)
	}
	if svc.listFilter.OrderID == nil || *svc.listFilter.OrderID != orderID {
		t.Fatalf("order filter not applied")
	}
}

func TestCompareReturnsRanking(t *testing.T) {
	svc := &stubQuotesService{comparison: internalpricing.Comparison{MinPrice: 700_000, MaxPrice: 900_000}}
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", uuid.NewString())
	rec := httptest.NewRecorder()

	Compare(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"min_price":700000`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestExtendExpirationRequiresTimestamp(t *testing.T) {
	svc := &stubQuotesService{quote: newQuote(t)}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), "quoteId", uuid.NewString())
	rec := httptest.NewRecorder()
	ExtendExpiration(svc, testLogger())(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
