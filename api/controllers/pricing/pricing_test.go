package pricing

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func post(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestMarkup(t *testing.T) {
	rec := post(t, Markup(testLogger()), `{"vendor_cost":800000,"customer_price":1000000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data struct {
			MarkupAmount     int64  `json:"markup_amount"`
			MarkupPercentage string `json:"markup_percentage"`
			IsProfitable     bool   `json:"is_profitable"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.MarkupAmount != 200_000 || payload.Data.MarkupPercentage != "25" || !payload.Data.IsProfitable {
		t.Fatalf("unexpected markup %+v", payload.Data)
	}
}

func TestMarkupRejectsZeroCost(t *testing.T) {
	rec := post(t, Markup(testLogger()), `{"vendor_cost":0,"customer_price":1000}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestProfit(t *testing.T) {
	rec := post(t, Profit(testLogger()), `{"vendor_unit_cost":15000,"customer_unit_price":20000,"quantity":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total":500000`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCompareRanksCheapestFirst(t *testing.T) {
	cheap, pricey := uuid.New(), uuid.New()
	body := `{"quotes":[{"vendor_id":"` + pricey.String() + `","price":900000,"lead_time_days":14},{"vendor_id":"` + cheap.String() + `","price":700000,"lead_time_days":21}]}`
	rec := post(t, Compare(testLogger()), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data struct {
			MinPrice int64 `json:"min_price"`
			Quotes   []struct {
				VendorID uuid.UUID `json:"vendor_id"`
				Rank     int       `json:"rank"`
			} `json:"quotes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.MinPrice != 700_000 || len(payload.Data.Quotes) != 2 {
		t.Fatalf("unexpected comparison %+v", payload.Data)
	}
	if payload.Data.Quotes[0].VendorID != cheap || payload.Data.Quotes[0].Rank != 1 {
		t.Fatalf("cheapest vendor should rank first: %+v", payload.Data.Quotes[0])
	}
}

func TestCompareRequiresQuotes(t *testing.T) {
	rec := post(t, Compare(testLogger()), `{"quotes":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestScheduleSplitsDownPayment(t *testing.T) {
	rec := post(t, Schedule(testLogger()), `{"customer_price":1000001,"payment_type":"dp_50"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data struct {
			Installments []struct {
				Kind   string `json:"kind"`
				Amount int64  `json:"amount"`
			} `json:"installments"`
			DownPaymentFloor int64 `json:"down_payment_floor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Data.Installments) != 2 {
		t.Fatalf("expected two installments, got %+v", payload.Data.Installments)
	}
	sum := payload.Data.Installments[0].Amount + payload.Data.Installments[1].Amount
	if sum != 1_000_001 {
		t.Fatalf("installments must sum to price, got %d", sum)
	}
	if payload.Data.DownPaymentFloor != 500_001 {
		t.Fatalf("unexpected floor %d", payload.Data.DownPaymentFloor)
	}
}

func TestScheduleRejectsUnknownType(t *testing.T) {
	rec := post(t, Schedule(testLogger()), `{"customer_price":1000,"payment_type":"dp_30"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
