package broker

import (
	"strings"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"algo-core/internal/market"
	"algo-core/internal/trading"
)

func TestTimeframeFor(t *testing.T) {
	tests := []struct {
		in      string
		span    time.Duration
		wantErr bool
	}{
		{market.Timeframe1Min, time.Minute, false},
		{market.Timeframe5Min, 5 * time.Minute, false},
		{market.Timeframe15Min, 15 * time.Minute, false},
		{market.Timeframe1Hour, time.Hour, false},
		{market.Timeframe1Day, 24 * time.Hour, false},
		{"", 24 * time.Hour, false}, // default is daily
		{"2Week", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, span, err := timeframeFor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("timeframeFor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && span != tt.span {
				t.Fatalf("span = %v, want %v", span, tt.span)
			}
		})
	}
}

func TestBarWindowStart(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	daily := barWindowStart(now, 24*time.Hour, 100)
	if min := now.AddDate(0, 0, -140); daily.After(min) {
		t.Fatalf("daily window start %v too recent; 100 trading days span weekends", daily)
	}

	intraday := barWindowStart(now, time.Minute, 100)
	if min := now.Add(-96 * time.Hour); intraday.After(min) {
		t.Fatalf("intraday window start %v does not clear a long weekend", intraday)
	}
	if intraday.Before(now.AddDate(0, 0, -10)) {
		t.Fatalf("intraday window start %v fetches far too much history", intraday)
	}
}

func TestRecordFromOrderFillStates(t *testing.T) {
	qty := decimal.NewFromFloat(20)
	price := decimal.NewFromFloat(50.25)
	filledAt := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

	t.Run("immediate fill", func(t *testing.T) {
		rec := recordFromOrder(&alpaca.Order{
			ID:             "ord-1",
			Symbol:         "AAPL",
			Side:           alpaca.Buy,
			Qty:            &qty,
			FilledAvgPrice: &price,
			FilledAt:       &filledAt,
			Status:         "filled",
		}, 0)

		if rec.Status != trading.StatusFilled {
			t.Fatalf("status = %s, want FILLED", rec.Status)
		}
		if rec.Side != trading.SideBuy {
			t.Fatalf("side = %s, want BUY", rec.Side)
		}
		if rec.Qty != 20 {
			t.Fatalf("qty = %v, want 20", rec.Qty)
		}
		if rec.Price == nil || *rec.Price != 50.25 {
			t.Fatalf("price = %v, want 50.25", rec.Price)
		}
		if rec.FilledAt == nil || !rec.FilledAt.Equal(filledAt) {
			t.Fatalf("filled_at = %v, want %v", rec.FilledAt, filledAt)
		}
	})

	t.Run("accepted but unfilled", func(t *testing.T) {
		rec := recordFromOrder(&alpaca.Order{
			ID:     "ord-2",
			Symbol: "AAPL",
			Side:   alpaca.Sell,
			Status: "accepted",
		}, 7.5)

		if rec.Status != trading.StatusPending {
			t.Fatalf("status = %s, want PENDING", rec.Status)
		}
		if rec.Side != trading.SideSell {
			t.Fatalf("side = %s, want SELL", rec.Side)
		}
		// No broker qty on the order yet; the intent qty stands in.
		if rec.Qty != 7.5 {
			t.Fatalf("qty = %v, want 7.5", rec.Qty)
		}
		if rec.Price != nil {
			t.Fatalf("unfilled order must have nil price, got %v", *rec.Price)
		}
		if rec.FilledAt != nil {
			t.Fatal("unfilled order must have nil filled_at")
		}
	})
}

func TestClientOrderIDCarriesInstancePrefix(t *testing.T) {
	a := New(Config{APIKey: "k", APISecret: "s", Paper: true, InstanceID: "ac-1a2b3c4d"})
	id := a.clientOrderID()
	if !strings.HasPrefix(id, "ac-1a2b3c4d-") {
		t.Fatalf("client order id %q missing instance prefix", id)
	}

	bare := New(Config{APIKey: "k", APISecret: "s", Paper: true})
	if strings.HasPrefix(bare.clientOrderID(), "-") {
		t.Fatal("empty instance must not leave a dangling dash")
	}
}

func TestNewSelectsEnvironment(t *testing.T) {
	if a := New(Config{APIKey: "k", APISecret: "s", Paper: true}); !a.Paper() {
		t.Fatal("paper config should report paper environment")
	}
	if a := New(Config{APIKey: "k", APISecret: "s"}); a.Paper() {
		t.Fatal("live config should not report paper environment")
	}
	if a := New(Config{APIKey: "k", APISecret: "s", BaseURL: paperBaseURL}); !a.Paper() {
		t.Fatal("explicit paper base URL should report paper environment")
	}
}
