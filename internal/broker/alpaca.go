package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"algo-core/internal/market"
	"algo-core/internal/trading"
	"algo-core/pkg/cache"
)

const (
	paperBaseURL = "https://paper-api.alpaca.markets"
	liveBaseURL  = "https://api.alpaca.markets"

	// barCacheTTL keeps bar history long enough for every strategy in a
	// cycle to share one fetch, but not across cycles at the default
	// interval.
	barCacheTTL = 30 * time.Second
)

// Config selects the Alpaca environment and request pacing.
type Config struct {
	APIKey    string
	APISecret string
	// Paper selects the paper-trading environment. Ignored when
	// BaseURL is set explicitly.
	Paper   bool
	BaseURL string
	// Feed is the market data feed (iex or sip).
	Feed string
	// InstanceID prefixes client order ids so orders from different
	// deployments stay distinguishable at the broker.
	InstanceID string
	// RequestsPerSecond paces outgoing API calls. Defaults to 3, well
	// under the 200/min account limit.
	RequestsPerSecond float64
}

// AccountSnapshot is the subset of account state the API layer exposes.
type AccountSnapshot struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Equity      float64 `json:"equity"`
	Cash        float64 `json:"cash"`
	BuyingPower float64 `json:"buying_power"`
}

// Alpaca adapts the Alpaca trading and market data clients to the
// broker surface the control loop consumes. All calls run through a
// shared limiter so bursts of strategies cannot trip API limits.
type Alpaca struct {
	trading  *alpaca.Client
	data     *marketdata.Client
	feed     marketdata.Feed
	limiter  *rate.Limiter
	bars     *cache.Sharded[[]market.Bar]
	instance string
	paper    bool
}

// New builds a broker client. It performs no network calls; use
// GetAccount to verify connectivity.
func New(cfg Config) *Alpaca {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = liveBaseURL
		if cfg.Paper {
			baseURL = paperBaseURL
		}
	}

	feed := marketdata.IEX
	if strings.EqualFold(cfg.Feed, "sip") {
		feed = marketdata.SIP
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}

	return &Alpaca{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   baseURL,
		}),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
		}),
		feed:     feed,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		bars:     cache.New[[]market.Bar](barCacheTTL),
		instance: cfg.InstanceID,
		paper:    cfg.Paper || baseURL == paperBaseURL,
	}
}

// Paper reports whether this client targets the paper environment.
func (a *Alpaca) Paper() bool { return a.paper }

// GetAccount fetches the account snapshot.
func (a *Alpaca) GetAccount(ctx context.Context) (AccountSnapshot, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return AccountSnapshot{}, err
	}
	acct, err := a.trading.GetAccount()
	if err != nil {
		return AccountSnapshot{}, fmt.Errorf("get account: %w", err)
	}
	return AccountSnapshot{
		ID:          acct.ID,
		Status:      acct.Status,
		Equity:      acct.Equity.InexactFloat64(),
		Cash:        acct.Cash.InexactFloat64(),
		BuyingPower: acct.BuyingPower.InexactFloat64(),
	}, nil
}

// GetBuyingPower fetches the account's current buying power.
func (a *Alpaca) GetBuyingPower(ctx context.Context) (float64, error) {
	acct, err := a.GetAccount(ctx)
	if err != nil {
		return 0, err
	}
	return acct.BuyingPower, nil
}

// GetPositions lists open positions.
func (a *Alpaca) GetPositions(ctx context.Context) ([]trading.PositionSnapshot, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	positions, err := a.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	out := make([]trading.PositionSnapshot, 0, len(positions))
	for _, p := range positions {
		snap := trading.PositionSnapshot{
			Symbol:        p.Symbol,
			Qty:           p.Qty.InexactFloat64(),
			AvgEntryPrice: p.AvgEntryPrice.InexactFloat64(),
		}
		if p.CurrentPrice != nil {
			snap.CurrentPrice = p.CurrentPrice.InexactFloat64()
		}
		out = append(out, snap)
	}
	return out, nil
}

// GetPriceHistory fetches the most recent lookback bars for a symbol.
// Results are cached briefly so strategies sharing a symbol within one
// cycle reuse a single data request.
func (a *Alpaca) GetPriceHistory(ctx context.Context, symbol, timeframe string, lookback int) ([]market.Bar, error) {
	tf, span, err := timeframeFor(timeframe)
	if err != nil {
		return nil, err
	}
	if lookback <= 0 {
		lookback = 100
	}

	key := fmt.Sprintf("%s|%s|%d", symbol, timeframe, lookback)
	if bars, ok := a.bars.Get(key); ok {
		return bars, nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := a.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     barWindowStart(time.Now(), span, lookback),
		Feed:      a.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("get bars for %s: %w", symbol, err)
	}

	// The window start is generous, so clip to the newest bars.
	if len(raw) > lookback {
		raw = raw[len(raw)-lookback:]
	}
	bars := make([]market.Bar, len(raw))
	for i, b := range raw {
		bars[i] = market.Bar{
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    float64(b.Volume),
		}
	}
	a.bars.Set(key, bars)
	return bars, nil
}

// GetLatestPrice fetches the most recent trade price for a symbol.
func (a *Alpaca) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	trade, err := a.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: a.feed})
	if err != nil {
		return 0, fmt.Errorf("latest trade for %s: %w", symbol, err)
	}
	return trade.Price, nil
}

// SubmitOrder places a market day order for the intent.
func (a *Alpaca) SubmitOrder(ctx context.Context, intent trading.OrderIntent) (trading.TradeRecord, error) {
	side := alpaca.Buy
	if intent.Side == trading.SideSell {
		side = alpaca.Sell
	}
	qty := decimalFrom(intent.Qty)

	if err := a.limiter.Wait(ctx); err != nil {
		return trading.TradeRecord{}, err
	}
	order, err := a.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        intent.Symbol,
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: a.clientOrderID(),
	})
	if err != nil {
		return trading.TradeRecord{}, fmt.Errorf("place %s order for %s: %w", side, intent.Symbol, err)
	}
	return recordFromOrder(order, intent.Qty), nil
}

// ClosePosition liquidates the full position for a symbol with a
// market order on the opposite side.
func (a *Alpaca) ClosePosition(ctx context.Context, symbol string) (trading.TradeRecord, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return trading.TradeRecord{}, err
	}
	order, err := a.trading.ClosePosition(symbol, alpaca.ClosePositionRequest{})
	if err != nil {
		return trading.TradeRecord{}, fmt.Errorf("close position %s: %w", symbol, err)
	}

	qty := 0.0
	if order.Qty != nil {
		qty = order.Qty.InexactFloat64()
	}
	return recordFromOrder(order, qty), nil
}

func (a *Alpaca) clientOrderID() string {
	id := uuid.NewString()
	if a.instance == "" {
		return id
	}
	return a.instance + "-" + id
}
