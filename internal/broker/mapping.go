package broker

import (
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"algo-core/internal/market"
	"algo-core/internal/trading"
)

// timeframeFor maps a timeframe label to the SDK timeframe and the
// wall-clock span of one bar.
func timeframeFor(tf string) (marketdata.TimeFrame, time.Duration, error) {
	switch tf {
	case market.Timeframe1Min:
		return marketdata.OneMin, time.Minute, nil
	case market.Timeframe5Min:
		return marketdata.NewTimeFrame(5, marketdata.Min), 5 * time.Minute, nil
	case market.Timeframe15Min:
		return marketdata.NewTimeFrame(15, marketdata.Min), 15 * time.Minute, nil
	case market.Timeframe1Hour:
		return marketdata.OneHour, time.Hour, nil
	case "", market.Timeframe1Day:
		return marketdata.OneDay, 24 * time.Hour, nil
	default:
		return marketdata.TimeFrame{}, 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
}

// barWindowStart picks a request start early enough that weekends,
// holidays and closed market hours still leave lookback bars between
// start and now.
func barWindowStart(now time.Time, span time.Duration, lookback int) time.Time {
	window := span*time.Duration(lookback)*3 + 5*24*time.Hour
	return now.Add(-window)
}

// recordFromOrder maps a broker order to a trade record. The record's
// status mirrors the broker's immediate fill state: anything but a
// fill is pending until reconciled later.
func recordFromOrder(order *alpaca.Order, fallbackQty float64) trading.TradeRecord {
	rec := trading.TradeRecord{
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Side:      strings.ToUpper(string(order.Side)),
		Qty:       fallbackQty,
		Status:    trading.StatusPending,
		CreatedAt: order.CreatedAt,
		FilledAt:  order.FilledAt,
	}
	if order.Qty != nil {
		rec.Qty = order.Qty.InexactFloat64()
	}
	if order.FilledAvgPrice != nil {
		price := order.FilledAvgPrice.InexactFloat64()
		rec.Price = &price
	}
	if order.Status == "filled" {
		rec.Status = trading.StatusFilled
	}
	return rec
}

func decimalFrom(qty float64) decimal.Decimal {
	return decimal.NewFromFloat(qty)
}
