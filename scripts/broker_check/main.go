package main

import (
	"context"
	"log"
	"os"
	"time"

	"algo-core/internal/broker"
	"algo-core/pkg/config"
	"algo-core/pkg/ident"
)

// broker_check/main.go
//
// Quick connectivity check against the Alpaca API using the same
// credentials and client the service uses. Read-only: account state,
// a latest quote, and a short bar history. No orders are placed.
//
// Usage:
//
//	go run ./scripts/broker_check
//
// Environment (same as the main service):
//
//	APCA_API_KEY_ID / APCA_API_SECRET_KEY
//	ALPACA_PAPER       (default "true")
//	ALPACA_DATA_FEED   (default "iex")
//	CHECK_SYMBOL       (default "AAPL")

func main() {
	log.Println("=== Broker connectivity check starting ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	symbol := os.Getenv("CHECK_SYMBOL")
	if symbol == "" {
		symbol = "AAPL"
	}

	client := broker.New(broker.Config{
		APIKey:     cfg.AlpacaKey,
		APISecret:  cfg.AlpacaSecret,
		Paper:      cfg.AlpacaPaper,
		BaseURL:    cfg.AlpacaBaseURL,
		Feed:       cfg.DataFeed,
		InstanceID: ident.InstanceID(),
	})
	log.Printf("paper=%v feed=%s symbol=%s", client.Paper(), cfg.DataFeed, symbol)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	account, err := client.GetAccount(ctx)
	if err != nil {
		log.Fatalf("[ACCOUNT] failed: %v", err)
	}
	log.Printf("[ACCOUNT] id=%s status=%s equity=%.2f cash=%.2f buying_power=%.2f",
		account.ID, account.Status, account.Equity, account.Cash, account.BuyingPower)

	price, err := client.GetLatestPrice(ctx, symbol)
	if err != nil {
		log.Fatalf("[QUOTE] failed: %v", err)
	}
	log.Printf("[QUOTE] %s latest trade price: %.2f", symbol, price)

	bars, err := client.GetPriceHistory(ctx, symbol, "1Day", 5)
	if err != nil {
		log.Fatalf("[BARS] failed: %v", err)
	}
	log.Printf("[BARS] %s: %d daily bars", symbol, len(bars))
	for _, bar := range bars {
		log.Printf("[BARS]   %s o=%.2f h=%.2f l=%.2f c=%.2f v=%.0f",
			bar.Timestamp.Format("2006-01-02"), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	positions, err := client.GetPositions(ctx)
	if err != nil {
		log.Fatalf("[POSITIONS] failed: %v", err)
	}
	log.Printf("[POSITIONS] %d open", len(positions))
	for _, p := range positions {
		log.Printf("[POSITIONS]   %s qty=%.4f avg_entry=%.2f", p.Symbol, p.Qty, p.AvgEntryPrice)
	}

	log.Println("=== Broker connectivity check done ===")
}
