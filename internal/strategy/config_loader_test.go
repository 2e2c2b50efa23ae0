package strategy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"algo-core/pkg/db"
)

const seedYAML = `
strategies:
  - name: "AAPL golden cross"
    symbol: aapl
    kind: ma_cross
    params:
      short_window: 10
      long_window: 30
    active: true
  - name: "MSFT oversold"
    symbol: MSFT
    kind: rsi
    timeframe: 1Hour
    lookback: 200
    active: false
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategies.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func setupSeedDB(t *testing.T) *db.Database {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return database
}

func TestSeedDatabase(t *testing.T) {
	database := setupSeedDB(t)
	ctx := context.Background()

	configs, err := LoadSeedFile(writeSeedFile(t, seedYAML))
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(configs))
	}

	n, err := SeedDatabase(ctx, database, configs)
	if err != nil {
		t.Fatalf("SeedDatabase: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 seeded, got %d", n)
	}

	apple, err := database.GetStrategyByName(ctx, "AAPL golden cross")
	if err != nil || apple == nil {
		t.Fatalf("seeded strategy missing: %v", err)
	}
	if apple.Symbol != "AAPL" {
		t.Fatalf("symbol not normalized: %q", apple.Symbol)
	}
	if !apple.IsActive {
		t.Fatal("active flag not applied")
	}
	if apple.Timeframe != "1Day" || apple.Lookback != 100 {
		t.Fatalf("defaults not applied: %s/%d", apple.Timeframe, apple.Lookback)
	}

	msft, err := database.GetStrategyByName(ctx, "MSFT oversold")
	if err != nil || msft == nil {
		t.Fatalf("seeded strategy missing: %v", err)
	}
	if msft.IsActive {
		t.Fatal("inactive entry should stay inactive")
	}
	if msft.Timeframe != "1Hour" || msft.Lookback != 200 {
		t.Fatalf("explicit timeframe/lookback lost: %s/%d", msft.Timeframe, msft.Lookback)
	}
}

func TestSeedDatabaseIsIdempotent(t *testing.T) {
	database := setupSeedDB(t)
	ctx := context.Background()

	configs, err := LoadSeedFile(writeSeedFile(t, seedYAML))
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if _, err := SeedDatabase(ctx, database, configs); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	// Re-running with changed params must update in place, not duplicate.
	configs[0].Params = map[string]any{"short_window": 5, "long_window": 15}
	configs[0].Active = false
	if _, err := SeedDatabase(ctx, database, configs); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	all, err := database.ListStrategies(ctx)
	if err != nil {
		t.Fatalf("ListStrategies: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows after reseed, got %d", len(all))
	}

	apple, err := database.GetStrategyByName(ctx, "AAPL golden cross")
	if err != nil || apple == nil {
		t.Fatalf("strategy missing after reseed: %v", err)
	}
	if apple.IsActive {
		t.Fatal("reseed should have deactivated the strategy")
	}
	if apple.Params == "" || apple.Params == `{"long_window":30,"short_window":10}` {
		t.Fatalf("params not refreshed: %s", apple.Params)
	}
}

func TestSeedDatabaseRejectsBadEntries(t *testing.T) {
	database := setupSeedDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  SeedConfig
	}{
		{"unknown kind", SeedConfig{Name: "x", Symbol: "SPY", Kind: "momentum"}},
		{"bad timeframe", SeedConfig{Name: "x", Symbol: "SPY", Kind: KindRSI, Timeframe: "2Week"}},
		{"missing symbol", SeedConfig{Name: "x", Kind: KindRSI}},
		{"invalid params", SeedConfig{Name: "x", Symbol: "SPY", Kind: KindMACross, Params: map[string]any{"short_window": 50, "long_window": 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SeedDatabase(ctx, database, []SeedConfig{tt.cfg}); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
