package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"algo-core/internal/market"
	"algo-core/pkg/db"
)

// SeedConfig is one strategy entry in the YAML seed file.
type SeedConfig struct {
	Name      string         `yaml:"name"`
	Symbol    string         `yaml:"symbol"`
	Kind      string         `yaml:"kind"`
	Timeframe string         `yaml:"timeframe"`
	Lookback  int            `yaml:"lookback"`
	Params    map[string]any `yaml:"params"`
	Active    bool           `yaml:"active"`
}

type seedFile struct {
	Strategies []SeedConfig `yaml:"strategies"`
}

// LoadSeedFile reads strategy definitions from a YAML file.
func LoadSeedFile(path string) ([]SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Strategies, nil
}

// SeedDatabase upserts seed entries into the strategies table, keyed by
// name so re-running the seed refreshes parameters without duplicating
// rows. Every entry is validated before anything is written.
func SeedDatabase(ctx context.Context, database *db.Database, configs []SeedConfig) (int, error) {
	rows := make([]db.Strategy, 0, len(configs))
	for _, cfg := range configs {
		row, err := seedRow(cfg)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	for _, row := range rows {
		existing, err := database.GetStrategyByName(ctx, row.Name)
		if err != nil {
			return 0, fmt.Errorf("look up strategy %q: %w", row.Name, err)
		}
		if existing == nil {
			if err := database.CreateStrategy(ctx, row); err != nil {
				return 0, fmt.Errorf("create strategy %q: %w", row.Name, err)
			}
			continue
		}
		row.ID = existing.ID
		if err := database.UpdateStrategy(ctx, row); err != nil {
			return 0, fmt.Errorf("update strategy %q: %w", row.Name, err)
		}
		if err := database.SetStrategyActive(ctx, row.ID, row.IsActive); err != nil {
			return 0, fmt.Errorf("activate strategy %q: %w", row.Name, err)
		}
	}
	return len(rows), nil
}

func seedRow(cfg SeedConfig) (db.Strategy, error) {
	name := strings.TrimSpace(cfg.Name)
	symbol := strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if name == "" || symbol == "" {
		return db.Strategy{}, fmt.Errorf("seed entry needs name and symbol, got %q/%q", cfg.Name, cfg.Symbol)
	}

	timeframe := cfg.Timeframe
	if timeframe == "" {
		timeframe = market.Timeframe1Day
	}
	if !market.ValidTimeframe(timeframe) {
		return db.Strategy{}, fmt.Errorf("seed entry %q: invalid timeframe %q", name, timeframe)
	}

	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 100
	}

	params := ""
	if len(cfg.Params) > 0 {
		raw, err := json.Marshal(cfg.Params)
		if err != nil {
			return db.Strategy{}, fmt.Errorf("seed entry %q: encode params: %w", name, err)
		}
		params = string(raw)
	}
	if err := ValidateParams(cfg.Kind, params); err != nil {
		return db.Strategy{}, fmt.Errorf("seed entry %q: %w", name, err)
	}

	return db.Strategy{
		ID:        uuid.NewString(),
		Name:      name,
		Symbol:    symbol,
		Kind:      cfg.Kind,
		Params:    params,
		Timeframe: timeframe,
		Lookback:  lookback,
		IsActive:  cfg.Active,
	}, nil
}
