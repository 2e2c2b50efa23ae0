package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the trading service.
type Config struct {
	Port string

	// Alpaca
	AlpacaKey     string
	AlpacaSecret  string
	AlpacaPaper   bool
	AlpacaBaseURL string // optional override; derived from AlpacaPaper when empty
	DataFeed      string // "iex" (default) or "sip"

	// Trading loop
	PositionSize    float64 // fraction of buying power committed per buy
	IntervalSeconds int     // seconds between cycles
	HistoryLookback int     // bars fetched per strategy evaluation
	AutoStart       bool    // start the loop at boot

	// Strategy seeding
	StrategiesFile string

	// Database
	DBPath string

	// Backups
	BackupDir  string
	BackupKeep int

	// API
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int

	// Localization
	Language string // "en" or "zh"
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	// Database path: prefer DB_PATH, then DATABASE_PATH for backward compatibility.
	dbPath := getEnv("DB_PATH", "")
	if dbPath == "" {
		dbPath = getEnv("DATABASE_PATH", "./data/trading.db")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		AlpacaKey:       os.Getenv("APCA_API_KEY_ID"),
		AlpacaSecret:    os.Getenv("APCA_API_SECRET_KEY"),
		AlpacaPaper:     getEnv("ALPACA_PAPER", "true") == "true",
		AlpacaBaseURL:   os.Getenv("ALPACA_BASE_URL"),
		DataFeed:        getEnv("ALPACA_DATA_FEED", "iex"),
		PositionSize:    getEnvFloat("POSITION_SIZE", 0.1),
		IntervalSeconds: getEnvInt("TRADING_INTERVAL_SECONDS", 60),
		HistoryLookback: getEnvInt("HISTORY_LOOKBACK", 100),
		AutoStart:       getEnv("TRADING_AUTO_START", "false") == "true",
		StrategiesFile:  getEnv("STRATEGIES_FILE", ""),
		DBPath:          dbPath,
		BackupDir:       getEnv("BACKUP_DIR", "./data/backups"),
		BackupKeep:      getEnvInt("BACKUP_KEEP", 10),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 50),
		Language:        getEnv("LANGUAGE", "en"),
	}

	if cfg.AlpacaKey == "" || cfg.AlpacaSecret == "" {
		return nil, fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY must be set")
	}
	if cfg.PositionSize <= 0 || cfg.PositionSize > 1 {
		return nil, fmt.Errorf("POSITION_SIZE must be in (0, 1], got %v", cfg.PositionSize)
	}
	if cfg.IntervalSeconds < 1 {
		return nil, fmt.Errorf("TRADING_INTERVAL_SECONDS must be >= 1, got %d", cfg.IntervalSeconds)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
