package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algo-core/internal/api"
	"algo-core/internal/broker"
	"algo-core/internal/events"
	"algo-core/internal/monitor"
	"algo-core/internal/strategy"
	"algo-core/internal/trading"
	"algo-core/pkg/config"
	"algo-core/pkg/db"
	"algo-core/pkg/i18n"
	"algo-core/pkg/ident"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// ==================== Configuration ====================
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}
	i18n.SetLanguage(i18n.Language(cfg.Language))

	log.Println(i18n.Get("Starting"))
	log.Printf(i18n.Get("ConfigLoaded"), cfg.Port)

	// ==================== Database ====================
	log.Printf(i18n.Get("UsingDBPath"), cfg.DBPath)
	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf(i18n.Get("DBInitFailed"), err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf(i18n.Get("DBMigrationsFailed"), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ==================== Strategy seeding ====================
	if cfg.StrategiesFile != "" {
		configs, err := strategy.LoadSeedFile(cfg.StrategiesFile)
		if err != nil {
			log.Fatalf(i18n.Get("StrategySeedFailed"), err)
		}
		added, err := strategy.SeedDatabase(ctx, database, configs)
		if err != nil {
			log.Fatalf(i18n.Get("StrategySeedFailed"), err)
		}
		log.Printf(i18n.Get("StrategiesSeeded"), added, cfg.StrategiesFile)
	}
	if active, err := database.ListActiveStrategies(ctx); err == nil {
		log.Printf(i18n.Get("ActiveStrategies"), len(active))
	}

	// ==================== Broker ====================
	instance := ident.InstanceID()
	log.Printf(i18n.Get("InstanceID"), instance)

	alpaca := broker.New(broker.Config{
		APIKey:     cfg.AlpacaKey,
		APISecret:  cfg.AlpacaSecret,
		Paper:      cfg.AlpacaPaper,
		BaseURL:    cfg.AlpacaBaseURL,
		Feed:       cfg.DataFeed,
		InstanceID: instance,
	})
	if alpaca.Paper() {
		log.Println(i18n.Get("PaperMode"))
	} else {
		log.Println(i18n.Get("LiveMode"))
	}

	probeCtx, probeCancel := context.WithTimeout(ctx, 10*time.Second)
	account, err := alpaca.GetAccount(probeCtx)
	probeCancel()
	if err != nil {
		log.Fatalf(i18n.Get("BrokerInitFailed"), err)
	}
	log.Printf(i18n.Get("BrokerReady"), account.ID, account.BuyingPower)

	// ==================== Events and monitoring ====================
	bus := events.NewBus()

	metrics := monitor.NewSystemMetrics()
	log.Println(i18n.Get("MetricsInit"))

	mon := &monitor.Monitor{Bus: bus, Metrics: metrics, Alerts: monitor.LogSink{}}
	mon.Start(ctx)

	// ==================== Trading service ====================
	svc := trading.NewService(alpaca, trading.NewStoreLedger(database), bus, trading.Config{
		Interval:        time.Duration(cfg.IntervalSeconds) * time.Second,
		PositionSize:    cfg.PositionSize,
		HistoryLookback: cfg.HistoryLookback,
	})
	if cfg.AutoStart {
		if err := svc.Start(); err != nil {
			log.Printf(i18n.Get("TradingAutoStartFailed"), err)
		} else {
			log.Printf(i18n.Get("TradingAutoStart"), cfg.IntervalSeconds, cfg.PositionSize)
		}
	}

	// ==================== API server ====================
	api.SetRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)
	server := api.NewServer(bus, database, svc, alpaca, metrics,
		api.BackupSettings{Dir: cfg.BackupDir, Keep: cfg.BackupKeep},
		api.SystemMeta{
			Paper:      alpaca.Paper(),
			DataFeed:   cfg.DataFeed,
			Version:    appVersion(),
			InstanceID: instance,
		}, cfg.JWTSecret)

	go func() {
		log.Printf(i18n.Get("ServerListening"), cfg.Port)
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf(i18n.Get("APIServerError"), err)
		}
	}()

	// ==================== Shutdown ====================
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println(i18n.Get("ShuttingDown"))

	log.Println(i18n.Get("TradingStopping"))
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.Stop(stopCtx); err != nil {
		log.Printf("trading loop stop: %v", err)
	} else {
		log.Println(i18n.Get("TradingStopped"))
	}
	stopCancel()

	cancel()
	bus.Close()
	if err := database.Close(); err != nil {
		log.Printf("database close: %v", err)
	}
}

// appVersion comes from the build environment; deployments stamp
// APP_VERSION in the container image.
func appVersion() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}
