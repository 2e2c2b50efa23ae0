package main

import (
	"context"
	"log"
	"time"

	"algo-core/pkg/config"
	"algo-core/pkg/db"
)

// backup/main.go
//
// Takes an online snapshot of the trading database and prunes old ones.
// Meant to run from cron next to the service; VACUUM INTO works while
// the service holds the database open.
//
// Usage:
//
//	go run ./scripts/backup
//
// Environment (same as the main service):
//
//	DB_PATH      (default ./data/trading.db)
//	BACKUP_DIR   (default ./data/backups)
//	BACKUP_KEEP  (default 10)

func main() {
	log.Println("=== Database backup starting ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	path, err := database.Backup(ctx, cfg.BackupDir)
	if err != nil {
		log.Fatalf("backup failed: %v", err)
	}
	log.Printf("backup written: %s", path)

	removed, err := db.PruneBackups(cfg.BackupDir, cfg.BackupKeep)
	if err != nil {
		log.Fatalf("prune failed: %v", err)
	}
	log.Printf("pruned %d old backups (keeping %d)", removed, cfg.BackupKeep)

	log.Println("=== Database backup done ===")
}
