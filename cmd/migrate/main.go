package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/config"
	"github.com/xavierca1/muyu-crm/internal/infra/database"
	"github.com/xavierca1/muyu-crm/internal/infra/logger"
)

// migrate creates or upgrades the schema and backfills last_interaction from
// the interaction history. Safe to run repeatedly.
func main() {
	godotenv.Load()
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := database.Migrate(ctx, db)
	if err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}
	zlog.Info("migration finished", zap.Int64("last_interaction_backfilled", n))
}
