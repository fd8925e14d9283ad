package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hr-attendance-api/pkg/config"
	"github.com/noah-isme/hr-attendance-api/pkg/database"
	"github.com/noah-isme/hr-attendance-api/pkg/logger"
)

// migrate applies the embedded auth schema migrations. Pass -status to list them instead.
func main() {
	status := flag.Bool("status", false, "print migration status and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect auth database", zap.Error(err))
	}
	defer db.Close()

	if *status {
		if err := database.MigrationStatus(ctx, db.DB); err != nil {
			logr.Fatal("migration status failed", zap.Error(err))
		}
		return
	}

	if err := database.Migrate(ctx, db.DB); err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}
	logr.Info("migrations applied", zap.String("database", cfg.Database.Name))
}
