package main

import (
	"context"
	"time"

	"backoffice-ledger/internal/config"
	"backoffice-ledger/internal/db"
	"backoffice-ledger/internal/logging"
	"backoffice-ledger/migrations"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, "text")
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("[CONNECT] %v", err)
	}
	defer pool.Close()
	logger.Info("[CONNECT] success")

	result, err := migrations.Apply(ctx, pool)
	if err != nil {
		logger.Fatalf("[ERROR] %v", err)
	}

	for _, f := range result.Skipped {
		logger.Infof("[SKIP] %s", f)
	}
	for _, f := range result.Applied {
		logger.Infof("[APPLY] %s", f)
	}
	logger.WithFields(logrus.Fields{
		"applied": len(result.Applied),
		"skipped": len(result.Skipped),
	}).Info("[DONE] All migrations processed.")
}
