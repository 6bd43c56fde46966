// seed loads a small set of demo customers and products so a fresh database
// can be exercised from the console or the API. Rows that already exist
// (same email or SKU) are left untouched, so it is safe to run repeatedly.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"errors"

	"backoffice-ledger/internal/app"
	"backoffice-ledger/internal/config"
	"backoffice-ledger/internal/core"
	"backoffice-ledger/internal/db"
	"backoffice-ledger/internal/logging"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const seedActor = "seed"

var customers = []app.CreateCustomerRequest{
	{Name: "Acme Retail", Email: "orders@acme-retail.example"},
	{Name: "Northwind Traders", Email: "purchasing@northwind.example"},
	{Name: "Walk-in Customer", Email: "walkin@backoffice.example"},
}

var products = []app.CreateProductRequest{
	{SKU: "WID-100", Name: "Widget", Price: decimal.RequireFromString("100.00"), Cost: decimal.RequireFromString("62.50"), InitialStock: 40, MinStock: 5},
	{SKU: "GAD-200", Name: "Gadget", Price: decimal.RequireFromString("249.90"), Cost: decimal.RequireFromString("180.00"), InitialStock: 12, MinStock: 3},
	{SKU: "CAB-010", Name: "USB-C Cable 1m", Price: decimal.RequireFromString("9.99"), Cost: decimal.RequireFromString("2.10"), InitialStock: 250, MinStock: 50},
	{SKU: "SRV-001", Name: "Installation Service", Price: decimal.RequireFromString("75.00"), Cost: decimal.Zero, InitialStock: 0, MinStock: 0},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, "text")
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	svc := app.NewAppService(app.Services{Reference: core.NewReferenceService(pool)})

	logger.Info("Seeding customers...")
	for _, c := range customers {
		created, err := svc.CreateCustomer(ctx, c)
		if errors.Is(err, core.ErrConflict) {
			logger.WithField("email", c.Email).Info("[SKIP] customer exists")
			continue
		}
		if err != nil {
			logger.Fatalf("Failed to create customer %s: %v", c.Email, err)
		}
		logger.WithFields(logrus.Fields{"id": created.ID, "email": c.Email}).Info("[ADD] customer")
	}

	logger.Info("Seeding products...")
	for _, p := range products {
		created, err := svc.CreateProduct(ctx, p, seedActor)
		if errors.Is(err, core.ErrConflict) {
			logger.WithField("sku", p.SKU).Info("[SKIP] product exists")
			continue
		}
		if err != nil {
			logger.Fatalf("Failed to create product %s: %v", p.SKU, err)
		}
		logger.WithFields(logrus.Fields{"id": created.ID, "sku": p.SKU, "stock": created.Stock}).Info("[ADD] product")
	}

	logger.Info("Seed data loaded.")
}
