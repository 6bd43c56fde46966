package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "backoffice-ledger/internal/adapters/web"
	"backoffice-ledger/internal/app"
	"backoffice-ledger/internal/config"
	"backoffice-ledger/internal/core"
	"backoffice-ledger/internal/db"
	"backoffice-ledger/internal/events"
	"backoffice-ledger/internal/logging"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required to start the server")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	var publisher events.Publisher = events.Nop{}
	if cfg.EventsEnabled() {
		mq, err := events.NewRabbitMQ(events.RabbitMQConfig{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
		}, logger)
		if err != nil {
			logger.Fatalf("events: %v", err)
		}
		defer mq.Close()
		publisher = mq
	} else {
		logger.Warn("AMQP_URL is not set; domain events are disabled")
	}
	publisher = events.NewLogged(publisher, logger)

	stock := core.NewStockService(pool, publisher)
	ledger := core.NewTransactionService(pool)
	svc := app.NewAppService(app.Services{
		Reference:    core.NewReferenceService(pool),
		Stock:        stock,
		Orders:       core.NewOrderService(pool, cfg.TaxRate, stock, ledger, publisher),
		Payments:     core.NewPaymentService(pool, ledger, publisher),
		Invoices:     core.NewInvoiceService(pool, cfg.DefaultDueDays, ledger, publisher),
		Transactions: ledger,
	})

	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
		return
	}

	logger.Info("server stopped")
}
