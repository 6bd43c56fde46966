package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"backoffice-ledger/internal/adapters/cli"
	"backoffice-ledger/internal/adapters/repl"
	webAdapter "backoffice-ledger/internal/adapters/web"
	"backoffice-ledger/internal/app"
	"backoffice-ledger/internal/config"
	"backoffice-ledger/internal/core"
	"backoffice-ledger/internal/db"
	"backoffice-ledger/internal/events"
	"backoffice-ledger/internal/logging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// token only needs the signing secret, so it runs without a database.
	if len(os.Args) > 1 && os.Args[1] == "token" {
		_ = godotenv.Load()
		if err := issueToken(os.Args[2:]); err != nil {
			logrus.Fatal(err)
		}
		return
	}

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
		logger.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	var publisher events.Publisher = events.Nop{}
	if cfg.EventsEnabled() {
		mq, err := events.NewRabbitMQ(events.RabbitMQConfig{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange}, logger)
		if err != nil {
			logger.Fatalf("events: %v", err)
		}
		defer mq.Close()
		publisher = mq
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

	if len(os.Args) < 2 {
		operator := os.Getenv("APP_OPERATOR")
		if operator == "" {
			operator = "console"
		}
		repl.NewSession(svc, bufio.NewReader(os.Stdin), os.Stdout, operator).Run(ctx)
		return
	}

	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		pool.Close()
		logger.Fatal(err)
	}
}

func issueToken(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: app token <user_id> [role] [ttl]")
	}
	role := "staff"
	if len(args) > 1 {
		role = args[1]
	}
	ttl := 24 * time.Hour
	if len(args) > 2 {
		d, err := time.ParseDuration(args[2])
		if err != nil {
			return fmt.Errorf("invalid ttl %q: %w", args[2], err)
		}
		ttl = d
	}
	token, err := webAdapter.IssueToken(os.Getenv("JWT_SECRET"), args[0], role, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
