package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TransactionService is the bookkeeping ledger. Entries are written as side
// effects of payments and invoices, or entered manually, and are read only
// for reporting.
type TransactionService interface {
	// RecordTx writes an entry inside the caller's transaction.
	RecordTx(ctx context.Context, tx pgx.Tx, in TransactionInput) (*Transaction, error)
	Record(ctx context.Context, in TransactionInput) (*Transaction, error)
	List(ctx context.Context, f TransactionFilter) (*TransactionPage, error)
	// Summary aggregates entries with from <= transaction_date < to. Nil bounds are open.
	Summary(ctx context.Context, from, to *time.Time) (*TransactionSummary, error)
}

type TransactionInput struct {
	Type        TransactionType
	Category    string
	Amount      decimal.Decimal
	Description string
	InvoiceID   *string
	OrderID     *string
	PaymentID   *string
	// Date defaults to now.
	Date  *time.Time
	Actor string
}

type TransactionFilter struct {
	Type     *TransactionType
	Category *string
	From     *time.Time
	To       *time.Time
	Page
}

type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
}

type transactionService struct {
	pool *pgxpool.Pool
}

func NewTransactionService(pool *pgxpool.Pool) TransactionService {
	return &transactionService{pool: pool}
}

func validateTransaction(in TransactionInput) error {
	if !in.Type.Valid() {
		return invalid("type", "invalid transaction type %q", in.Type)
	}
	if strings.TrimSpace(in.Category) == "" {
		return invalid("category", "is required")
	}
	if !in.Amount.IsPositive() {
		return invalid("amount", "must be positive")
	}
	if strings.TrimSpace(in.Actor) == "" {
		return invalid("actor", "is required")
	}
	return nil
}

func (s *transactionService) RecordTx(ctx context.Context, tx pgx.Tx, in TransactionInput) (*Transaction, error) {
	return recordTransactionTx(ctx, tx, in)
}

func (s *transactionService) Record(ctx context.Context, in TransactionInput) (*Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := recordTransactionTx(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return t, nil
}

func recordTransactionTx(ctx context.Context, tx pgx.Tx, in TransactionInput) (*Transaction, error) {
	if err := validateTransaction(in); err != nil {
		return nil, err
	}
	date := time.Now()
	if in.Date != nil {
		date = *in.Date
	}

	t, err := scanTransaction(tx.QueryRow(ctx, `
		INSERT INTO transactions
			(id, type, category, amount, description, invoice_id, order_id, payment_id, transaction_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+transactionColumns,
		newID(prefixTransaction), string(in.Type), in.Category, in.Amount.Round(2), in.Description,
		in.InvoiceID, in.OrderID, in.PaymentID, date, in.Actor,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return t, nil
}

func transactionWhere(typ *TransactionType, category *string, from, to *time.Time) whereBuilder {
	var w whereBuilder
	if typ != nil {
		w.add("type = $%d", string(*typ))
	}
	if category != nil {
		w.add("category = $%d", *category)
	}
	if from != nil {
		w.add("transaction_date >= $%d", *from)
	}
	if to != nil {
		w.add("transaction_date < $%d", *to)
	}
	return w
}

func (s *transactionService) List(ctx context.Context, f TransactionFilter) (*TransactionPage, error) {
	if f.Type != nil && !f.Type.Valid() {
		return nil, invalid("type", "invalid transaction type %q", *f.Type)
	}
	page, limit, offset := f.normalize()
	w := transactionWhere(f.Type, f.Category, f.From, f.To)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	clause, args := w.page(limit, offset)
	rows, err := s.pool.Query(ctx,
		"SELECT "+transactionColumns+" FROM transactions"+w.sql()+" ORDER BY transaction_date DESC, id DESC"+clause,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	out := &TransactionPage{Transactions: []Transaction{}, Total: total, Page: page, Limit: limit}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out.Transactions = append(out.Transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return out, nil
}

func (s *transactionService) Summary(ctx context.Context, from, to *time.Time) (*TransactionSummary, error) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, invalid("to", "must be after from")
	}
	w := transactionWhere(nil, nil, from, to)

	rows, err := s.pool.Query(ctx, "SELECT "+transactionColumns+" FROM transactions"+w.sql(), w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	summary := summarizeTransactions(txns, from, to)
	return &summary, nil
}
