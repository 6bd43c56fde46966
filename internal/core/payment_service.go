package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backoffice-ledger/internal/events"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PaymentService records payments against orders. The order row is locked for
// every mutation so that the completed-payment sum can never exceed the order
// total, no matter how requests interleave.
type PaymentService interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
	ListOrderPayments(ctx context.Context, orderID string) ([]Payment, error)
	UpdatePayment(ctx context.Context, id string, patch PaymentPatch) (*Payment, error)
	UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus, actor string) (*Payment, error)
	DeletePayment(ctx context.Context, id string) error
	GetOrderPaymentSummary(ctx context.Context, orderID string) (*PaymentSummary, error)
}

type paymentService struct {
	pool   *pgxpool.Pool
	ledger TransactionService
	events events.Publisher
}

func NewPaymentService(pool *pgxpool.Pool, ledger TransactionService, publisher events.Publisher) PaymentService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if ledger == nil {
		ledger = NewTransactionService(pool)
	}
	return &paymentService{pool: pool, ledger: ledger, events: publisher}
}

type PaymentEvent struct {
	PaymentID      string          `json:"payment_id"`
	OrderID        string          `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         PaymentStatus   `json:"status"`
	PreviousStatus PaymentStatus   `json:"previous_status,omitempty"`
}

func (s *paymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*Payment, error) {
	if in.OrderID == "" {
		return nil, invalid("order_id", "is required")
	}
	if err := validatePaymentAmount(in.Amount); err != nil {
		return nil, err
	}
	if !in.Method.Valid() {
		return nil, invalid("method", "invalid payment method %q", in.Method)
	}
	amount := in.Amount.Round(2)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrderTx(ctx, tx, in.OrderID)
	if err != nil {
		return nil, err
	}
	payments, err := fetchOrderPayments(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	if err := checkPaymentBound(order.ID, order.TotalAmount, completedTotal(payments, ""), amount); err != nil {
		return nil, err
	}

	p, err := scanPayment(tx.QueryRow(ctx, `
		INSERT INTO payments (id, order_id, amount, method, status, reference, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING `+paymentColumns,
		newID(prefixPayment), order.ID, amount, string(in.Method), string(PaymentPending), in.Reference,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	_ = s.events.Publish(ctx, events.PaymentCreated, PaymentEvent{
		PaymentID: p.ID, OrderID: p.OrderID, Amount: p.Amount, Status: p.Status,
	})
	return p, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*Payment, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "payment", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch payment %s: %w", id, err)
	}
	return p, nil
}

func (s *paymentService) ListOrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check order %s: %w", orderID, err)
	}
	if !exists {
		return nil, &NotFoundError{Entity: "order", ID: orderID}
	}
	return fetchOrderPayments(ctx, s.pool, orderID)
}

func (s *paymentService) UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus, actor string) (*Payment, error) {
	return s.UpdatePayment(ctx, id, PaymentPatch{Status: &status, Actor: actor})
}

// UpdatePayment applies patch under the order lock. Whenever the resulting
// payment is COMPLETED the overpayment bound is checked again, excluding the
// payment's own previous amount. Status changes into or out of COMPLETED
// write the matching bookkeeping entries in the same transaction.
func (s *paymentService) UpdatePayment(ctx context.Context, id string, patch PaymentPatch) (*Payment, error) {
	if patch.Amount != nil {
		if err := validatePaymentAmount(*patch.Amount); err != nil {
			return nil, err
		}
	}
	if patch.Method != nil && !patch.Method.Valid() {
		return nil, invalid("method", "invalid payment method %q", *patch.Method)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, invalid("status", "invalid payment status %q", *patch.Status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock order before payment, the same order CreatePayment uses.
	var orderID string
	if err := tx.QueryRow(ctx, "SELECT order_id FROM payments WHERE id = $1", id).Scan(&orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "payment", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch payment %s: %w", id, err)
	}
	order, err := lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	prev, err := scanPayment(tx.QueryRow(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "payment", ID: id}
		}
		return nil, fmt.Errorf("failed to lock payment %s: %w", id, err)
	}

	next := *prev
	if patch.Amount != nil {
		next.Amount = patch.Amount.Round(2)
	}
	if patch.Method != nil {
		next.Method = *patch.Method
	}
	if patch.Reference != nil {
		next.Reference = *patch.Reference
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}

	if next.Status == PaymentCompleted {
		payments, err := fetchOrderPayments(ctx, tx, order.ID)
		if err != nil {
			return nil, err
		}
		if err := checkPaymentBound(order.ID, order.TotalAmount, completedTotal(payments, prev.ID), next.Amount); err != nil {
			return nil, err
		}
	}

	entries := paymentEntries(prev.Status, prev.Amount, next.Status, next.Amount)
	if len(entries) > 0 && strings.TrimSpace(patch.Actor) == "" {
		return nil, invalid("actor", "is required")
	}

	updated, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments
		SET amount = $1, method = $2, reference = $3, status = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING `+paymentColumns,
		next.Amount, string(next.Method), next.Reference, string(next.Status), id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update payment %s: %w", id, err)
	}

	for _, e := range entries {
		if _, err := s.ledger.RecordTx(ctx, tx, TransactionInput{
			Type:        e.Type,
			Category:    e.Category,
			Amount:      e.Amount,
			Description: fmt.Sprintf("payment %s for order %s", updated.ID, order.OrderNumber),
			OrderID:     &order.ID,
			PaymentID:   &updated.ID,
			Actor:       patch.Actor,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment update: %w", err)
	}

	if updated.Status != prev.Status {
		_ = s.events.Publish(ctx, events.PaymentStatusChanged, PaymentEvent{
			PaymentID: updated.ID, OrderID: updated.OrderID, Amount: updated.Amount,
			Status: updated.Status, PreviousStatus: prev.Status,
		})
	}
	return updated, nil
}

func (s *paymentService) DeletePayment(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status PaymentStatus
	if err := tx.QueryRow(ctx, "SELECT status FROM payments WHERE id = $1 FOR UPDATE", id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Entity: "payment", ID: id}
		}
		return fmt.Errorf("failed to lock payment %s: %w", id, err)
	}
	if status == PaymentCompleted {
		return &IllegalDeleteError{Entity: "payment", ID: id, Reason: "payment is completed"}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM payments WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete payment %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit payment deletion: %w", err)
	}
	return nil
}

func (s *paymentService) GetOrderPaymentSummary(ctx context.Context, orderID string) (*PaymentSummary, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total decimal.Decimal
	if err := tx.QueryRow(ctx, "SELECT total_amount FROM orders WHERE id = $1", orderID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}
	payments, err := fetchOrderPayments(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	summary := summarizePayments(orderID, total, payments)
	return &summary, nil
}
