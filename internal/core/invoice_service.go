package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice-ledger/internal/events"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InvoiceService derives invoice totals and manages the invoice lifecycle.
// TotalAmount is never accepted from callers; it is always
// subtotal + tax_amount - discount of the stored row.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error)
	// CreateInvoiceFromOrder seeds an invoice from an order's amounts. An order
	// can be invoiced at most once.
	CreateInvoiceFromOrder(ctx context.Context, orderID string) (*Invoice, error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	ListInvoices(ctx context.Context, f InvoiceFilter) (*InvoicePage, error)
	UpdateInvoice(ctx context.Context, id string, patch InvoicePatch) (*Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id string, status InvoiceStatus, actor string) (*Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
}

type invoiceService struct {
	pool    *pgxpool.Pool
	dueDays int
	ledger  TransactionService
	events  events.Publisher
	now     func() time.Time
}

// NewInvoiceService returns an InvoiceService whose default due date is
// dueDays after creation. Paid-invoice entries are booked through ledger.
func NewInvoiceService(pool *pgxpool.Pool, dueDays int, ledger TransactionService, publisher events.Publisher) InvoiceService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if ledger == nil {
		ledger = NewTransactionService(pool)
	}
	return &invoiceService{pool: pool, dueDays: dueDays, ledger: ledger, events: publisher, now: time.Now}
}

type InvoiceEvent struct {
	InvoiceID      string          `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	OrderID        *string         `json:"order_id,omitempty"`
	Type           InvoiceType     `json:"type"`
	Status         InvoiceStatus   `json:"status"`
	PreviousStatus InvoiceStatus   `json:"previous_status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

func (s *invoiceService) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	if err := validateInvoiceAmounts(in.Subtotal, in.TaxAmount, in.Discount); err != nil {
		return nil, err
	}
	if in.Type != "" && !in.Type.Valid() {
		return nil, invalid("type", "invalid invoice type %q", in.Type)
	}
	if in.OrderID != nil {
		if err := ensureNotInvoiced(ctx, s.pool, *in.OrderID); err != nil {
			return nil, err
		}
	}
	number, err := nextDocumentNumber(ctx, s.pool, seriesInvoice, s.now())
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if in.CustomerID != nil {
		if _, err := getCustomer(ctx, tx, *in.CustomerID); err != nil {
			return nil, err
		}
	}
	if in.OrderID != nil {
		if _, err := lockOrderTx(ctx, tx, *in.OrderID); err != nil {
			return nil, err
		}
		if err := ensureNotInvoiced(ctx, tx, *in.OrderID); err != nil {
			return nil, err
		}
	}

	inv, err := s.insertInvoiceTx(ctx, tx, number, in)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice: %w", err)
	}
	return inv, nil
}

func (s *invoiceService) CreateInvoiceFromOrder(ctx context.Context, orderID string) (*Invoice, error) {
	// Unlocked pre-check so a repeated request does not consume a number.
	if err := ensureNotInvoiced(ctx, s.pool, orderID); err != nil {
		return nil, err
	}
	number, err := nextDocumentNumber(ctx, s.pool, seriesInvoice, s.now())
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := ensureNotInvoiced(ctx, tx, orderID); err != nil {
		return nil, err
	}

	inv, err := s.insertInvoiceTx(ctx, tx, number, CreateInvoiceInput{
		Subtotal:   order.TotalAmount.Add(order.Discount),
		TaxAmount:  order.TaxAmount,
		Discount:   order.Discount,
		OrderID:    &order.ID,
		CustomerID: &order.CustomerID,
		Type:       InvoiceSales,
		Notes:      fmt.Sprintf("Invoice for order %s", order.OrderNumber),
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice: %w", err)
	}
	return inv, nil
}

// ensureNotInvoiced is authoritative only inside a transaction that holds the
// order row lock.
func ensureNotInvoiced(ctx context.Context, q pgxQuerier, orderID string) error {
	var existing string
	err := q.QueryRow(ctx, "SELECT id FROM invoices WHERE order_id = $1", orderID).Scan(&existing)
	if err == nil {
		return &DuplicateInvoiceError{OrderID: orderID, ExistingInvoiceID: existing}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to check invoices for order %s: %w", orderID, err)
	}
	return nil
}

func (s *invoiceService) insertInvoiceTx(ctx context.Context, tx pgx.Tx, number string, in CreateInvoiceInput) (*Invoice, error) {
	subtotal, tax, discount := in.Subtotal.Round(2), in.TaxAmount.Round(2), in.Discount.Round(2)
	if err := validateInvoiceAmounts(subtotal, tax, discount); err != nil {
		return nil, err
	}
	typ := in.Type
	if typ == "" {
		typ = InvoiceSales
	}
	if !typ.Valid() {
		return nil, invalid("type", "invalid invoice type %q", in.Type)
	}

	now := s.now()
	due := now.AddDate(0, 0, s.dueDays)
	if in.DueDate != nil {
		due = *in.DueDate
	}

	inv, err := scanInvoice(tx.QueryRow(ctx, `
		INSERT INTO invoices
			(id, invoice_number, order_id, customer_id, type, status, subtotal, tax_amount, discount, total_amount, due_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+invoiceColumns,
		newID(prefixInvoice), number, in.OrderID, in.CustomerID, string(typ), string(InvoiceDraft),
		subtotal, tax, discount, invoiceTotal(subtotal, tax, discount), due, in.Notes,
	))
	if err != nil {
		value := number
		if in.OrderID != nil {
			value = *in.OrderID
		}
		return nil, fmt.Errorf("failed to insert invoice: %w", mapUniqueViolation(err, value))
	}
	return inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "invoice", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch invoice %s: %w", id, err)
	}
	return inv, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, f InvoiceFilter) (*InvoicePage, error) {
	page, limit, offset := f.normalize()

	var w whereBuilder
	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, invalid("status", "invalid invoice status %q", *f.Status)
		}
		w.add("status = $%d", string(*f.Status))
	}
	if f.Type != nil {
		if !f.Type.Valid() {
			return nil, invalid("type", "invalid invoice type %q", *f.Type)
		}
		w.add("type = $%d", string(*f.Type))
	}
	if f.CustomerID != nil {
		w.add("customer_id = $%d", *f.CustomerID)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	clause, args := w.page(limit, offset)
	rows, err := s.pool.Query(ctx,
		"SELECT "+invoiceColumns+" FROM invoices"+w.sql()+" ORDER BY created_at DESC, id DESC"+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	out := &InvoicePage{Invoices: []Invoice{}, Total: total, Page: page, Limit: limit}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out.Invoices = append(out.Invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}
	return out, nil
}

func (s *invoiceService) UpdateInvoiceStatus(ctx context.Context, id string, status InvoiceStatus, actor string) (*Invoice, error) {
	return s.UpdateInvoice(ctx, id, InvoicePatch{Status: &status, Actor: actor})
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, patch InvoicePatch) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := scanInvoice(tx.QueryRow(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "invoice", ID: id}
		}
		return nil, fmt.Errorf("failed to lock invoice %s: %w", id, err)
	}
	prevStatus, prevTotal := inv.Status, inv.TotalAmount

	changed, err := applyInvoicePatch(inv, patch, s.now())
	if err != nil {
		return nil, err
	}

	updated, err := scanInvoice(tx.QueryRow(ctx, `
		UPDATE invoices
		SET subtotal = $1, tax_amount = $2, discount = $3, total_amount = $4,
		    due_date = $5, notes = $6, status = $7, paid_date = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING `+invoiceColumns,
		inv.Subtotal, inv.TaxAmount, inv.Discount, inv.TotalAmount,
		inv.DueDate, inv.Notes, string(inv.Status), inv.PaidDate, id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice %s: %w", id, err)
	}

	entries := invoiceEntries(prevStatus, prevTotal, *updated)
	if len(entries) > 0 && strings.TrimSpace(patch.Actor) == "" {
		return nil, invalid("actor", "is required")
	}
	for _, e := range entries {
		desc, date := fmt.Sprintf("invoice %s paid", updated.InvoiceNumber), updated.PaidDate
		if prevStatus == InvoicePaid {
			// Corrections are dated when they happen.
			desc, date = fmt.Sprintf("invoice %s adjusted", updated.InvoiceNumber), nil
		}
		if _, err := s.ledger.RecordTx(ctx, tx, TransactionInput{
			Type:        e.Type,
			Category:    e.Category,
			Amount:      e.Amount,
			Description: desc,
			InvoiceID:   &updated.ID,
			OrderID:     updated.OrderID,
			Date:        date,
			Actor:       patch.Actor,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice update: %w", err)
	}

	if changed {
		_ = s.events.Publish(ctx, events.InvoiceStatusChanged, InvoiceEvent{
			InvoiceID: updated.ID, InvoiceNumber: updated.InvoiceNumber, OrderID: updated.OrderID,
			Type: updated.Type, Status: updated.Status, PreviousStatus: prevStatus,
			TotalAmount: updated.TotalAmount,
		})
	}
	return updated, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status InvoiceStatus
	if err := tx.QueryRow(ctx, "SELECT status FROM invoices WHERE id = $1 FOR UPDATE", id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Entity: "invoice", ID: id}
		}
		return fmt.Errorf("failed to lock invoice %s: %w", id, err)
	}
	if status == InvoicePaid {
		return &IllegalDeleteError{Entity: "invoice", ID: id, Reason: "invoice is paid"}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit invoice deletion: %w", err)
	}
	return nil
}
