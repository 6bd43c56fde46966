package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// pgxReader is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxReader interface {
	pgxQuerier
	pgxRowQuerier
}

// ── Products ──────────────────────────────────────────────────────────────────

const productColumns = `id, sku, name, price, cost, stock, min_stock, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Cost, &p.Stock, &p.MinStock,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func getProduct(ctx context.Context, q pgxQuerier, id string) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}
	return p, nil
}

// lockProductTx reads a product and holds its row lock until tx ends.
func lockProductTx(ctx context.Context, tx pgx.Tx, id string) (*Product, error) {
	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
		return nil, fmt.Errorf("failed to lock product %s: %w", id, err)
	}
	return p, nil
}

// ── Customers ─────────────────────────────────────────────────────────────────

func getCustomer(ctx context.Context, q pgxQuerier, id string) (*Customer, error) {
	var c Customer
	err := q.QueryRow(ctx, `
		SELECT id, name, email, is_active, created_at
		FROM customers WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "customer", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch customer %s: %w", id, err)
	}
	return &c, nil
}

// requireActiveCustomer treats an inactive customer the same as a missing one.
func requireActiveCustomer(ctx context.Context, q pgxQuerier, id string) (*Customer, error) {
	c, err := getCustomer(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, &NotFoundError{Entity: "customer", ID: id}
	}
	return c, nil
}

// ── Movements ─────────────────────────────────────────────────────────────────

const movementColumns = `id, product_id, type, quantity, previous_stock, new_stock, reason, reference, order_id, created_by, created_at`

func scanMovement(row pgx.Row) (*StockMovement, error) {
	var m StockMovement
	if err := row.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.PreviousStock, &m.NewStock,
		&m.Reason, &m.Reference, &m.OrderID, &m.CreatedBy, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

const orderColumns = `id, order_number, customer_id, status, discount, tax_amount, total_amount, notes, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.Discount, &o.TaxAmount,
		&o.TotalAmount, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func lockOrderTx(ctx context.Context, tx pgx.Tx, id string) (*Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "order", ID: id}
		}
		return nil, fmt.Errorf("failed to lock order %s: %w", id, err)
	}
	return o, nil
}

func fetchOrderItems(ctx context.Context, q pgxRowQuerier, orderID string) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price, total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.Total); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ── Payments ──────────────────────────────────────────────────────────────────

const paymentColumns = `id, order_id, amount, method, status, reference, payment_date, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.Reference,
		&p.PaymentDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func fetchOrderPayments(ctx context.Context, q pgxRowQuerier, orderID string) ([]Payment, error) {
	rows, err := q.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// ── Invoices ──────────────────────────────────────────────────────────────────

const invoiceColumns = `id, invoice_number, order_id, customer_id, type, status, subtotal, tax_amount, discount, total_amount, due_date, paid_date, notes, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	if err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.CustomerID, &inv.Type, &inv.Status,
		&inv.Subtotal, &inv.TaxAmount, &inv.Discount, &inv.TotalAmount, &inv.DueDate, &inv.PaidDate,
		&inv.Notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ── Transactions ──────────────────────────────────────────────────────────────

const transactionColumns = `id, type, category, amount, description, invoice_id, order_id, payment_id, transaction_date, created_by, created_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	if err := row.Scan(&t.ID, &t.Type, &t.Category, &t.Amount, &t.Description, &t.InvoiceID,
		&t.OrderID, &t.PaymentID, &t.TransactionDate, &t.CreatedBy, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// whereBuilder collects positional SQL conditions for list filters.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	out := " WHERE " + w.conds[0]
	for _, c := range w.conds[1:] {
		out += " AND " + c
	}
	return out
}

// page appends LIMIT/OFFSET placeholders and returns the clause with its args.
func (w *whereBuilder) page(limit, offset int) (string, []any) {
	args := append(append([]any{}, w.args...), limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}
