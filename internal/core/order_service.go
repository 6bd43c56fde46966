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

const (
	reasonOrderFulfillment = "order fulfillment"
	reasonOrderDeleted     = "order deleted"
	reasonItemRemoved      = "order item removed"
)

// OrderService manages orders together with the stock they consume. Every
// operation that changes stock or totals runs as one database transaction.
type OrderService interface {
	// CreateOrder validates the customer and stock, then inserts the order, its
	// items and one OUT movement per item atomically.
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error)
	// DeleteOrder restores stock with one IN movement per item and deletes the order.
	DeleteOrder(ctx context.Context, id, actor string) error
	// UpdateOrder changes header fields only; items and stock are untouched.
	UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) (*Order, error)
	AddOrderItem(ctx context.Context, orderID string, item ItemInput, actor string) (*Order, error)
	RemoveOrderItem(ctx context.Context, orderID, itemID, actor string) (*Order, error)

	// Queries
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, f OrderFilter) (*OrderPage, error)
}

type orderService struct {
	pool    *pgxpool.Pool
	taxRate decimal.Decimal
	stock   StockService
	ledger  TransactionService
	events  events.Publisher
	now     func() time.Time
}

// NewOrderService moves stock through stock and books payment reversals
// through ledger, both inside the order's own transaction. Nil collaborators
// are built over the same pool.
func NewOrderService(pool *pgxpool.Pool, taxRate decimal.Decimal, stock StockService, ledger TransactionService, publisher events.Publisher) OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if stock == nil {
		stock = NewStockService(pool, publisher)
	}
	if ledger == nil {
		ledger = NewTransactionService(pool)
	}
	return &orderService{pool: pool, taxRate: taxRate, stock: stock, ledger: ledger, events: publisher, now: time.Now}
}

// OrderEvent is the payload of every order.* event.
type OrderEvent struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  string          `json:"customer_id"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Actor       string          `json:"actor,omitempty"`
}

func orderEvent(o *Order, actor string) OrderEvent {
	return OrderEvent{
		OrderID: o.ID, OrderNumber: o.OrderNumber, CustomerID: o.CustomerID,
		Status: o.Status, TotalAmount: o.TotalAmount, Actor: actor,
	}
}

// ── Order lifecycle ───────────────────────────────────────────────────────────

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}
	discount := in.Discount.Round(2)

	// The number is taken in its own statement so the sequence row is not
	// held for the lifetime of the order transaction.
	number, err := nextDocumentNumber(ctx, s.pool, seriesOrder, s.now())
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := requireActiveCustomer(ctx, tx, in.CustomerID); err != nil {
		return nil, err
	}

	// Lock every product once, in id order, and check the summed demand
	// before anything is written.
	demand, ids := mergeItems(in.Items)
	products := make(map[string]*Product, len(ids))
	for _, id := range ids {
		p, err := lockProductTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if !p.IsActive {
			return nil, invalid("items", "product %s is not active", p.SKU)
		}
		if p.Stock < demand[id] {
			return nil, &InsufficientStockError{
				ProductID: p.ID, SKU: p.SKU, Available: p.Stock, Requested: demand[id],
			}
		}
		products[id] = p
	}

	items := make([]OrderItem, len(in.Items))
	lineTotals := make([]decimal.Decimal, len(in.Items))
	for i, it := range in.Items {
		price := products[it.ProductID].Price
		items[i] = OrderItem{
			ID:        newID(prefixOrderItem),
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     price,
			Total:     lineTotal(price, it.Quantity),
		}
		lineTotals[i] = items[i].Total
	}
	_, tax, total := orderTotals(lineTotals, discount, s.taxRate)

	orderID := newID(prefixOrder)
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, customer_id, status, discount, tax_amount, total_amount, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, orderID, number, in.CustomerID, string(OrderPending), discount, tax, total, in.Notes, in.Actor)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", mapUniqueViolation(err, number))
	}

	after := make(map[string]*Product, len(ids))
	for i, it := range items {
		if err := insertOrderItemTx(ctx, tx, orderID, it); err != nil {
			return nil, fmt.Errorf("failed to insert order item %d: %w", i+1, err)
		}
		_, p, err := s.stock.ApplyMovementTx(ctx, tx, MovementInput{
			ProductID: it.ProductID,
			Type:      MovementOut,
			Quantity:  it.Quantity,
			Reason:    reasonOrderFulfillment,
			Reference: number,
			OrderID:   &orderID,
			Actor:     in.Actor,
		})
		if err != nil {
			return nil, err
		}
		after[p.ID] = p
	}

	order, err := loadOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	_ = s.events.Publish(ctx, events.OrderCreated, orderEvent(order, in.Actor))
	notifyLowStock(ctx, s.events, productList(after)...)
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, id, actor string) error {
	if strings.TrimSpace(actor) == "" {
		return invalid("actor", "is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrderTx(ctx, tx, id)
	if err != nil {
		return err
	}
	items, err := fetchOrderItems(ctx, tx, id)
	if err != nil {
		return err
	}
	payments, err := fetchOrderPayments(ctx, tx, id)
	if err != nil {
		return err
	}

	// Same product lock order as CreateOrder.
	sortItemsByProduct(items)
	for _, it := range items {
		if _, _, err := s.stock.ApplyMovementTx(ctx, tx, MovementInput{
			ProductID: it.ProductID,
			Type:      MovementIn,
			Quantity:  it.Quantity,
			Reason:    reasonOrderDeleted,
			Reference: order.OrderNumber,
			Actor:     actor,
		}); err != nil {
			return err
		}
	}

	// Income booked for completed payments is reversed here; the payment
	// rows themselves cascade with the order.
	for _, e := range orderDeletionEntries(payments) {
		if _, err := s.ledger.RecordTx(ctx, tx, TransactionInput{
			Type:        e.Type,
			Category:    e.Category,
			Amount:      e.Amount,
			Description: fmt.Sprintf("payment %s reversed, order %s deleted", e.PaymentID, order.OrderNumber),
			Actor:       actor,
		}); err != nil {
			return err
		}
	}

	// order_items and payments cascade.
	if _, err := tx.Exec(ctx, "DELETE FROM orders WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order deletion: %w", err)
	}

	_ = s.events.Publish(ctx, events.OrderDeleted, orderEvent(order, actor))
	return nil
}

func (s *orderService) UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*Order, error) {
	if patch.Discount != nil && patch.Discount.IsNegative() {
		return nil, invalid("discount", "must not be negative")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, invalid("status", "invalid order status %q", *patch.Status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrderTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	prevStatus := order.Status

	if patch.CustomerID != nil && *patch.CustomerID != order.CustomerID {
		if _, err := requireActiveCustomer(ctx, tx, *patch.CustomerID); err != nil {
			return nil, err
		}
		order.CustomerID = *patch.CustomerID
	}
	if patch.Notes != nil {
		order.Notes = *patch.Notes
	}
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.Discount != nil {
		order.Discount = patch.Discount.Round(2)
		if err := s.recomputeTotalsTx(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET customer_id = $1, notes = $2, status = $3, discount = $4, tax_amount = $5, total_amount = $6, updated_at = NOW()
		WHERE id = $7
	`, order.CustomerID, order.Notes, string(order.Status), order.Discount, order.TaxAmount, order.TotalAmount, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}

	updated, err := loadOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order update: %w", err)
	}

	if updated.Status != prevStatus {
		_ = s.events.Publish(ctx, events.OrderStatusChanged, orderEvent(updated, ""))
	}
	return updated, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) (*Order, error) {
	return s.UpdateOrder(ctx, id, OrderPatch{Status: &status})
}

func (s *orderService) AddOrderItem(ctx context.Context, orderID string, item ItemInput, actor string) (*Order, error) {
	if err := validateItem(0, item); err != nil {
		return nil, err
	}
	if strings.TrimSpace(actor) == "" {
		return nil, invalid("actor", "is required")
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
	p, err := lockProductTx(ctx, tx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, invalid("product_id", "product %s is not active", p.SKU)
	}

	_, after, err := s.stock.ApplyMovementTx(ctx, tx, MovementInput{
		ProductID: p.ID,
		Type:      MovementOut,
		Quantity:  item.Quantity,
		Reason:    reasonOrderFulfillment,
		Reference: order.OrderNumber,
		OrderID:   &order.ID,
		Actor:     actor,
	})
	if err != nil {
		return nil, err
	}

	if err := insertOrderItemTx(ctx, tx, orderID, OrderItem{
		ID:        newID(prefixOrderItem),
		ProductID: p.ID,
		Quantity:  item.Quantity,
		Price:     p.Price,
		Total:     lineTotal(p.Price, item.Quantity),
	}); err != nil {
		return nil, fmt.Errorf("failed to insert order item: %w", err)
	}

	if err := s.saveTotalsTx(ctx, tx, order); err != nil {
		return nil, err
	}

	updated, err := loadOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order item: %w", err)
	}

	notifyLowStock(ctx, s.events, after)
	return updated, nil
}

func (s *orderService) RemoveOrderItem(ctx context.Context, orderID, itemID, actor string) (*Order, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, invalid("actor", "is required")
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

	var it OrderItem
	err = tx.QueryRow(ctx, `
		SELECT id, order_id, product_id, quantity, price, total
		FROM order_items
		WHERE id = $1 AND order_id = $2
	`, itemID, orderID).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "order item", ID: itemID}
		}
		return nil, fmt.Errorf("failed to fetch order item %s: %w", itemID, err)
	}

	if _, _, err := s.stock.ApplyMovementTx(ctx, tx, MovementInput{
		ProductID: it.ProductID,
		Type:      MovementIn,
		Quantity:  it.Quantity,
		Reason:    reasonItemRemoved,
		Reference: order.OrderNumber,
		OrderID:   &order.ID,
		Actor:     actor,
	}); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM order_items WHERE id = $1", itemID); err != nil {
		return nil, fmt.Errorf("failed to delete order item %s: %w", itemID, err)
	}

	if err := s.saveTotalsTx(ctx, tx, order); err != nil {
		return nil, err
	}

	updated, err := loadOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order item removal: %w", err)
	}
	return updated, nil
}

// recomputeTotalsTx re-derives tax and total from the order's current items.
// The new total may not fall below what has already been collected.
func (s *orderService) recomputeTotalsTx(ctx context.Context, tx pgx.Tx, order *Order) error {
	items, err := fetchOrderItems(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	_, tax, total := orderTotals(itemTotals(items), order.Discount, s.taxRate)

	payments, err := fetchOrderPayments(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	if paid := completedTotal(payments, ""); paid.GreaterThan(total) {
		return invalid("total_amount", "order total %s would fall below completed payments %s",
			total.StringFixed(2), paid.StringFixed(2))
	}

	order.TaxAmount, order.TotalAmount = tax, total
	return nil
}

func (s *orderService) saveTotalsTx(ctx context.Context, tx pgx.Tx, order *Order) error {
	if err := s.recomputeTotalsTx(ctx, tx, order); err != nil {
		return err
	}
	_, err := tx.Exec(ctx,
		"UPDATE orders SET tax_amount = $1, total_amount = $2, updated_at = NOW() WHERE id = $3",
		order.TaxAmount, order.TotalAmount, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order totals: %w", err)
	}
	return nil
}

func insertOrderItemTx(ctx context.Context, tx pgx.Tx, orderID string, it OrderItem) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantity, price, total)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, it.ID, orderID, it.ProductID, it.Quantity, it.Price, it.Total)
	return err
}

func productList(m map[string]*Product) []*Product {
	out := make([]*Product, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, id string) (*Order, error) {
	return loadOrder(ctx, s.pool, id)
}

// loadOrder reads an order with its items, payments and customer through q,
// which may be the pool or an open transaction.
func loadOrder(ctx context.Context, q pgxReader, id string) (*Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "order", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch order %s: %w", id, err)
	}

	if order.Items, err = fetchOrderItems(ctx, q, id); err != nil {
		return nil, err
	}
	if order.Payments, err = fetchOrderPayments(ctx, q, id); err != nil {
		return nil, err
	}
	if order.Customer, err = getCustomer(ctx, q, order.CustomerID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, f OrderFilter) (*OrderPage, error) {
	page, limit, offset := f.normalize()

	var w whereBuilder
	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, invalid("status", "invalid order status %q", *f.Status)
		}
		w.add("status = $%d", string(*f.Status))
	}
	if f.CustomerID != nil {
		w.add("customer_id = $%d", *f.CustomerID)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	clause, args := w.page(limit, offset)
	rows, err := s.pool.Query(ctx,
		"SELECT "+orderColumns+" FROM orders"+w.sql()+" ORDER BY created_at DESC, id DESC"+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	out := &OrderPage{Orders: []Order{}, Total: total, Page: page, Limit: limit}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out.Orders = append(out.Orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	rows.Close()

	for i := range out.Orders {
		if out.Orders[i].Items, err = fetchOrderItems(ctx, s.pool, out.Orders[i].ID); err != nil {
			return nil, err
		}
		if out.Orders[i].Payments, err = fetchOrderPayments(ctx, s.pool, out.Orders[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}
