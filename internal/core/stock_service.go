package core

import (
	"context"
	"fmt"

	"backoffice-ledger/internal/events"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockService owns product stock levels and the append-only movement log.
// Every stock change writes the product row and one movement row atomically.
type StockService interface {
	// ApplyMovement books one IN, OUT or ADJUSTMENT movement in its own transaction.
	ApplyMovement(ctx context.Context, in MovementInput) (*StockMovement, error)
	// ApplyMovementTx books a movement inside the caller's transaction and
	// returns the product as it stands afterwards. The product row is locked
	// FOR UPDATE until the caller commits or rolls back; callers publish
	// stock.low themselves once committed.
	ApplyMovementTx(ctx context.Context, tx pgx.Tx, in MovementInput) (*StockMovement, *Product, error)
	ListMovements(ctx context.Context, f MovementFilter) (*MovementPage, error)
	LowStockProducts(ctx context.Context) ([]Product, error)
	// VerifyStock replays a product's movement log and compares it with the stored stock.
	VerifyStock(ctx context.Context, productID string) (*StockAudit, error)
}

type stockService struct {
	pool   *pgxpool.Pool
	events events.Publisher
}

func NewStockService(pool *pgxpool.Pool, publisher events.Publisher) StockService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &stockService{pool: pool, events: publisher}
}

// StockLowEvent is published when a movement leaves a product at or below its minimum.
type StockLowEvent struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"min_stock"`
}

func (s *stockService) ApplyMovement(ctx context.Context, in MovementInput) (*StockMovement, error) {
	if err := validateMovement(in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	m, p, err := applyMovementTx(ctx, tx, in)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	notifyLowStock(ctx, s.events, p)
	return m, nil
}

func (s *stockService) ApplyMovementTx(ctx context.Context, tx pgx.Tx, in MovementInput) (*StockMovement, *Product, error) {
	if err := validateMovement(in); err != nil {
		return nil, nil, err
	}
	return applyMovementTx(ctx, tx, in)
}

// applyMovementTx locks the product, applies the movement rule and writes both
// rows. It returns the movement and the product as it stands after the change.
func applyMovementTx(ctx context.Context, tx pgx.Tx, in MovementInput) (*StockMovement, *Product, error) {
	p, err := lockProductTx(ctx, tx, in.ProductID)
	if err != nil {
		return nil, nil, err
	}

	newStock, ok := nextStock(p.Stock, in.Type, in.Quantity)
	if !ok {
		return nil, nil, &InsufficientStockError{
			ProductID: p.ID, SKU: p.SKU, Available: p.Stock, Requested: in.Quantity,
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2",
		newStock, p.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to update stock for product %s: %w", p.SKU, err)
	}

	m, err := scanMovement(tx.QueryRow(ctx, `
		INSERT INTO stock_movements
			(id, product_id, type, quantity, previous_stock, new_stock, reason, reference, order_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+movementColumns,
		newID(prefixMovement), p.ID, string(in.Type), in.Quantity, p.Stock, newStock,
		in.Reason, in.Reference, in.OrderID, in.Actor,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert stock movement: %w", err)
	}

	p.Stock = newStock
	return m, p, nil
}

// notifyLowStock publishes stock.low for products at or below their minimum.
// Call only after the owning transaction has committed.
func notifyLowStock(ctx context.Context, pub events.Publisher, products ...*Product) {
	for _, p := range products {
		if p == nil || !p.IsActive || p.Stock > p.MinStock {
			continue
		}
		_ = pub.Publish(ctx, events.StockLow, StockLowEvent{
			ProductID: p.ID, SKU: p.SKU, Stock: p.Stock, MinStock: p.MinStock,
		})
	}
}

func (s *stockService) ListMovements(ctx context.Context, f MovementFilter) (*MovementPage, error) {
	page, limit, offset := f.normalize()

	var w whereBuilder
	if f.ProductID != nil {
		w.add("product_id = $%d", *f.ProductID)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stock_movements"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count stock movements: %w", err)
	}

	clause, args := w.page(limit, offset)
	rows, err := s.pool.Query(ctx,
		"SELECT "+movementColumns+" FROM stock_movements"+w.sql()+" ORDER BY created_at DESC, id DESC"+clause,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	out := &MovementPage{Movements: []StockMovement{}, Total: total, Page: page, Limit: limit}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		out.Movements = append(out.Movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stock movements: %w", err)
	}
	return out, nil
}

func (s *stockService) LowStockProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = true AND stock <= min_stock
		ORDER BY stock, sku
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *stockService) VerifyStock(ctx context.Context, productID string) (*StockAudit, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := getProduct(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		"SELECT "+movementColumns+" FROM stock_movements WHERE product_id = $1 ORDER BY created_at, id",
		productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var log []StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		log = append(log, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stock movements: %w", err)
	}

	replayed := replayStock(log)
	return &StockAudit{
		ProductID:     p.ID,
		RecordedStock: p.Stock,
		ReplayedStock: replayed,
		Movements:     len(log),
		Consistent:    replayed == p.Stock,
	}, nil
}
