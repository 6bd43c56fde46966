package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReferenceService manages the customers and products the ledger refers to.
type ReferenceService interface {
	CreateCustomer(ctx context.Context, name, email string) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	// CreateProduct books a positive initial stock as an "opening stock" IN movement.
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

type referenceService struct {
	pool *pgxpool.Pool
}

func NewReferenceService(pool *pgxpool.Pool) ReferenceService {
	return &referenceService{pool: pool}
}

func (s *referenceService) CreateCustomer(ctx context.Context, name, email string) (*Customer, error) {
	name, email = strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if email == "" {
		return nil, invalid("email", "is required")
	}

	var c Customer
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, name, email)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, is_active, created_at
	`, newID(prefixCustomer), name, email).Scan(&c.ID, &c.Name, &c.Email, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", mapUniqueViolation(err, email))
	}
	return &c, nil
}

func (s *referenceService) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	return getCustomer(ctx, s.pool, id)
}

func (s *referenceService) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	sku, name := strings.TrimSpace(in.SKU), strings.TrimSpace(in.Name)
	switch {
	case sku == "":
		return nil, invalid("sku", "is required")
	case name == "":
		return nil, invalid("name", "is required")
	case in.Price.IsNegative():
		return nil, invalid("price", "must not be negative")
	case in.Cost.IsNegative():
		return nil, invalid("cost", "must not be negative")
	case in.InitialStock < 0:
		return nil, invalid("initial_stock", "must not be negative")
	case in.MinStock < 0:
		return nil, invalid("min_stock", "must not be negative")
	case in.InitialStock > 0 && strings.TrimSpace(in.Actor) == "":
		return nil, invalid("actor", "is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `
		INSERT INTO products (id, sku, name, price, cost, stock, min_stock)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING `+productColumns,
		newID(prefixProduct), sku, name, in.Price.Round(2), in.Cost.Round(2), in.MinStock,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", mapUniqueViolation(err, sku))
	}

	if in.InitialStock > 0 {
		_, after, err := applyMovementTx(ctx, tx, MovementInput{
			ProductID: p.ID,
			Type:      MovementIn,
			Quantity:  in.InitialStock,
			Reason:    "opening stock",
			Actor:     in.Actor,
		})
		if err != nil {
			return nil, err
		}
		p = after
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit product: %w", err)
	}
	return p, nil
}

func (s *referenceService) GetProduct(ctx context.Context, id string) (*Product, error) {
	return getProduct(ctx, s.pool, id)
}

func (s *referenceService) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY sku")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
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
