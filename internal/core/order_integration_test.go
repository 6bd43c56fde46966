package core_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"backoffice-ledger/internal/core"
	"backoffice-ledger/internal/events"
	"backoffice-ledger/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const testActor = "user_test"

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Integration tests truncate every table, so they only run against a dedicated database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE transactions, invoices, payments, stock_movements, order_items,
			orders, products, customers, document_sequences CASCADE;
	`)
	if err != nil {
		pool.Close()
		t.Fatalf("Failed to clean test database: %v", err)
	}
	return pool
}

type fixture struct {
	customer *core.Customer
	product  *core.Product
}

// seed creates one customer and one product priced at 100 with stock 10.
func seed(t *testing.T, pool *pgxpool.Pool) fixture {
	t.Helper()
	ctx := context.Background()
	ref := core.NewReferenceService(pool)

	c, err := ref.CreateCustomer(ctx, "Acme Retail", "buyer@acme.test")
	if err != nil {
		t.Fatalf("failed to seed customer: %v", err)
	}
	p, err := ref.CreateProduct(ctx, core.ProductInput{
		SKU: "P-100", Name: "Widget", Price: decimal.NewFromInt(100), Cost: decimal.NewFromInt(60),
		InitialStock: 10, MinStock: 2, Actor: testActor,
	})
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return fixture{customer: c, product: p}
}

func productStock(t *testing.T, pool *pgxpool.Pool, id string) int {
	t.Helper()
	var stock int
	if err := pool.QueryRow(context.Background(), "SELECT stock FROM products WHERE id = $1", id).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	return stock
}

func countRows(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

func TestOrderService_CreateOrderDeductsStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	ctx := context.Background()

	rec := &events.Recorder{}
	orders := core.NewOrderService(pool, decimal.RequireFromString("0.18"), nil, nil, rec)

	order, err := orders.CreateOrder(ctx, core.CreateOrderInput{
		CustomerID: fx.customer.ID,
		Items:      []core.ItemInput{{ProductID: fx.product.ID, Quantity: 4}},
		Actor:      testActor,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if !order.TotalAmount.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected total 400, got %s", order.TotalAmount)
	}
	if !order.TaxAmount.Equal(decimal.NewFromInt(72)) {
		t.Errorf("expected tax 72, got %s", order.TaxAmount)
	}
	if order.Status != core.OrderPending {
		t.Errorf("expected PENDING, got %s", order.Status)
	}
	if len(order.Items) != 1 || !order.Items[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected items: %+v", order.Items)
	}
	if order.Customer == nil || order.Customer.ID != fx.customer.ID {
		t.Errorf("expected customer to be loaded")
	}
	if order.Payments == nil {
		t.Errorf("expected payments to be loaded as an empty list")
	}
	stored, err := orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if stored.OrderNumber != order.OrderNumber || len(stored.Items) != len(order.Items) ||
		stored.Items[0].ID != order.Items[0].ID || !stored.TotalAmount.Equal(order.TotalAmount) {
		t.Errorf("returned order differs from stored order: %+v vs %+v", order, stored)
	}
	if got := productStock(t, pool, fx.product.ID); got != 6 {
		t.Errorf("expected stock 6, got %d", got)
	}

	n := countRows(t, pool, `SELECT count(*) FROM stock_movements
		WHERE product_id = $1 AND type = 'OUT' AND quantity = 4 AND order_id = $2 AND reference = $3`,
		fx.product.ID, order.ID, order.OrderNumber)
	if n != 1 {
		t.Errorf("expected one OUT movement for the order, got %d", n)
	}

	keys := rec.Keys()
	if len(keys) == 0 || keys[0] != events.OrderCreated {
		t.Errorf("expected order.created event, got %v", keys)
	}
}

func TestOrderService_InsufficientStockIsAtomic(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	ctx := context.Background()

	ref := core.NewReferenceService(pool)
	scarce, err := ref.CreateProduct(ctx, core.ProductInput{
		SKU: "P-SCARCE", Name: "Scarce", Price: decimal.NewFromInt(10), InitialStock: 3, Actor: testActor,
	})
	if err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	orders := core.NewOrderService(pool, decimal.RequireFromString("0.18"), nil, nil, nil)
	_, err = orders.CreateOrder(ctx, core.CreateOrderInput{
		CustomerID: fx.customer.ID,
		Items: []core.ItemInput{
			{ProductID: fx.product.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 5},
		},
		Actor: testActor,
	})
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 3 || stockErr.Requested != 5 {
		t.Errorf("unexpected error detail: %+v", stockErr)
	}

	if n := countRows(t, pool, "SELECT count(*) FROM orders"); n != 0 {
		t.Errorf("expected no orders, got %d", n)
	}
	if n := countRows(t, pool, "SELECT count(*) FROM stock_movements WHERE type = 'OUT'"); n != 0 {
		t.Errorf("expected no OUT movements, got %d", n)
	}
	if got := productStock(t, pool, fx.product.ID); got != 10 {
		t.Errorf("expected untouched stock 10, got %d", got)
	}
	if got := productStock(t, pool, scarce.ID); got != 3 {
		t.Errorf("expected untouched stock 3, got %d", got)
	}
}

func TestOrderService_MergedQuantitiesAreCheckedTogether(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)

	orders := core.NewOrderService(pool, decimal.Zero, nil, nil, nil)
	_, err := orders.CreateOrder(context.Background(), core.CreateOrderInput{
		CustomerID: fx.customer.ID,
		Items: []core.ItemInput{
			{ProductID: fx.product.ID, Quantity: 6},
			{ProductID: fx.product.ID, Quantity: 6},
		},
		Actor: testActor,
	})
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestOrderService_DeleteRestoresStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	ctx := context.Background()

	orders := core.NewOrderService(pool, decimal.RequireFromString("0.18"), nil, nil, nil)
	order, err := orders.CreateOrder(ctx, core.CreateOrderInput{
		CustomerID: fx.customer.ID,
		Items:      []core.ItemInput{{ProductID: fx.product.ID, Quantity: 4}},
		Actor:      testActor,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if err := orders.DeleteOrder(ctx, order.ID, testActor); err != nil {
		t.Fatalf("DeleteOrder failed: %v", err)
	}
	if got := productStock(t, pool, fx.product.ID); got != 10 {
		t.Errorf("expected stock restored to 10, got %d", got)
	}
	n := countRows(t, pool, "SELECT count(*) FROM stock_movements WHERE type = 'IN' AND reason = 'order deleted'")
	if n != 1 {
		t.Errorf("expected one restoring IN movement, got %d", n)
	}
	if _, err := orders.GetOrder(ctx, order.ID); !core.IsNotFound(err) {
		t.Errorf("expected deleted order to be gone, got %v", err)
	}
	if err := orders.DeleteOrder(ctx, order.ID, testActor); !core.IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestOrderService_ItemsAndTotals(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	ctx := context.Background()

	orders := core.NewOrderService(pool, decimal.RequireFromString("0.18"), nil, nil, nil)
	order, err := orders.CreateOrder(ctx, core.CreateOrderInput{
		CustomerID: fx.customer.ID,
		Items:      []core.ItemInput{{ProductID: fx.product.ID, Quantity: 1}},
		Actor:      testActor,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	order, err = orders.AddOrderItem(ctx, order.ID, core.ItemInput{ProductID: fx.product.ID, Quantity: 2}, testActor)
	if err != nil {
		t.Fatalf("AddOrderItem failed: %v", err)
	}
	if len(order.Items) != 2 || !order.TotalAmount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected 2 items totalling 300, got %d items, total %s", len(order.Items), order.TotalAmount)
	}
	if got := productStock(t, pool, fx.product.ID); got != 7 {
		t.Errorf("expected stock 7, got %d", got)
	}

	discount := decimal.NewFromInt(50)
	order, err = orders.UpdateOrder(ctx, order.ID, core.OrderPatch{Discount: &discount})
	if err != nil {
		t.Fatalf("UpdateOrder failed: %v", err)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(250)) || !order.TaxAmount.Equal(decimal.NewFromInt(54)) {
		t.Errorf("expected total 250 and tax 54, got %s and %s", order.TotalAmount, order.TaxAmount)
	}

	var added string
	for _, it := range order.Items {
		if it.Quantity == 2 {
			added = it.ID
		}
	}
	order, err = orders.RemoveOrderItem(ctx, order.ID, added, testActor)
	if err != nil {
		t.Fatalf("RemoveOrderItem failed: %v", err)
	}
	if len(order.Items) != 1 || !order.TotalAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected 1 item totalling 50, got %d items, total %s", len(order.Items), order.TotalAmount)
	}
	if got := productStock(t, pool, fx.product.ID); got != 9 {
		t.Errorf("expected stock 9 after removal, got %d", got)
	}

	order, err = orders.UpdateOrderStatus(ctx, order.ID, core.OrderShipped)
	if err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}
	if order.Status != core.OrderShipped {
		t.Errorf("expected SHIPPED, got %s", order.Status)
	}

	status := core.OrderShipped
	page, err := orders.ListOrders(ctx, core.OrderFilter{Status: &status})
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if page.Total != 1 || len(page.Orders) != 1 || page.Orders[0].ID != order.ID {
		t.Errorf("unexpected page: total %d, %d orders", page.Total, len(page.Orders))
	}
}

func TestOrderService_NumbersAreSequential(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	ctx := context.Background()

	orders := core.NewOrderService(pool, decimal.Zero, nil, nil, nil)
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		o, err := orders.CreateOrder(ctx, core.CreateOrderInput{
			CustomerID: fx.customer.ID,
			Items:      []core.ItemInput{{ProductID: fx.product.ID, Quantity: 1}},
			Actor:      testActor,
		})
		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		if seen[o.OrderNumber] {
			t.Fatalf("duplicate order number %s", o.OrderNumber)
		}
		seen[o.OrderNumber] = true
	}
}

func TestOrderService_ConcurrentOrdersNeverOversell(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	ctx := context.Background()

	orders := core.NewOrderService(pool, decimal.Zero, nil, nil, nil)
	const workers = 8
	var wg sync.WaitGroup
	type result struct {
		number string
		err    error
	}
	results := make(chan result, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := orders.CreateOrder(ctx, core.CreateOrderInput{
				CustomerID: fx.customer.ID,
				Items:      []core.ItemInput{{ProductID: fx.product.ID, Quantity: 2}},
				Actor:      testActor,
			})
			r := result{err: err}
			if o != nil {
				r.number = o.OrderNumber
			}
			results <- r
		}()
	}
	wg.Wait()
	close(results)

	created, rejected := 0, 0
	numbers := map[string]bool{}
	for r := range results {
		switch {
		case r.err == nil:
			created++
			if numbers[r.number] {
				t.Errorf("duplicate order number %s", r.number)
			}
			numbers[r.number] = true
		case errors.Is(r.err, core.ErrInsufficientStock):
			rejected++
		default:
			t.Errorf("unexpected error: %v", r.err)
		}
	}
	if created != 5 || rejected != 3 {
		t.Errorf("expected 5 orders and 3 rejections, got %d and %d", created, rejected)
	}
	if got := productStock(t, pool, fx.product.ID); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}
	n := countRows(t, pool, "SELECT count(*) FROM stock_movements WHERE product_id = $1 AND type = 'OUT'", fx.product.ID)
	if n != 5 {
		t.Errorf("expected 5 OUT movements, got %d", n)
	}
}

func TestOrderService_ConcurrentCreateAndDeleteDoNotDeadlock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	ctx := context.Background()

	// Created after fx.product, so its id sorts after it.
	later, err := core.NewReferenceService(pool).CreateProduct(ctx, core.ProductInput{
		SKU: "P-200", Name: "Gadget", Price: decimal.NewFromInt(20), InitialStock: 50, Actor: testActor,
	})
	if err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	orders := core.NewOrderService(pool, decimal.Zero, nil, nil, nil)
	const pairs = 4
	var existing []string
	for i := 0; i < pairs; i++ {
		// Items stored in descending product order.
		o, err := orders.CreateOrder(ctx, core.CreateOrderInput{
			CustomerID: fx.customer.ID,
			Items: []core.ItemInput{
				{ProductID: later.ID, Quantity: 1},
				{ProductID: fx.product.ID, Quantity: 1},
			},
			Actor: testActor,
		})
		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		existing = append(existing, o.ID)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2*pairs)
	for _, id := range existing {
		wg.Add(2)
		go func(orderID string) {
			defer wg.Done()
			errCh <- orders.DeleteOrder(ctx, orderID, testActor)
		}(id)
		go func() {
			defer wg.Done()
			_, err := orders.CreateOrder(ctx, core.CreateOrderInput{
				CustomerID: fx.customer.ID,
				Items: []core.ItemInput{
					{ProductID: fx.product.ID, Quantity: 1},
					{ProductID: later.ID, Quantity: 1},
				},
				Actor: testActor,
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Errorf("concurrent create/delete failed: %v", err)
		}
	}
	if got := productStock(t, pool, fx.product.ID); got != 10-pairs {
		t.Errorf("expected stock %d, got %d", 10-pairs, got)
	}
	if got := productStock(t, pool, later.ID); got != 50-pairs {
		t.Errorf("expected stock %d, got %d", 50-pairs, got)
	}
}
