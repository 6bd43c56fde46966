package app

import (
	"context"
	"io"
	"time"

	"backoffice-ledger/internal/core"
)

type appService struct {
	reference    core.ReferenceService
	stock        core.StockService
	orders       core.OrderService
	payments     core.PaymentService
	invoices     core.InvoiceService
	transactions core.TransactionService
}

// Services bundles the core services an appService delegates to.
type Services struct {
	Reference    core.ReferenceService
	Stock        core.StockService
	Orders       core.OrderService
	Payments     core.PaymentService
	Invoices     core.InvoiceService
	Transactions core.TransactionService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(s Services) ApplicationService {
	return &appService{
		reference:    s.Reference,
		stock:        s.Stock,
		orders:       s.Orders,
		payments:     s.Payments,
		invoices:     s.Invoices,
		transactions: s.Transactions,
	}
}

// ── Reference data ────────────────────────────────────────────────────────────

func (s *appService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.reference.CreateCustomer(ctx, req.Name, req.Email)
}

func (s *appService) GetCustomer(ctx context.Context, id string) (*core.Customer, error) {
	return s.reference.GetCustomer(ctx, id)
}

func (s *appService) CreateProduct(ctx context.Context, req CreateProductRequest, actor string) (*core.Product, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.reference.CreateProduct(ctx, core.ProductInput{
		SKU:          req.SKU,
		Name:         req.Name,
		Price:        req.Price,
		Cost:         req.Cost,
		InitialStock: req.InitialStock,
		MinStock:     req.MinStock,
		Actor:        actor,
	})
}

func (s *appService) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	return s.reference.GetProduct(ctx, id)
}

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.reference.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

// ── Stock ledger ──────────────────────────────────────────────────────────────

func (s *appService) RecordMovement(ctx context.Context, req MovementRequest, actor string) (*core.StockMovement, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	typ, err := core.ParseMovementType(req.Type)
	if err != nil {
		return nil, err
	}
	return s.stock.ApplyMovement(ctx, core.MovementInput{
		ProductID: req.ProductID,
		Type:      typ,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Reference: req.Reference,
		Actor:     actor,
	})
}

func (s *appService) ListMovements(ctx context.Context, q MovementQuery) (*core.MovementPage, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	return s.stock.ListMovements(ctx, core.MovementFilter{
		ProductID: optional(q.ProductID),
		Page:      core.Page{Page: q.Page, Limit: q.Limit},
	})
}

func (s *appService) LowStock(ctx context.Context) (*LowStockResult, error) {
	products, err := s.stock.LowStockProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &LowStockResult{Products: products, Count: len(products)}, nil
}

func (s *appService) VerifyStock(ctx context.Context, productID string) (*core.StockAudit, error) {
	return s.stock.VerifyStock(ctx, productID)
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) CreateOrder(ctx context.Context, req CreateOrderRequest, actor string) (*core.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	items := make([]core.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = core.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return s.orders.CreateOrder(ctx, core.CreateOrderInput{
		CustomerID: req.CustomerID,
		Items:      items,
		Discount:   req.Discount,
		Notes:      req.Notes,
		Actor:      actor,
	})
}

func (s *appService) GetOrder(ctx context.Context, id string) (*core.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

func (s *appService) ListOrders(ctx context.Context, q OrderQuery) (*core.OrderPage, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	f := core.OrderFilter{
		CustomerID: optional(q.CustomerID),
		Page:       core.Page{Page: q.Page, Limit: q.Limit},
	}
	if q.Status != "" {
		st, err := core.ParseOrderStatus(q.Status)
		if err != nil {
			return nil, err
		}
		f.Status = &st
	}
	return s.orders.ListOrders(ctx, f)
}

func (s *appService) UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest) (*core.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	patch := core.OrderPatch{CustomerID: req.CustomerID, Notes: req.Notes, Discount: req.Discount}
	if req.Status != nil {
		st, err := core.ParseOrderStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		patch.Status = &st
	}
	return s.orders.UpdateOrder(ctx, id, patch)
}

func (s *appService) UpdateOrderStatus(ctx context.Context, id, status string) (*core.Order, error) {
	st, err := core.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.orders.UpdateOrderStatus(ctx, id, st)
}

func (s *appService) AddOrderItem(ctx context.Context, orderID string, req OrderItemRequest, actor string) (*core.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.orders.AddOrderItem(ctx, orderID, core.ItemInput{ProductID: req.ProductID, Quantity: req.Quantity}, actor)
}

func (s *appService) RemoveOrderItem(ctx context.Context, orderID, itemID, actor string) (*core.Order, error) {
	return s.orders.RemoveOrderItem(ctx, orderID, itemID, actor)
}

func (s *appService) DeleteOrder(ctx context.Context, id, actor string) error {
	return s.orders.DeleteOrder(ctx, id, actor)
}

// ── Payments ──────────────────────────────────────────────────────────────────

func (s *appService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*core.Payment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	method, err := core.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, err
	}
	return s.payments.CreatePayment(ctx, core.CreatePaymentInput{
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		Method:    method,
		Reference: req.Reference,
	})
}

func (s *appService) GetPayment(ctx context.Context, id string) (*core.Payment, error) {
	return s.payments.GetPayment(ctx, id)
}

func (s *appService) ListOrderPayments(ctx context.Context, orderID string) (*PaymentListResult, error) {
	payments, err := s.payments.ListOrderPayments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &PaymentListResult{OrderID: orderID, Payments: payments}, nil
}

func (s *appService) UpdatePayment(ctx context.Context, id string, req UpdatePaymentRequest, actor string) (*core.Payment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	patch := core.PaymentPatch{Amount: req.Amount, Reference: req.Reference, Actor: actor}
	if req.Method != nil {
		m, err := core.ParsePaymentMethod(*req.Method)
		if err != nil {
			return nil, err
		}
		patch.Method = &m
	}
	if req.Status != nil {
		st, err := core.ParsePaymentStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		patch.Status = &st
	}
	return s.payments.UpdatePayment(ctx, id, patch)
}

func (s *appService) UpdatePaymentStatus(ctx context.Context, id, status, actor string) (*core.Payment, error) {
	st, err := core.ParsePaymentStatus(status)
	if err != nil {
		return nil, err
	}
	return s.payments.UpdatePaymentStatus(ctx, id, st, actor)
}

func (s *appService) DeletePayment(ctx context.Context, id string) error {
	return s.payments.DeletePayment(ctx, id)
}

func (s *appService) GetPaymentSummary(ctx context.Context, orderID string) (*core.PaymentSummary, error) {
	return s.payments.GetOrderPaymentSummary(ctx, orderID)
}

// ── Invoices ──────────────────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	in := core.CreateInvoiceInput{
		Subtotal:   req.Subtotal,
		TaxAmount:  req.TaxAmount,
		Discount:   req.Discount,
		OrderID:    optional(req.OrderID),
		CustomerID: optional(req.CustomerID),
		Notes:      req.Notes,
	}
	if req.Type != "" {
		typ, err := core.ParseInvoiceType(req.Type)
		if err != nil {
			return nil, err
		}
		in.Type = typ
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}
	in.DueDate = due
	return s.invoices.CreateInvoice(ctx, in)
}

func (s *appService) CreateInvoiceFromOrder(ctx context.Context, orderID string) (*core.Invoice, error) {
	return s.invoices.CreateInvoiceFromOrder(ctx, orderID)
}

func (s *appService) GetInvoice(ctx context.Context, id string) (*core.Invoice, error) {
	return s.invoices.GetInvoice(ctx, id)
}

func (s *appService) ListInvoices(ctx context.Context, q InvoiceQuery) (*core.InvoicePage, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	f := core.InvoiceFilter{
		CustomerID: optional(q.CustomerID),
		Page:       core.Page{Page: q.Page, Limit: q.Limit},
	}
	if q.Status != "" {
		st, err := core.ParseInvoiceStatus(q.Status)
		if err != nil {
			return nil, err
		}
		f.Status = &st
	}
	if q.Type != "" {
		typ, err := core.ParseInvoiceType(q.Type)
		if err != nil {
			return nil, err
		}
		f.Type = &typ
	}
	return s.invoices.ListInvoices(ctx, f)
}

func (s *appService) UpdateInvoice(ctx context.Context, id string, req UpdateInvoiceRequest, actor string) (*core.Invoice, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	patch := core.InvoicePatch{
		Subtotal:  req.Subtotal,
		TaxAmount: req.TaxAmount,
		Discount:  req.Discount,
		Notes:     req.Notes,
		Actor:     actor,
	}
	if req.DueDate != nil {
		due, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			return nil, err
		}
		patch.DueDate = due
	}
	if req.Status != nil {
		st, err := core.ParseInvoiceStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		patch.Status = &st
	}
	return s.invoices.UpdateInvoice(ctx, id, patch)
}

func (s *appService) UpdateInvoiceStatus(ctx context.Context, id, status, actor string) (*core.Invoice, error) {
	st, err := core.ParseInvoiceStatus(status)
	if err != nil {
		return nil, err
	}
	return s.invoices.UpdateInvoiceStatus(ctx, id, st, actor)
}

func (s *appService) DeleteInvoice(ctx context.Context, id string) error {
	return s.invoices.DeleteInvoice(ctx, id)
}

// ── Transactions ──────────────────────────────────────────────────────────────

func (s *appService) RecordTransaction(ctx context.Context, req TransactionRequest, actor string) (*core.Transaction, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	return s.transactions.Record(ctx, core.TransactionInput{
		Type:        typ,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		InvoiceID:   optional(req.InvoiceID),
		OrderID:     optional(req.OrderID),
		Date:        date,
		Actor:       actor,
	})
}

func (s *appService) ListTransactions(ctx context.Context, q TransactionQuery) (*core.TransactionPage, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	from, to, err := dateRange(q.From, q.To)
	if err != nil {
		return nil, err
	}
	f := core.TransactionFilter{
		Category: optional(q.Category),
		From:     from,
		To:       to,
		Page:     core.Page{Page: q.Page, Limit: q.Limit},
	}
	if q.Type != "" {
		typ, err := core.ParseTransactionType(q.Type)
		if err != nil {
			return nil, err
		}
		f.Type = &typ
	}
	return s.transactions.List(ctx, f)
}

func (s *appService) TransactionSummary(ctx context.Context, q SummaryQuery) (*core.TransactionSummary, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	from, to, err := dateRange(q.From, q.To)
	if err != nil {
		return nil, err
	}
	return s.transactions.Summary(ctx, from, to)
}

func (s *appService) ExportTransactionSummary(ctx context.Context, q SummaryQuery, w io.Writer) error {
	summary, err := s.TransactionSummary(ctx, q)
	if err != nil {
		return err
	}
	return core.ExportSummaryXLSX(summary, w)
}

// dateRange parses inclusive YYYY-MM-DD bounds into the half-open range
// [from, to+1day) the core services expect.
func dateRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	from, err := parseDate("from", fromRaw)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseDate("to", toRaw)
	if err != nil {
		return nil, nil, err
	}
	if to != nil {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	return from, to, nil
}
