package app

import (
	"context"
	"io"

	"backoffice-ledger/internal/core"
)

// ApplicationService is the single interface the HTTP and CLI adapters call.
// It decouples presentation from business logic: request structs are validated
// here, then handed to the core services. Implementations contain no display
// or transport logic.
//
// actor is the authenticated user id. Operations that write stock movements or
// bookkeeping entries require it.
type ApplicationService interface {
	// ── Reference data ──

	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error)
	GetCustomer(ctx context.Context, id string) (*core.Customer, error)
	CreateProduct(ctx context.Context, req CreateProductRequest, actor string) (*core.Product, error)
	GetProduct(ctx context.Context, id string) (*core.Product, error)
	ListProducts(ctx context.Context) (*ProductListResult, error)

	// ── Stock ledger ──

	// RecordMovement applies a manual IN, OUT or ADJUSTMENT movement.
	RecordMovement(ctx context.Context, req MovementRequest, actor string) (*core.StockMovement, error)
	ListMovements(ctx context.Context, q MovementQuery) (*core.MovementPage, error)
	LowStock(ctx context.Context) (*LowStockResult, error)
	// VerifyStock replays a product's movement log and compares it with the stored stock.
	VerifyStock(ctx context.Context, productID string) (*core.StockAudit, error)

	// ── Orders ──

	CreateOrder(ctx context.Context, req CreateOrderRequest, actor string) (*core.Order, error)
	GetOrder(ctx context.Context, id string) (*core.Order, error)
	ListOrders(ctx context.Context, q OrderQuery) (*core.OrderPage, error)
	UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest) (*core.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (*core.Order, error)
	AddOrderItem(ctx context.Context, orderID string, req OrderItemRequest, actor string) (*core.Order, error)
	RemoveOrderItem(ctx context.Context, orderID, itemID, actor string) (*core.Order, error)
	// DeleteOrder returns every line's stock before removing the order.
	DeleteOrder(ctx context.Context, id, actor string) error

	// ── Payments ──

	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*core.Payment, error)
	GetPayment(ctx context.Context, id string) (*core.Payment, error)
	ListOrderPayments(ctx context.Context, orderID string) (*PaymentListResult, error)
	UpdatePayment(ctx context.Context, id string, req UpdatePaymentRequest, actor string) (*core.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id, status, actor string) (*core.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	GetPaymentSummary(ctx context.Context, orderID string) (*core.PaymentSummary, error)

	// ── Invoices ──

	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error)
	CreateInvoiceFromOrder(ctx context.Context, orderID string) (*core.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*core.Invoice, error)
	ListInvoices(ctx context.Context, q InvoiceQuery) (*core.InvoicePage, error)
	UpdateInvoice(ctx context.Context, id string, req UpdateInvoiceRequest, actor string) (*core.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id, status, actor string) (*core.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error

	// ── Transactions ──

	RecordTransaction(ctx context.Context, req TransactionRequest, actor string) (*core.Transaction, error)
	ListTransactions(ctx context.Context, q TransactionQuery) (*core.TransactionPage, error)
	TransactionSummary(ctx context.Context, q SummaryQuery) (*core.TransactionSummary, error)
	// ExportTransactionSummary writes the summary for q as an .xlsx workbook to w.
	ExportTransactionSummary(ctx context.Context, q SummaryQuery, w io.Writer) error
}
