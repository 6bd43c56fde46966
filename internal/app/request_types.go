package app

import (
	"github.com/shopspring/decimal"
)

// Dates travel as YYYY-MM-DD strings and are parsed in UTC.
const dateLayout = "2006-01-02"

// CreateCustomerRequest is the input for registering a customer.
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

// CreateProductRequest is the input for adding a product to the catalogue.
// InitialStock is booked as an opening IN movement.
type CreateProductRequest struct {
	SKU          string          `json:"sku" validate:"required,max=64"`
	Name         string          `json:"name" validate:"required,max=200"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	InitialStock int             `json:"initial_stock" validate:"gte=0"`
	MinStock     int             `json:"min_stock" validate:"gte=0"`
}

// MovementRequest is a manual stock movement.
type MovementRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Reason    string `json:"reason" validate:"required,max=500"`
	Reference string `json:"reference" validate:"max=200"`
}

type MovementQuery struct {
	ProductID string
	Page      int `validate:"gte=0"`
	Limit     int `validate:"gte=0"`
}

// OrderItemRequest is a single line within an order.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// CreateOrderRequest is the input for creating an order. Stock for every line
// is deducted atomically.
type CreateOrderRequest struct {
	CustomerID string             `json:"customer_id" validate:"required"`
	Items      []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount   decimal.Decimal    `json:"discount"`
	Notes      string             `json:"notes" validate:"max=2000"`
}

// UpdateOrderRequest patches an order. Nil fields are left unchanged.
type UpdateOrderRequest struct {
	CustomerID *string          `json:"customer_id" validate:"omitempty,min=1"`
	Notes      *string          `json:"notes" validate:"omitempty,max=2000"`
	Discount   *decimal.Decimal `json:"discount"`
	Status     *string          `json:"status"`
}

type OrderQuery struct {
	Status     string
	CustomerID string
	Page       int `validate:"gte=0"`
	Limit      int `validate:"gte=0"`
}

type CreatePaymentRequest struct {
	OrderID   string          `json:"order_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required"`
	Reference string          `json:"reference" validate:"max=200"`
}

// UpdatePaymentRequest patches a payment. Nil fields are left unchanged.
type UpdatePaymentRequest struct {
	Amount    *decimal.Decimal `json:"amount"`
	Method    *string          `json:"method"`
	Reference *string          `json:"reference" validate:"omitempty,max=200"`
	Status    *string          `json:"status"`
}

// CreateInvoiceRequest creates a standalone invoice, or one tied to an order
// when OrderID is set.
type CreateInvoiceRequest struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	Discount   decimal.Decimal `json:"discount"`
	DueDate    string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Type       string          `json:"type"`
	Notes      string          `json:"notes" validate:"max=2000"`
}

// UpdateInvoiceRequest patches an invoice. Nil fields are left unchanged.
type UpdateInvoiceRequest struct {
	Subtotal  *decimal.Decimal `json:"subtotal"`
	TaxAmount *decimal.Decimal `json:"tax_amount"`
	Discount  *decimal.Decimal `json:"discount"`
	DueDate   *string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     *string          `json:"notes" validate:"omitempty,max=2000"`
	Status    *string          `json:"status"`
}

type InvoiceQuery struct {
	Status     string
	Type       string
	CustomerID string
	Page       int `validate:"gte=0"`
	Limit      int `validate:"gte=0"`
}

// TransactionRequest records a manual bookkeeping entry.
type TransactionRequest struct {
	Type        string          `json:"type" validate:"required"`
	Category    string          `json:"category" validate:"required,max=100"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=2000"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	InvoiceID   string          `json:"invoice_id"`
	OrderID     string          `json:"order_id"`
}

type TransactionQuery struct {
	Type     string
	Category string
	From     string `validate:"omitempty,datetime=2006-01-02"`
	To       string `validate:"omitempty,datetime=2006-01-02"`
	Page     int    `validate:"gte=0"`
	Limit    int    `validate:"gte=0"`
}

// SummaryQuery bounds a summary by inclusive dates. Empty bounds are open.
type SummaryQuery struct {
	From string `validate:"omitempty,datetime=2006-01-02"`
	To   string `validate:"omitempty,datetime=2006-01-02"`
}
