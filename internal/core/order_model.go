package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer order. TotalAmount is the item subtotal minus the
// discount, clamped at zero; TaxAmount is computed on the item subtotal.
type Order struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  string          `json:"customer_id"`
	Status      OrderStatus     `json:"status"`
	Discount    decimal.Decimal `json:"discount"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes,omitempty"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Items       []OrderItem     `json:"items"`
	Customer    *Customer       `json:"customer,omitempty"`
	Payments    []Payment       `json:"payments"`
}

// OrderItem snapshots the product price at the time the line was added.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

type ItemInput struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	CustomerID string
	Items      []ItemInput
	Discount   decimal.Decimal
	Notes      string
	Actor      string
}

// OrderPatch lists the fields UpdateOrder may change. Nil means unchanged.
type OrderPatch struct {
	CustomerID *string
	Notes      *string
	Discount   *decimal.Decimal
	Status     *OrderStatus
}

type OrderFilter struct {
	Status     *OrderStatus
	CustomerID *string
	Page
}

type OrderPage struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

type CreatePaymentInput struct {
	OrderID   string
	Amount    decimal.Decimal
	Method    PaymentMethod
	Reference string
}

// PaymentPatch lists the fields UpdatePayment may change. Actor is recorded on
// any bookkeeping entry the change produces.
type PaymentPatch struct {
	Amount    *decimal.Decimal
	Method    *PaymentMethod
	Reference *string
	Status    *PaymentStatus
	Actor     string
}

type CreateInvoiceInput struct {
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	Discount   decimal.Decimal
	DueDate    *time.Time
	OrderID    *string
	CustomerID *string
	Type       InvoiceType
	Notes      string
}

type InvoicePatch struct {
	Subtotal  *decimal.Decimal
	TaxAmount *decimal.Decimal
	Discount  *decimal.Decimal
	DueDate   *time.Time
	Notes     *string
	Status    *InvoiceStatus
	Actor     string
}

type InvoiceFilter struct {
	Status     *InvoiceStatus
	Type       *InvoiceType
	CustomerID *string
	Page
}

type InvoicePage struct {
	Invoices []Invoice `json:"invoices"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}
