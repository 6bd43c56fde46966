package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCheck        PaymentMethod = "CHECK"
	MethodOther        PaymentMethod = "OTHER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodBankTransfer, MethodCheck, MethodOther:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceCancelled:
		return true
	}
	return false
}

type InvoiceType string

const (
	InvoiceSales    InvoiceType = "SALES"
	InvoicePurchase InvoiceType = "PURCHASE"
	InvoiceExpense  InvoiceType = "EXPENSE"
)

func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceSales, InvoicePurchase, InvoiceExpense:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Customer is reference data owned outside the ledger core. The core only
// needs to know that a customer exists and is active.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Payment is one payment recorded against an order.
type Payment struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	Status      PaymentStatus   `json:"status"`
	Reference   string          `json:"reference,omitempty"`
	PaymentDate time.Time       `json:"payment_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PaymentSummary is the read-side projection of an order's payments.
type PaymentSummary struct {
	OrderID           string          `json:"order_id"`
	OrderTotal        decimal.Decimal `json:"order_total"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
	PendingPayments   int             `json:"pending_payments"`
	CompletedPayments int             `json:"completed_payments"`
	IsFullyPaid       bool            `json:"is_fully_paid"`
}

// Invoice totals are always derived: TotalAmount = Subtotal + TaxAmount - Discount.
type Invoice struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	OrderID       *string         `json:"order_id,omitempty"`
	CustomerID    *string         `json:"customer_id,omitempty"`
	Type          InvoiceType     `json:"type"`
	Status        InvoiceStatus   `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Discount      decimal.Decimal `json:"discount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
	PaidDate      *time.Time      `json:"paid_date,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Transaction is a bookkeeping entry used for reporting only.
type Transaction struct {
	ID              string          `json:"id"`
	Type            TransactionType `json:"type"`
	Category        string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	InvoiceID       *string         `json:"invoice_id,omitempty"`
	OrderID         *string         `json:"order_id,omitempty"`
	PaymentID       *string         `json:"payment_id,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Page carries pagination parameters. Zero values fall back to defaults.
type Page struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// normalize clamps page parameters and returns the SQL offset.
func (p Page) normalize() (page, limit, offset int) {
	page, limit = p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, (page - 1) * limit
}
