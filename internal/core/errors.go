package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Sentinel errors. Every structured error below unwraps to exactly one of these,
// so callers can match with errors.Is without knowing the concrete type.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOverpayment       = errors.New("payment exceeds remaining amount")
	ErrIllegalDelete     = errors.New("delete not allowed")
	ErrDuplicateInvoice  = errors.New("invoice already exists for order")
	ErrConflict          = errors.New("conflict")
)

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type InsufficientStockError struct {
	ProductID string
	SKU       string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.SKU, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type OverpaymentError struct {
	OrderID   string
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment amount %s exceeds remaining amount %s for order %s",
		e.Requested.StringFixed(2), e.Remaining.StringFixed(2), e.OrderID)
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

type IllegalDeleteError struct {
	Entity string
	ID     string
	Reason string
}

func (e *IllegalDeleteError) Error() string {
	return fmt.Sprintf("cannot delete %s %s: %s", e.Entity, e.ID, e.Reason)
}

func (e *IllegalDeleteError) Unwrap() error { return ErrIllegalDelete }

type DuplicateInvoiceError struct {
	OrderID           string
	ExistingInvoiceID string
}

func (e *DuplicateInvoiceError) Error() string {
	if e.ExistingInvoiceID == "" {
		return fmt.Sprintf("invoice already exists for order %s", e.OrderID)
	}
	return fmt.Sprintf("invoice %s already exists for order %s", e.ExistingInvoiceID, e.OrderID)
}

func (e *DuplicateInvoiceError) Unwrap() error { return ErrDuplicateInvoice }

type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether err was caused by the caller's input rather
// than by the database or another infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrIllegalDelete) ||
		errors.Is(err, ErrDuplicateInvoice) ||
		errors.Is(err, ErrConflict)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

const (
	pgUniqueViolation  = "23505"
	invoiceOrderIndex  = "invoices_order_id_key"
	productSKUIndex    = "products_sku_key"
	customerEmailIndex = "customers_email_key"
	orderNumberIndex   = "orders_order_number_key"
	invoiceNumberIndex = "invoices_invoice_number_key"
)

// mapUniqueViolation converts a Postgres unique violation into the matching
// domain error. Other errors are returned unchanged.
func mapUniqueViolation(err error, value string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case invoiceOrderIndex:
		return &DuplicateInvoiceError{OrderID: value}
	case productSKUIndex:
		return &ConflictError{Field: "sku", Value: value}
	case customerEmailIndex:
		return &ConflictError{Field: "email", Value: value}
	case orderNumberIndex:
		return &ConflictError{Field: "order_number", Value: value}
	case invoiceNumberIndex:
		return &ConflictError{Field: "invoice_number", Value: value}
	}
	return &ConflictError{Field: pgErr.ConstraintName, Value: value}
}
