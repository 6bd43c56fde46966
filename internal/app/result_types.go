package app

import "backoffice-ledger/internal/core"

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// LowStockResult is returned by LowStock.
type LowStockResult struct {
	Products []core.Product `json:"products"`
	Count    int            `json:"count"`
}

// PaymentListResult is returned by ListOrderPayments.
type PaymentListResult struct {
	OrderID  string         `json:"order_id"`
	Payments []core.Payment `json:"payments"`
}
