package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment:
		return true
	}
	return false
}

// Product holds the authoritative current stock. Stock is only ever written
// together with a StockMovement row in the same transaction.
type Product struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"min_stock"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StockMovement is an immutable audit record of one stock change.
type StockMovement struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"product_id"`
	Type          MovementType `json:"type"`
	Quantity      int          `json:"quantity"`
	PreviousStock int          `json:"previous_stock"`
	NewStock      int          `json:"new_stock"`
	Reason        string       `json:"reason"`
	Reference     string       `json:"reference,omitempty"`
	OrderID       *string      `json:"order_id,omitempty"`
	CreatedBy     string       `json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
}

// MovementInput describes a stock change requested by a caller.
// OrderID links fulfillment movements to their order.
type MovementInput struct {
	ProductID string
	Type      MovementType
	Quantity  int
	Reason    string
	Reference string
	OrderID   *string
	Actor     string
}

type MovementFilter struct {
	ProductID *string
	Page
}

type MovementPage struct {
	Movements []StockMovement `json:"movements"`
	Total     int             `json:"total"`
	Page      int             `json:"page"`
	Limit     int             `json:"limit"`
}

// StockAudit compares the stored stock with the value replayed from the
// movement log.
type StockAudit struct {
	ProductID     string `json:"product_id"`
	RecordedStock int    `json:"recorded_stock"`
	ReplayedStock int    `json:"replayed_stock"`
	Movements     int    `json:"movements"`
	Consistent    bool   `json:"consistent"`
}

// ProductInput creates a product. A positive InitialStock is booked as an
// opening IN movement.
type ProductInput struct {
	SKU          string
	Name         string
	Price        decimal.Decimal
	Cost         decimal.Decimal
	InitialStock int
	MinStock     int
	Actor        string
}
