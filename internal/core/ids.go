package core

import (
	"context"
	"fmt"
	"time"

	"go.jetify.com/typeid/v2"
)

// Entity id prefixes.
const (
	prefixProduct     = "prod"
	prefixCustomer    = "cust"
	prefixOrder       = "ord"
	prefixOrderItem   = "oi"
	prefixMovement    = "mv"
	prefixPayment     = "pay"
	prefixInvoice     = "inv"
	prefixTransaction = "txn"
)

// newID returns a sortable, prefix-qualified id such as "ord_01h2xcejqtf2nbrexx3vqjhp41".
// It panics on an invalid prefix, which can only be a programming error.
func newID(prefix string) string {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("core: invalid id prefix %q: %v", prefix, err))
	}
	return tid.String()
}

// Document number series.
const (
	seriesOrder   = "SO"
	seriesInvoice = "INV"
)

// nextDocumentNumber allocates the next number in a yearly series. Run it on
// the pool, not inside the document's transaction: the upsert commits on its
// own and releases the sequence row at once. Numbers are unique and
// increasing; a creation that later rolls back leaves a gap.
func nextDocumentNumber(ctx context.Context, q pgxQuerier, series string, at time.Time) (string, error) {
	year := at.UTC().Year()
	var n int64
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (type_code, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (type_code, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, series, year).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s number: %w", series, err)
	}
	return formatDocumentNumber(series, year, n), nil
}

func formatDocumentNumber(series string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", series, year, n)
}
