package core_test

import (
	"context"
	"errors"
	"testing"

	"backoffice-ledger/internal/core"
	"backoffice-ledger/internal/events"

	"github.com/shopspring/decimal"
)

func TestInvoiceService_OneInvoicePerOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	order := newOrder(t, pool, fx)
	ctx := context.Background()

	invoices := core.NewInvoiceService(pool, 30, nil, nil)
	inv, err := invoices.CreateInvoiceFromOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("CreateInvoiceFromOrder failed: %v", err)
	}
	if inv.Status != core.InvoiceDraft || inv.Type != core.InvoiceSales {
		t.Errorf("expected DRAFT SALES invoice, got %s %s", inv.Status, inv.Type)
	}
	if inv.OrderID == nil || *inv.OrderID != order.ID {
		t.Errorf("expected invoice to reference order %s", order.ID)
	}
	if !inv.TotalAmount.Equal(inv.Subtotal.Add(inv.TaxAmount).Sub(inv.Discount)) {
		t.Errorf("invoice total %s does not match its parts", inv.TotalAmount)
	}

	_, err = invoices.CreateInvoiceFromOrder(ctx, order.ID)
	var dup *core.DuplicateInvoiceError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateInvoiceError, got %v", err)
	}
	if dup.ExistingInvoiceID != inv.ID {
		t.Errorf("expected existing invoice %s, got %s", inv.ID, dup.ExistingInvoiceID)
	}

	orderID := order.ID
	if _, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		Subtotal: decimal.NewFromInt(10), OrderID: &orderID,
	}); !errors.Is(err, core.ErrDuplicateInvoice) {
		t.Errorf("expected duplicate invoice on manual create, got %v", err)
	}
}

func TestInvoiceService_PaidInvoiceIsPermanent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	order := newOrder(t, pool, fx)
	ctx := context.Background()

	rec := &events.Recorder{}
	invoices := core.NewInvoiceService(pool, 30, nil, rec)
	inv, err := invoices.CreateInvoiceFromOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("CreateInvoiceFromOrder failed: %v", err)
	}

	paid, err := invoices.UpdateInvoiceStatus(ctx, inv.ID, core.InvoicePaid, testActor)
	if err != nil {
		t.Fatalf("UpdateInvoiceStatus failed: %v", err)
	}
	if paid.PaidDate == nil {
		t.Fatalf("expected paid_date to be set")
	}

	if err := invoices.DeleteInvoice(ctx, inv.ID); !errors.Is(err, core.ErrIllegalDelete) {
		t.Errorf("expected IllegalDelete, got %v", err)
	}

	subtotal := decimal.NewFromInt(500)
	updated, err := invoices.UpdateInvoice(ctx, inv.ID, core.InvoicePatch{Subtotal: &subtotal})
	if err != nil {
		t.Fatalf("UpdateInvoice failed: %v", err)
	}
	if updated.Status != core.InvoicePaid {
		t.Errorf("expected status to stay PAID, got %s", updated.Status)
	}
	if !updated.PaidDate.Equal(*paid.PaidDate) {
		t.Errorf("expected paid_date %v to be kept, got %v", paid.PaidDate, updated.PaidDate)
	}
	if !updated.TotalAmount.Equal(decimal.NewFromInt(572)) {
		t.Errorf("expected total 572, got %s", updated.TotalAmount)
	}

	// Order-linked sales invoices are booked through payments, not here.
	if n := countRows(t, pool, "SELECT count(*) FROM transactions WHERE invoice_id = $1", inv.ID); n != 0 {
		t.Errorf("expected no invoice transaction, got %d", n)
	}
	if keys := rec.Keys(); len(keys) != 1 || keys[0] != events.InvoiceStatusChanged {
		t.Errorf("expected one invoice.status_changed event, got %v", keys)
	}
}

func TestInvoiceService_StandaloneInvoiceBooksTransaction(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	fx := seed(t, pool)
	ctx := context.Background()

	invoices := core.NewInvoiceService(pool, 14, nil, nil)
	inv, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		Subtotal:   decimal.NewFromInt(200),
		TaxAmount:  decimal.NewFromInt(36),
		CustomerID: &fx.customer.ID,
		Type:       core.InvoicePurchase,
		Notes:      "packaging supplies",
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if !inv.TotalAmount.Equal(decimal.NewFromInt(236)) {
		t.Errorf("expected total 236, got %s", inv.TotalAmount)
	}

	if _, err := invoices.UpdateInvoiceStatus(ctx, inv.ID, core.InvoicePaid, ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected actor to be required, got %v", err)
	}
	if _, err := invoices.UpdateInvoiceStatus(ctx, inv.ID, core.InvoicePaid, testActor); err != nil {
		t.Fatalf("UpdateInvoiceStatus failed: %v", err)
	}

	n := countRows(t, pool, `SELECT count(*) FROM transactions
		WHERE invoice_id = $1 AND type = 'EXPENSE' AND category = 'purchases' AND amount = 236`, inv.ID)
	if n != 1 {
		t.Errorf("expected one purchases expense entry, got %d", n)
	}

	status := core.InvoicePaid
	page, err := invoices.ListInvoices(ctx, core.InvoiceFilter{Status: &status, CustomerID: &fx.customer.ID})
	if err != nil {
		t.Fatalf("ListInvoices failed: %v", err)
	}
	if page.Total != 1 || page.Invoices[0].ID != inv.ID {
		t.Errorf("unexpected invoice page: %+v", page)
	}
}

func TestInvoiceService_DeleteDraft(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seed(t, pool)
	ctx := context.Background()

	invoices := core.NewInvoiceService(pool, 30, nil, nil)
	inv, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{Subtotal: decimal.NewFromInt(50), Type: core.InvoiceExpense})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if err := invoices.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("DeleteInvoice failed: %v", err)
	}
	if _, err := invoices.GetInvoice(ctx, inv.ID); !core.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestInvoiceService_PaidRoundTripBooksOnce(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seed(t, pool)
	ctx := context.Background()

	invoices := core.NewInvoiceService(pool, 30, nil, nil)
	inv, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{Subtotal: decimal.NewFromInt(120), Type: core.InvoiceSales})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	for _, status := range []core.InvoiceStatus{core.InvoicePaid, core.InvoiceDraft, core.InvoicePaid} {
		if _, err := invoices.UpdateInvoiceStatus(ctx, inv.ID, status, testActor); err != nil {
			t.Fatalf("UpdateInvoiceStatus %s failed: %v", status, err)
		}
	}

	n := countRows(t, pool, "SELECT count(*) FROM transactions WHERE invoice_id = $1 AND category = 'reversal'", inv.ID)
	if n != 1 {
		t.Errorf("expected one reversal when the invoice left PAID, got %d", n)
	}
	summary, err := core.NewTransactionService(pool).Summary(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if !summary.Net.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected net 120 for one paid invoice, got %s", summary.Net)
	}

	// A correction while PAID books only the difference.
	subtotal := decimal.NewFromInt(100)
	if _, err := invoices.UpdateInvoice(ctx, inv.ID, core.InvoicePatch{Subtotal: &subtotal, Actor: testActor}); err != nil {
		t.Fatalf("UpdateInvoice failed: %v", err)
	}
	summary, err = core.NewTransactionService(pool).Summary(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if !summary.Net.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected net 100 after correction, got %s", summary.Net)
	}
}
