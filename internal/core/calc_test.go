package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNextStock(t *testing.T) {
	tests := []struct {
		name    string
		current int
		typ     MovementType
		qty     int
		want    int
		ok      bool
	}{
		{"in adds", 10, MovementIn, 5, 15, true},
		{"out subtracts", 10, MovementOut, 4, 6, true},
		{"out to zero", 4, MovementOut, 4, 0, true},
		{"out beyond stock", 3, MovementOut, 5, 3, false},
		{"adjustment sets absolute", 10, MovementAdjustment, 7, 7, true},
		{"adjustment of zero rejected", 10, MovementAdjustment, 0, 10, false},
		{"zero in rejected", 10, MovementIn, 0, 10, false},
		{"unknown type", 10, MovementType("MOVE"), 1, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nextStock(tt.current, tt.typ, tt.qty)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateMovement(t *testing.T) {
	base := MovementInput{ProductID: "prod_1", Type: MovementIn, Quantity: 1, Reason: "restock", Actor: "u1"}

	require.NoError(t, validateMovement(base))

	zeroIn := base
	zeroIn.Quantity = 0
	assert.ErrorIs(t, validateMovement(zeroIn), ErrValidation)

	zeroAdj := base
	zeroAdj.Type, zeroAdj.Quantity = MovementAdjustment, 0
	var qe *ValidationError
	require.ErrorAs(t, validateMovement(zeroAdj), &qe)
	assert.Equal(t, "quantity", qe.Field)

	negAdj := zeroAdj
	negAdj.Quantity = -1
	assert.ErrorIs(t, validateMovement(negAdj), ErrValidation)

	posAdj := zeroAdj
	posAdj.Quantity = 3
	assert.NoError(t, validateMovement(posAdj))

	noActor := base
	noActor.Actor = "  "
	var ve *ValidationError
	require.ErrorAs(t, validateMovement(noActor), &ve)
	assert.Equal(t, "actor", ve.Field)

	badType := base
	badType.Type = "SIDEWAYS"
	assert.ErrorIs(t, validateMovement(badType), ErrValidation)
}

func TestReplayStock_ResetsAtAdjustment(t *testing.T) {
	log := []StockMovement{
		{Type: MovementIn, Quantity: 10},
		{Type: MovementOut, Quantity: 4},
		{Type: MovementAdjustment, Quantity: 20},
		{Type: MovementOut, Quantity: 5},
		{Type: MovementIn, Quantity: 1},
	}
	assert.Equal(t, 16, replayStock(log))
	assert.Equal(t, 0, replayStock(nil))
}

func TestOrderTotals(t *testing.T) {
	rate := d("0.18")

	_, tax, total := orderTotals([]decimal.Decimal{lineTotal(d("100"), 4)}, decimal.Zero, rate)
	assert.True(t, total.Equal(d("400")), "total %s", total)
	assert.True(t, tax.Equal(d("72")), "tax %s", tax)

	// Tax is charged on the pre-discount subtotal.
	sub, tax, total := orderTotals([]decimal.Decimal{d("250"), d("150")}, d("50"), rate)
	assert.True(t, sub.Equal(d("400")))
	assert.True(t, tax.Equal(d("72")))
	assert.True(t, total.Equal(d("350")))

	// Discount larger than the subtotal clamps the total at zero.
	_, _, total = orderTotals([]decimal.Decimal{d("10")}, d("25"), rate)
	assert.True(t, total.IsZero())

	// Tax rounds to cents.
	_, tax, _ = orderTotals([]decimal.Decimal{d("0.99")}, decimal.Zero, rate)
	assert.Equal(t, "0.18", tax.StringFixed(2))
}

func TestMergeItems_SumsAndSortsIDs(t *testing.T) {
	qty, ids := mergeItems([]ItemInput{
		{ProductID: "prod_b", Quantity: 2},
		{ProductID: "prod_a", Quantity: 1},
		{ProductID: "prod_b", Quantity: 3},
	})
	assert.Equal(t, []string{"prod_a", "prod_b"}, ids)
	assert.Equal(t, 5, qty["prod_b"])
	assert.Equal(t, 1, qty["prod_a"])
}

func TestSortItemsByProduct(t *testing.T) {
	items := []OrderItem{
		{ID: "oi_1", ProductID: "prod_b"},
		{ID: "oi_2", ProductID: "prod_a"},
		{ID: "oi_3", ProductID: "prod_b"},
	}
	sortItemsByProduct(items)
	var got []string
	for _, it := range items {
		got = append(got, it.ID)
	}
	assert.Equal(t, []string{"oi_2", "oi_1", "oi_3"}, got)
}

func TestValidateOrderInput(t *testing.T) {
	ok := CreateOrderInput{CustomerID: "cust_1", Items: []ItemInput{{ProductID: "prod_1", Quantity: 1}}, Actor: "u1"}
	require.NoError(t, validateOrderInput(ok))

	noItems := ok
	noItems.Items = nil
	assert.ErrorIs(t, validateOrderInput(noItems), ErrValidation)

	badQty := ok
	badQty.Items = []ItemInput{{ProductID: "prod_1", Quantity: 0}}
	var ve *ValidationError
	require.ErrorAs(t, validateOrderInput(badQty), &ve)
	assert.Equal(t, "items[0].quantity", ve.Field)

	negDiscount := ok
	negDiscount.Discount = d("-1")
	assert.ErrorIs(t, validateOrderInput(negDiscount), ErrValidation)
}

func TestCheckPaymentBound(t *testing.T) {
	require.NoError(t, checkPaymentBound("ord_1", d("400"), d("100"), d("300")))

	err := checkPaymentBound("ord_1", d("400"), d("400"), d("1"))
	var oe *OverpaymentError
	require.ErrorAs(t, err, &oe)
	assert.True(t, oe.Remaining.IsZero(), "remaining %s", oe.Remaining)
	assert.True(t, oe.Requested.Equal(d("1")))
	assert.ErrorIs(t, err, ErrOverpayment)

	err = checkPaymentBound("ord_1", d("400"), d("350.50"), d("50"))
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "49.50", oe.Remaining.StringFixed(2))
}

func TestSummarizePayments(t *testing.T) {
	payments := []Payment{
		{ID: "pay_1", Amount: d("100"), Status: PaymentCompleted},
		{ID: "pay_2", Amount: d("50"), Status: PaymentPending},
		{ID: "pay_3", Amount: d("25"), Status: PaymentFailed},
		{ID: "pay_4", Amount: d("300"), Status: PaymentCompleted},
	}
	s := summarizePayments("ord_1", d("400"), payments)
	assert.True(t, s.TotalPaid.Equal(d("400")))
	assert.True(t, s.RemainingAmount.IsZero())
	assert.Equal(t, 1, s.PendingPayments)
	assert.Equal(t, 2, s.CompletedPayments)
	assert.True(t, s.IsFullyPaid)

	assert.True(t, completedTotal(payments, "pay_4").Equal(d("100")))

	empty := summarizePayments("ord_2", d("10"), nil)
	assert.False(t, empty.IsFullyPaid)
	assert.True(t, empty.RemainingAmount.Equal(d("10")))
}

func TestPaymentEntries(t *testing.T) {
	tests := []struct {
		name       string
		prev, next PaymentStatus
		prevAmt    string
		nextAmt    string
		want       []ledgerEntry
	}{
		{"pending to completed books income", PaymentPending, PaymentCompleted, "100", "100",
			[]ledgerEntry{{TransactionIncome, "sales", d("100")}}},
		{"completed to refunded books refund", PaymentCompleted, PaymentRefunded, "100", "100",
			[]ledgerEntry{{TransactionExpense, "refund", d("100")}}},
		{"completed to failed reverses", PaymentCompleted, PaymentFailed, "80", "80",
			[]ledgerEntry{{TransactionExpense, "reversal", d("80")}}},
		{"completed amount increase", PaymentCompleted, PaymentCompleted, "80", "100",
			[]ledgerEntry{{TransactionIncome, "sales", d("20")}}},
		{"completed amount decrease", PaymentCompleted, PaymentCompleted, "100", "60",
			[]ledgerEntry{{TransactionExpense, "refund", d("40")}}},
		{"completed unchanged", PaymentCompleted, PaymentCompleted, "100", "100", nil},
		{"pending to failed", PaymentPending, PaymentFailed, "100", "100", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paymentEntries(tt.prev, d(tt.prevAmt), tt.next, d(tt.nextAmt))
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.Equal(t, tt.want[i].Type, got[i].Type)
				assert.Equal(t, tt.want[i].Category, got[i].Category)
				assert.True(t, tt.want[i].Amount.Equal(got[i].Amount), "amount %s", got[i].Amount)
			}
		})
	}
}

func TestApplyInvoicePatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inv := &Invoice{
		Status: InvoiceDraft, Subtotal: d("400"), TaxAmount: d("72"), Discount: d("0"),
		TotalAmount: d("472"),
	}

	// Partial amount patch merges with stored values.
	discount := d("22")
	changed, err := applyInvoicePatch(inv, InvoicePatch{Discount: &discount}, now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, inv.TotalAmount.Equal(d("450")))
	assert.Nil(t, inv.PaidDate)

	// Moving to PAID stamps paid_date.
	paid := InvoicePaid
	changed, err = applyInvoicePatch(inv, InvoicePatch{Status: &paid}, now)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, inv.PaidDate)
	assert.Equal(t, now, *inv.PaidDate)

	// Touching amounts later leaves status and paid_date alone.
	subtotal := d("500")
	later := now.Add(24 * time.Hour)
	changed, err = applyInvoicePatch(inv, InvoicePatch{Subtotal: &subtotal}, later)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, InvoicePaid, inv.Status)
	assert.Equal(t, now, *inv.PaidDate)
	assert.True(t, inv.TotalAmount.Equal(d("550")))

	// Non-PAID status change keeps paid_date untouched.
	sent := InvoiceSent
	changed, err = applyInvoicePatch(inv, InvoicePatch{Status: &sent}, later)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, now, *inv.PaidDate)

	neg := d("-1")
	_, err = applyInvoicePatch(inv, InvoicePatch{TaxAmount: &neg}, later)
	assert.ErrorIs(t, err, ErrValidation)

	bogus := InvoiceStatus("VOID")
	_, err = applyInvoicePatch(inv, InvoicePatch{Status: &bogus}, later)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPaidInvoiceEntry(t *testing.T) {
	orderID := "ord_1"
	typ, cat, ok := paidInvoiceEntry(Invoice{Type: InvoiceSales})
	assert.True(t, ok)
	assert.Equal(t, TransactionIncome, typ)
	assert.Equal(t, "sales", cat)

	_, _, ok = paidInvoiceEntry(Invoice{Type: InvoiceSales, OrderID: &orderID})
	assert.False(t, ok)

	typ, cat, ok = paidInvoiceEntry(Invoice{Type: InvoicePurchase})
	assert.True(t, ok)
	assert.Equal(t, TransactionExpense, typ)
	assert.Equal(t, "purchases", cat)

	_, cat, _ = paidInvoiceEntry(Invoice{Type: InvoiceExpense})
	assert.Equal(t, "expenses", cat)
}

func TestInvoiceEntries(t *testing.T) {
	orderID := "ord_1"
	sales := Invoice{Type: InvoiceSales, Status: InvoicePaid, TotalAmount: d("118")}
	tests := []struct {
		name      string
		prev      InvoiceStatus
		prevTotal string
		next      Invoice
		want      []ledgerEntry
	}{
		{"draft to paid books total", InvoiceDraft, "118", sales,
			[]ledgerEntry{{TransactionIncome, "sales", d("118")}}},
		{"paid to draft reverses", InvoicePaid, "118",
			Invoice{Type: InvoiceSales, Status: InvoiceDraft, TotalAmount: d("118")},
			[]ledgerEntry{{TransactionExpense, "reversal", d("118")}}},
		{"paid purchase cancelled reverses as income", InvoicePaid, "50",
			Invoice{Type: InvoicePurchase, Status: InvoiceCancelled, TotalAmount: d("50")},
			[]ledgerEntry{{TransactionIncome, "reversal", d("50")}}},
		{"paid total raised books difference", InvoicePaid, "100", sales,
			[]ledgerEntry{{TransactionIncome, "sales", d("18")}}},
		{"paid total lowered reverses difference", InvoicePaid, "130", sales,
			[]ledgerEntry{{TransactionExpense, "reversal", d("12")}}},
		{"paid unchanged", InvoicePaid, "118", sales, nil},
		{"draft to sent", InvoiceDraft, "118",
			Invoice{Type: InvoiceSales, Status: InvoiceSent, TotalAmount: d("118")}, nil},
		{"order-linked sales invoice", InvoiceDraft, "118",
			Invoice{Type: InvoiceSales, Status: InvoicePaid, TotalAmount: d("118"), OrderID: &orderID}, nil},
		{"zero total", InvoiceDraft, "0",
			Invoice{Type: InvoiceExpense, Status: InvoicePaid, TotalAmount: d("0")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := invoiceEntries(tt.prev, d(tt.prevTotal), tt.next)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.Equal(t, tt.want[i].Type, got[i].Type)
				assert.Equal(t, tt.want[i].Category, got[i].Category)
				assert.True(t, tt.want[i].Amount.Equal(got[i].Amount), "amount %s", got[i].Amount)
			}
		})
	}
}

func TestInvoiceEntries_PaidRoundTripNetsToTotal(t *testing.T) {
	inv := Invoice{Type: InvoiceExpense, Status: InvoicePaid, TotalAmount: d("40")}
	net := decimal.Zero
	book := func(es []ledgerEntry) {
		for _, e := range es {
			if e.Type == TransactionExpense {
				net = net.Add(e.Amount)
			} else {
				net = net.Sub(e.Amount)
			}
		}
	}
	book(invoiceEntries(InvoiceDraft, d("40"), inv))
	draft := inv
	draft.Status = InvoiceDraft
	book(invoiceEntries(InvoicePaid, d("40"), draft))
	book(invoiceEntries(InvoiceDraft, d("40"), inv))
	assert.Equal(t, "40.00", net.StringFixed(2))
}

func TestOrderDeletionEntries(t *testing.T) {
	got := orderDeletionEntries([]Payment{
		{ID: "pay_1", Status: PaymentCompleted, Amount: d("30")},
		{ID: "pay_2", Status: PaymentPending, Amount: d("10")},
		{ID: "pay_3", Status: PaymentRefunded, Amount: d("5")},
		{ID: "pay_4", Status: PaymentCompleted, Amount: d("12.50")},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "pay_1", got[0].PaymentID)
	assert.Equal(t, TransactionExpense, got[0].Type)
	assert.Equal(t, "reversal", got[0].Category)
	assert.True(t, got[1].Amount.Equal(d("12.50")))
	assert.Empty(t, orderDeletionEntries(nil))
}

func TestSummarizeTransactions(t *testing.T) {
	jan := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	txns := []Transaction{
		{Type: TransactionIncome, Category: "sales", Amount: d("100"), TransactionDate: jan},
		{Type: TransactionExpense, Category: "refund", Amount: d("30"), TransactionDate: feb},
		{Type: TransactionIncome, Category: "sales", Amount: d("50"), TransactionDate: feb},
		{Type: TransactionExpense, Category: "expenses", Amount: d("20"), TransactionDate: jan},
	}

	s := summarizeTransactions(txns, nil, nil)
	assert.Equal(t, 4, s.Count)
	assert.True(t, s.TotalIncome.Equal(d("150")))
	assert.True(t, s.TotalExpense.Equal(d("50")))
	assert.True(t, s.Net.Equal(d("100")))

	require.Len(t, s.ByCategory, 3)
	assert.Equal(t, "expenses", s.ByCategory[0].Category)
	assert.Equal(t, "refund", s.ByCategory[1].Category)
	assert.Equal(t, "sales", s.ByCategory[2].Category)
	assert.Equal(t, 2, s.ByCategory[2].Count)
	assert.True(t, s.ByCategory[2].Amount.Equal(d("150")))

	require.Len(t, s.ByMonth, 2)
	assert.Equal(t, "2026-01", s.ByMonth[0].Month)
	assert.True(t, s.ByMonth[0].Net.Equal(d("80")))
	assert.Equal(t, "2026-02", s.ByMonth[1].Month)
	assert.True(t, s.ByMonth[1].Net.Equal(d("20")))

	// Input order does not change the result.
	reversed := summarizeTransactions([]Transaction{txns[3], txns[2], txns[1], txns[0]}, nil, nil)
	require.Len(t, reversed.ByCategory, 3)
	for i := range s.ByCategory {
		assert.Equal(t, s.ByCategory[i].Category, reversed.ByCategory[i].Category)
		assert.True(t, s.ByCategory[i].Amount.Equal(reversed.ByCategory[i].Amount))
	}
	assert.Equal(t, s.ByMonth[0].Month, reversed.ByMonth[0].Month)
	assert.True(t, s.Net.Equal(reversed.Net))

	emptySummary := summarizeTransactions(nil, nil, nil)
	assert.NotNil(t, emptySummary.ByCategory)
	assert.True(t, emptySummary.Net.IsZero())
}

func TestParseEnums(t *testing.T) {
	st, err := ParseOrderStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, OrderShipped, st)

	_, err = ParseOrderStatus("LOST")
	assert.ErrorIs(t, err, ErrValidation)

	m, err := ParsePaymentMethod("bank_transfer")
	require.NoError(t, err)
	assert.Equal(t, MethodBankTransfer, m)

	_, err = ParseInvoiceType("gift")
	assert.ErrorIs(t, err, ErrValidation)

	mt, err := ParseMovementType("adjustment")
	require.NoError(t, err)
	assert.Equal(t, MovementAdjustment, mt)
}

func TestPageNormalize(t *testing.T) {
	page, limit, offset := Page{}.normalize()
	assert.Equal(t, []int{1, 20, 0}, []int{page, limit, offset})

	page, limit, offset = Page{Page: 3, Limit: 500}.normalize()
	assert.Equal(t, []int{3, 100, 200}, []int{page, limit, offset})
}

func TestFormatDocumentNumber(t *testing.T) {
	assert.Equal(t, "SO-2026-00001", formatDocumentNumber(seriesOrder, 2026, 1))
	assert.Equal(t, "INV-2026-00042", formatDocumentNumber(seriesInvoice, 2026, 42))
}

func TestNewID_Prefix(t *testing.T) {
	id := newID(prefixOrder)
	assert.Regexp(t, `^ord_[0-9a-z]{26}$`, id)
	assert.NotEqual(t, id, newID(prefixOrder))
}

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	assert.Equal(t, "", w.sql())
	w.add("status = $%d", "PAID")
	w.add("customer_id = $%d", "cust_1")
	assert.Equal(t, " WHERE status = $1 AND customer_id = $2", w.sql())

	clause, args := w.page(20, 40)
	assert.Equal(t, " LIMIT $3 OFFSET $4", clause)
	assert.Equal(t, []any{"PAID", "cust_1", 20, 40}, args)
	assert.Len(t, w.args, 2)
}
