package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ── Enum parsing ──────────────────────────────────────────────────────────────

func parseEnum[T ~string](field, raw string, valid func(T) bool) (T, error) {
	v := T(strings.ToUpper(strings.TrimSpace(raw)))
	if !valid(v) {
		return "", invalid(field, "invalid value %q", raw)
	}
	return v, nil
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	return parseEnum("status", s, OrderStatus.Valid)
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	return parseEnum("status", s, PaymentStatus.Valid)
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	return parseEnum("method", s, PaymentMethod.Valid)
}

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	return parseEnum("status", s, InvoiceStatus.Valid)
}

func ParseInvoiceType(s string) (InvoiceType, error) {
	return parseEnum("type", s, InvoiceType.Valid)
}

func ParseMovementType(s string) (MovementType, error) {
	return parseEnum("type", s, MovementType.Valid)
}

func ParseTransactionType(s string) (TransactionType, error) {
	return parseEnum("type", s, TransactionType.Valid)
}

// ── Stock arithmetic ──────────────────────────────────────────────────────────

// validateMovement checks the caller-supplied part of a movement request.
func validateMovement(in MovementInput) error {
	if in.ProductID == "" {
		return invalid("product_id", "is required")
	}
	if !in.Type.Valid() {
		return invalid("type", "invalid movement type %q", in.Type)
	}
	if in.Quantity <= 0 {
		return invalid("quantity", "must be positive, got %d", in.Quantity)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return invalid("reason", "is required")
	}
	if strings.TrimSpace(in.Actor) == "" {
		return invalid("actor", "is required")
	}
	return nil
}

// nextStock applies one movement to the current stock level.
// IN adds, OUT subtracts and ADJUSTMENT sets the absolute level.
func nextStock(current int, t MovementType, qty int) (int, bool) {
	if qty <= 0 {
		return current, false
	}
	switch t {
	case MovementIn:
		return current + qty, true
	case MovementOut:
		if current < qty {
			return current, false
		}
		return current - qty, true
	case MovementAdjustment:
		return qty, true
	}
	return current, false
}

// replayStock reconstructs a stock level from a movement log in chronological order.
func replayStock(movements []StockMovement) int {
	stock := 0
	for _, m := range movements {
		switch m.Type {
		case MovementIn:
			stock += m.Quantity
		case MovementOut:
			stock -= m.Quantity
		case MovementAdjustment:
			stock = m.Quantity
		}
	}
	return stock
}

// ── Order arithmetic ──────────────────────────────────────────────────────────

// mergeItems sums quantities per product and returns the product ids in
// ascending order, which is the order rows must be locked in.
func mergeItems(items []ItemInput) (map[string]int, []string) {
	qty := make(map[string]int, len(items))
	for _, it := range items {
		qty[it.ProductID] += it.Quantity
	}
	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return qty, ids
}

// sortItemsByProduct orders stored items so their product rows are locked in
// the same ascending order mergeItems gives CreateOrder.
func sortItemsByProduct(items []OrderItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
}

func validateItem(i int, it ItemInput) error {
	if it.ProductID == "" {
		return invalid(fmt.Sprintf("items[%d].product_id", i), "is required")
	}
	if it.Quantity <= 0 {
		return invalid(fmt.Sprintf("items[%d].quantity", i), "must be positive, got %d", it.Quantity)
	}
	return nil
}

func validateOrderInput(in CreateOrderInput) error {
	if in.CustomerID == "" {
		return invalid("customer_id", "is required")
	}
	if len(in.Items) == 0 {
		return invalid("items", "at least one item is required")
	}
	for i, it := range in.Items {
		if err := validateItem(i, it); err != nil {
			return err
		}
	}
	if in.Discount.IsNegative() {
		return invalid("discount", "must not be negative")
	}
	if strings.TrimSpace(in.Actor) == "" {
		return invalid("actor", "is required")
	}
	return nil
}

func lineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// orderTotals derives tax and total from the line totals. Tax is charged on
// the pre-discount subtotal; the total never drops below zero.
func orderTotals(lineTotals []decimal.Decimal, discount, taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, lt := range lineTotals {
		subtotal = subtotal.Add(lt)
	}
	tax = subtotal.Mul(taxRate).Round(2)
	total = subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return subtotal, tax, total
}

func itemTotals(items []OrderItem) []decimal.Decimal {
	out := make([]decimal.Decimal, len(items))
	for i, it := range items {
		out[i] = it.Total
	}
	return out
}

// ── Payments ──────────────────────────────────────────────────────────────────

// completedTotal sums COMPLETED payments, skipping excludeID when non-empty.
func completedTotal(payments []Payment, excludeID string) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.ID == excludeID || p.Status != PaymentCompleted {
			continue
		}
		sum = sum.Add(p.Amount)
	}
	return sum
}

// checkPaymentBound rejects amount when it exceeds what is left to pay.
func checkPaymentBound(orderID string, orderTotal, alreadyPaid, amount decimal.Decimal) error {
	remaining := orderTotal.Sub(alreadyPaid)
	if amount.GreaterThan(remaining) {
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		return &OverpaymentError{OrderID: orderID, Requested: amount, Remaining: remaining}
	}
	return nil
}

func summarizePayments(orderID string, orderTotal decimal.Decimal, payments []Payment) PaymentSummary {
	s := PaymentSummary{OrderID: orderID, OrderTotal: orderTotal}
	for _, p := range payments {
		switch p.Status {
		case PaymentPending:
			s.PendingPayments++
		case PaymentCompleted:
			s.CompletedPayments++
		}
	}
	s.TotalPaid = completedTotal(payments, "")
	s.RemainingAmount = orderTotal.Sub(s.TotalPaid)
	s.IsFullyPaid = s.TotalPaid.GreaterThanOrEqual(orderTotal)
	return s
}

func validatePaymentAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", "must be positive")
	}
	return nil
}

// ── Invoices ──────────────────────────────────────────────────────────────────

func invoiceTotal(subtotal, tax, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Sub(discount)
}

func validateInvoiceAmounts(subtotal, tax, discount decimal.Decimal) error {
	if subtotal.IsNegative() {
		return invalid("subtotal", "must not be negative")
	}
	if tax.IsNegative() {
		return invalid("tax_amount", "must not be negative")
	}
	if discount.IsNegative() {
		return invalid("discount", "must not be negative")
	}
	return nil
}

// applyInvoicePatch merges patch into inv and recomputes the derived fields.
// paid_date is stamped only when the patch moves the invoice to PAID.
func applyInvoicePatch(inv *Invoice, patch InvoicePatch, now time.Time) (statusChanged bool, err error) {
	subtotal, tax, discount := inv.Subtotal, inv.TaxAmount, inv.Discount
	if patch.Subtotal != nil {
		subtotal = patch.Subtotal.Round(2)
	}
	if patch.TaxAmount != nil {
		tax = patch.TaxAmount.Round(2)
	}
	if patch.Discount != nil {
		discount = patch.Discount.Round(2)
	}
	if err := validateInvoiceAmounts(subtotal, tax, discount); err != nil {
		return false, err
	}
	inv.Subtotal, inv.TaxAmount, inv.Discount = subtotal, tax, discount
	inv.TotalAmount = invoiceTotal(subtotal, tax, discount)

	if patch.DueDate != nil {
		inv.DueDate = *patch.DueDate
	}
	if patch.Notes != nil {
		inv.Notes = *patch.Notes
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return false, invalid("status", "invalid invoice status %q", *patch.Status)
		}
		statusChanged = *patch.Status != inv.Status
		if *patch.Status == InvoicePaid && statusChanged {
			paid := now
			inv.PaidDate = &paid
		}
		inv.Status = *patch.Status
	}
	return statusChanged, nil
}

// paidInvoiceEntry returns how a paid invoice is booked. Order-linked sales
// invoices are booked through their payments.
func paidInvoiceEntry(inv Invoice) (TransactionType, string, bool) {
	switch inv.Type {
	case InvoiceSales:
		if inv.OrderID != nil {
			return "", "", false
		}
		return TransactionIncome, "sales", true
	case InvoicePurchase:
		return TransactionExpense, "purchases", true
	case InvoiceExpense:
		return TransactionExpense, "expenses", true
	}
	return "", "", false
}

// invoiceEntries returns the bookkeeping entries implied by an invoice moving
// from (prevStatus, prevTotal) to next. Entering PAID books the total, leaving
// PAID reverses what was booked, and a total edited while PAID books the
// difference.
func invoiceEntries(prevStatus InvoiceStatus, prevTotal decimal.Decimal, next Invoice) []ledgerEntry {
	typ, category, ok := paidInvoiceEntry(next)
	if !ok {
		return nil
	}
	wasPaid, isPaid := prevStatus == InvoicePaid, next.Status == InvoicePaid
	var out []ledgerEntry
	switch {
	case !wasPaid && isPaid:
		out = []ledgerEntry{{typ, category, next.TotalAmount}}
	case wasPaid && isPaid:
		delta := next.TotalAmount.Sub(prevTotal)
		if delta.IsNegative() {
			out = []ledgerEntry{{opposite(typ), "reversal", delta.Neg()}}
		} else {
			out = []ledgerEntry{{typ, category, delta}}
		}
	case wasPaid:
		out = []ledgerEntry{{opposite(typ), "reversal", prevTotal}}
	}
	if len(out) == 1 && !out[0].Amount.IsPositive() {
		return nil
	}
	return out
}

func opposite(t TransactionType) TransactionType {
	if t == TransactionIncome {
		return TransactionExpense
	}
	return TransactionIncome
}

// ── Transaction summary ───────────────────────────────────────────────────────

type CategoryTotal struct {
	Type     TransactionType `json:"type"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}

type MonthTotal struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

type TransactionSummary struct {
	From         *time.Time      `json:"from,omitempty"`
	To           *time.Time      `json:"to,omitempty"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Net          decimal.Decimal `json:"net"`
	Count        int             `json:"count"`
	ByCategory   []CategoryTotal `json:"by_category"`
	ByMonth      []MonthTotal    `json:"by_month"`
}

// summarizeTransactions groups entries by category and by calendar month (UTC).
// Output slices are sorted so the result is stable for the same input set.
func summarizeTransactions(txns []Transaction, from, to *time.Time) TransactionSummary {
	s := TransactionSummary{
		From:         from,
		To:           to,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		ByCategory:   []CategoryTotal{},
		ByMonth:      []MonthTotal{},
	}
	type catKey struct {
		t   TransactionType
		cat string
	}
	cats := map[catKey]*CategoryTotal{}
	months := map[string]*MonthTotal{}

	for _, t := range txns {
		s.Count++
		ck := catKey{t.Type, t.Category}
		c, ok := cats[ck]
		if !ok {
			c = &CategoryTotal{Type: t.Type, Category: t.Category, Amount: decimal.Zero}
			cats[ck] = c
		}
		c.Amount = c.Amount.Add(t.Amount)
		c.Count++

		key := t.TransactionDate.UTC().Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &MonthTotal{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
			months[key] = m
		}
		if t.Type == TransactionIncome {
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
			m.Income = m.Income.Add(t.Amount)
		} else {
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
			m.Expense = m.Expense.Add(t.Amount)
		}
	}
	s.Net = s.TotalIncome.Sub(s.TotalExpense)

	for _, c := range cats {
		s.ByCategory = append(s.ByCategory, *c)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Category < b.Category
	})
	for _, m := range months {
		m.Net = m.Income.Sub(m.Expense)
		s.ByMonth = append(s.ByMonth, *m)
	}
	sort.Slice(s.ByMonth, func(i, j int) bool { return s.ByMonth[i].Month < s.ByMonth[j].Month })
	return s
}

// ── Bookkeeping side effects ──────────────────────────────────────────────────

type ledgerEntry struct {
	Type     TransactionType
	Category string
	Amount   decimal.Decimal
}

// paymentEntries returns the bookkeeping entries implied by a payment moving
// from (prevStatus, prevAmount) to (nextStatus, nextAmount). Income is booked
// when a payment completes and reversed when it leaves COMPLETED.
func paymentEntries(prevStatus PaymentStatus, prevAmount decimal.Decimal, nextStatus PaymentStatus, nextAmount decimal.Decimal) []ledgerEntry {
	wasDone, isDone := prevStatus == PaymentCompleted, nextStatus == PaymentCompleted
	switch {
	case !wasDone && isDone:
		return []ledgerEntry{{TransactionIncome, "sales", nextAmount}}
	case wasDone && isDone:
		delta := nextAmount.Sub(prevAmount)
		switch {
		case delta.IsPositive():
			return []ledgerEntry{{TransactionIncome, "sales", delta}}
		case delta.IsNegative():
			return []ledgerEntry{{TransactionExpense, "refund", delta.Neg()}}
		}
		return nil
	case wasDone && nextStatus == PaymentRefunded:
		return []ledgerEntry{{TransactionExpense, "refund", prevAmount}}
	case wasDone:
		return []ledgerEntry{{TransactionExpense, "reversal", prevAmount}}
	}
	return nil
}

type paymentReversal struct {
	ledgerEntry
	PaymentID string
}

// orderDeletionEntries reverses the income booked for every COMPLETED payment
// of an order that is being deleted.
func orderDeletionEntries(payments []Payment) []paymentReversal {
	var out []paymentReversal
	for _, p := range payments {
		if p.Status != PaymentCompleted {
			continue
		}
		out = append(out, paymentReversal{
			ledgerEntry: ledgerEntry{TransactionExpense, "reversal", p.Amount},
			PaymentID:   p.ID,
		})
	}
	return out
}
