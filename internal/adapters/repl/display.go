package repl

import (
	"fmt"
	"io"
	"strings"

	"backoffice-ledger/internal/core"
)

func printProducts(out io.Writer, products []core.Product) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintln(out, "  PRODUCTS")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	if len(products) == 0 {
		fmt.Fprintln(out, "  No products found.")
		fmt.Fprintln(out, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(out, "  %-12s %-28s %12s %7s %5s\n", "SKU", "NAME", "PRICE", "STOCK", "MIN")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, p := range products {
		flag := ""
		if p.Stock <= p.MinStock {
			flag = " !"
		}
		fmt.Fprintf(out, "  %-12s %-28s %12s %7d %5d%s\n",
			p.SKU, p.Name, p.Price.StringFixed(2), p.Stock, p.MinStock, flag)
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printOrders(out io.Writer, page *core.OrderPage) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "  ORDERS (%d)\n", page.Total)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	if len(page.Orders) == 0 {
		fmt.Fprintln(out, "  No orders found.")
		fmt.Fprintln(out, strings.Repeat("=", 80))
		return
	}
	fmt.Fprintf(out, "  %-16s %-30s %-11s %12s  %s\n", "ORDER NO", "ID", "STATUS", "TOTAL", "DATE")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, o := range page.Orders {
		fmt.Fprintf(out, "  %-16s %-30s %-11s %12s  %s\n",
			o.OrderNumber, o.ID, o.Status, o.TotalAmount.StringFixed(2), o.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprintln(out, strings.Repeat("=", 80))
}

func printOrderDetail(out io.Writer, o *core.Order) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "  Order:     %s\n", o.OrderNumber)
	fmt.Fprintf(out, "  Customer:  %s\n", o.CustomerID)
	fmt.Fprintf(out, "  Status:    %s\n", o.Status)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "  %-28s %6s %11s %11s\n", "PRODUCT", "QTY", "PRICE", "TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, it := range o.Items {
		fmt.Fprintf(out, "  %-28s %6d %11s %11s\n",
			it.ProductID, it.Quantity, it.Price.StringFixed(2), it.Total.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "  %-46s %11s\n", "DISCOUNT", o.Discount.StringFixed(2))
	fmt.Fprintf(out, "  %-46s %11s\n", "TAX", o.TaxAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-46s %11s\n", "TOTAL", o.TotalAmount.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("-", 60))
}

func printPaymentSummary(out io.Writer, s *core.PaymentSummary) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Order total : %s\n", s.OrderTotal.StringFixed(2))
	fmt.Fprintf(out, "  Paid        : %s (%d completed, %d pending)\n",
		s.TotalPaid.StringFixed(2), s.CompletedPayments, s.PendingPayments)
	fmt.Fprintf(out, "  Remaining   : %s\n", s.RemainingAmount.StringFixed(2))
	if s.IsFullyPaid {
		fmt.Fprintln(out, "  Fully paid.")
	}
}

func printHelp(out io.Writer) {
	lines := []string{
		"",
		"BACK-OFFICE LEDGER — COMMANDS",
		strings.Repeat("=", 62),
		"",
		"  STOCK",
		"  /products                          List products (! marks low stock)",
		"  /low-stock                         Products at or below minimum",
		"  /receive <product> <qty> [reason]  Book an IN movement",
		"  /adjust  <product> <qty> [reason]  Set stock to an absolute count",
		"",
		"  ORDERS",
		"  /orders [status]                   List orders",
		"  /order <order-id>                  Show one order",
		"  /new-order <customer-id>           Create order (interactive)",
		"  /status <order-id> <status>        Change order status",
		"",
		"  PAYMENTS & INVOICES",
		"  /pay <order-id> <amount> <method>  Record a PENDING payment",
		"  /payment-status <id> <status>      Change payment status",
		"  /balance <order-id>                Paid and remaining amounts",
		"  /invoice <order-id>                Invoice an order",
		"  /invoice-status <id> <status>      Change invoice status",
		"",
		"  SESSION",
		"  /help                              Show this help",
		"  /exit                              Exit",
		strings.Repeat("=", 62),
	}
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
}
