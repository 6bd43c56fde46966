package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"backoffice-ledger/internal/app"

	"github.com/shopspring/decimal"
)

// newOrder runs an interactive order creation session.
func (s *Session) newOrder(ctx context.Context, customerID string) error {
	fmt.Fprintf(s.out, "Creating order for customer: %s\n", customerID)
	fmt.Fprintln(s.out, "Enter order lines. Type 'done' when finished, 'cancel' to abort.")
	fmt.Fprintln(s.out, "Format per line: <product-id> <quantity>")

	var items []app.OrderItemRequest
	lineNum := 1
	for {
		fmt.Fprintf(s.out, "  Line %d: ", lineNum)
		raw, err := s.reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if strings.EqualFold(raw, "cancel") || (raw == "" && err != nil) {
			fmt.Fprintln(s.out, "Order creation cancelled.")
			return nil
		}
		if strings.EqualFold(raw, "done") {
			break
		}
		if raw == "" {
			continue
		}

		parts := strings.Fields(raw)
		if len(parts) != 2 {
			fmt.Fprintln(s.out, "  Invalid format. Use: <product-id> <quantity>")
			continue
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty <= 0 {
			fmt.Fprintln(s.out, "  Invalid quantity.")
			continue
		}
		items = append(items, app.OrderItemRequest{ProductID: parts[0], Quantity: qty})
		lineNum++
	}

	if len(items) == 0 {
		fmt.Fprintln(s.out, "No lines entered. Order not created.")
		return nil
	}

	discount := decimal.Zero
	for {
		fmt.Fprint(s.out, "Discount (leave blank for none): ")
		raw, _ := s.reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if raw == "" {
			break
		}
		d, err := decimal.NewFromString(raw)
		if err == nil && !d.IsNegative() {
			discount = d
			break
		}
		fmt.Fprintln(s.out, "  Invalid discount.")
	}

	fmt.Fprint(s.out, "Notes (optional): ")
	notes, _ := s.reader.ReadString('\n')

	order, err := s.svc.CreateOrder(ctx, app.CreateOrderRequest{
		CustomerID: customerID,
		Items:      items,
		Discount:   discount,
		Notes:      strings.TrimSpace(notes),
	}, s.actor)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}

	fmt.Fprintf(s.out, "\nOrder %s created (ID: %s, Status: %s)\n", order.OrderNumber, order.ID, order.Status)
	printOrderDetail(s.out, order)
	fmt.Fprintf(s.out, "Use '/pay %s <amount> <method>' to record a payment.\n", order.ID)
	return nil
}
