package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"backoffice-ledger/internal/app"

	"github.com/shopspring/decimal"
)

var errExit = errors.New("exit")

// Session is one interactive console bound to an operator. Every stock
// movement and bookkeeping entry it causes is recorded under actor.
type Session struct {
	svc    app.ApplicationService
	reader *bufio.Reader
	out    io.Writer
	actor  string
}

func NewSession(svc app.ApplicationService, reader *bufio.Reader, out io.Writer, actor string) *Session {
	return &Session{svc: svc, reader: reader, out: out, actor: actor}
}

// Run starts the interactive loop. It returns when the operator types /exit
// or the input is exhausted.
func (s *Session) Run(ctx context.Context) {
	fmt.Fprintln(s.out, "Back-office Ledger")
	fmt.Fprintf(s.out, "Operator: %s\n", s.actor)
	fmt.Fprintln(s.out, "Use /help for commands.")
	fmt.Fprintln(s.out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(s.out, "\n> ")
		input, readErr := s.reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if readErr != nil {
				return
			}
			continue
		}

		if !strings.HasPrefix(input, "/") {
			fmt.Fprintln(s.out, "Commands start with /. Type /help for all commands.")
			continue
		}

		if err := s.dispatch(ctx, input); err != nil {
			if errors.Is(err, errExit) {
				fmt.Fprintln(s.out, "Goodbye!")
				return
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		if readErr != nil {
			return
		}
	}
}

func (s *Session) dispatch(ctx context.Context, input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "products":
		result, err := s.svc.ListProducts(ctx)
		if err != nil {
			return err
		}
		printProducts(s.out, result.Products)

	case "low-stock", "low":
		result, err := s.svc.LowStock(ctx)
		if err != nil {
			return err
		}
		printProducts(s.out, result.Products)

	case "receive", "adjust":
		if len(args) < 2 {
			fmt.Fprintf(s.out, "Usage: /%s <product-id> <qty> [reason]\n", cmd)
			return nil
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.out, "Invalid quantity: %s\n", args[1])
			return nil
		}
		req := app.MovementRequest{ProductID: args[0], Quantity: qty, Type: "IN", Reason: "stock received"}
		if cmd == "adjust" {
			req.Type, req.Reason = "ADJUSTMENT", "stock count"
		}
		if len(args) > 2 {
			req.Reason = strings.Join(args[2:], " ")
		}
		mv, err := s.svc.RecordMovement(ctx, req, s.actor)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s recorded: stock %d -> %d\n", mv.Type, mv.PreviousStock, mv.NewStock)

	case "orders":
		q := app.OrderQuery{}
		if len(args) > 0 {
			q.Status = args[0]
		}
		page, err := s.svc.ListOrders(ctx, q)
		if err != nil {
			return err
		}
		printOrders(s.out, page)

	case "order":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /order <order-id>")
			return nil
		}
		order, err := s.svc.GetOrder(ctx, args[0])
		if err != nil {
			return err
		}
		printOrderDetail(s.out, order)

	case "new-order":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /new-order <customer-id>")
			return nil
		}
		return s.newOrder(ctx, args[0])

	case "status":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: /status <order-id> <status>")
			return nil
		}
		order, err := s.svc.UpdateOrderStatus(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Order %s is now %s.\n", order.OrderNumber, order.Status)

	case "pay":
		if len(args) < 3 {
			fmt.Fprintln(s.out, "Usage: /pay <order-id> <amount> <method>")
			return nil
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			fmt.Fprintf(s.out, "Invalid amount: %s\n", args[1])
			return nil
		}
		p, err := s.svc.CreatePayment(ctx, app.CreatePaymentRequest{OrderID: args[0], Amount: amount, Method: args[2]})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Payment %s recorded (%s, %s). Use /payment-status %s COMPLETED once funds clear.\n",
			p.ID, p.Amount.StringFixed(2), p.Status, p.ID)

	case "payment-status":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: /payment-status <payment-id> <status>")
			return nil
		}
		p, err := s.svc.UpdatePaymentStatus(ctx, args[0], args[1], s.actor)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Payment %s is now %s.\n", p.ID, p.Status)

	case "balance", "bal":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /balance <order-id>")
			return nil
		}
		summary, err := s.svc.GetPaymentSummary(ctx, args[0])
		if err != nil {
			return err
		}
		printPaymentSummary(s.out, summary)

	case "invoice":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /invoice <order-id>")
			return nil
		}
		inv, err := s.svc.CreateInvoiceFromOrder(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Invoice %s created (%s, total %s, due %s).\n",
			inv.InvoiceNumber, inv.Status, inv.TotalAmount.StringFixed(2), inv.DueDate.Format("2006-01-02"))

	case "invoice-status":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: /invoice-status <invoice-id> <status>")
			return nil
		}
		inv, err := s.svc.UpdateInvoiceStatus(ctx, args[0], args[1], s.actor)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Invoice %s is now %s.\n", inv.InvoiceNumber, inv.Status)

	case "help", "h":
		printHelp(s.out)

	case "exit", "quit", "e", "q":
		return errExit

	default:
		fmt.Fprintf(s.out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}
