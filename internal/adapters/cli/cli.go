package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"backoffice-ledger/internal/app"
	"backoffice-ledger/internal/core"
)

// Usage lists the one-shot commands understood by Run.
const Usage = `Available commands:
  low-stock                          products at or below their minimum stock
  movements [product_id] [page]      stock movement log, newest first
  verify-stock <product_id>          replay the movement log against stored stock
  summary [from] [to]                income/expense summary (YYYY-MM-DD, inclusive)
  export <file.xlsx> [from] [to]     write the summary as a spreadsheet
  token <user_id> [role] [ttl]       mint an API token (no database needed)

Run without arguments for the interactive console.`

// ErrStockMismatch is returned by verify-stock when the replayed stock differs
// from the stored value, so the process exits non-zero.
var ErrStockMismatch = errors.New("stored stock does not match movement log")

// Run executes a one-shot CLI command, writing human-readable output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", Usage)
	}

	switch args[0] {
	case "low-stock", "low":
		result, err := svc.LowStock(ctx)
		if err != nil {
			return fmt.Errorf("failed to load low stock products: %w", err)
		}
		printLowStock(out, result)

	case "movements", "mv":
		q := app.MovementQuery{}
		if len(args) > 1 {
			q.ProductID = args[1]
		}
		if len(args) > 2 {
			page, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid page %q", args[2])
			}
			q.Page = page
		}
		result, err := svc.ListMovements(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to list movements: %w", err)
		}
		printMovements(out, result)

	case "verify-stock", "verify":
		if len(args) < 2 {
			return errors.New("usage: app verify-stock <product_id>")
		}
		audit, err := svc.VerifyStock(ctx, args[1])
		if err != nil {
			return fmt.Errorf("failed to verify stock: %w", err)
		}
		fmt.Fprintf(out, "Product   : %s\n", audit.ProductID)
		fmt.Fprintf(out, "Movements : %d\n", audit.Movements)
		fmt.Fprintf(out, "Recorded  : %d\n", audit.RecordedStock)
		fmt.Fprintf(out, "Replayed  : %d\n", audit.ReplayedStock)
		if !audit.Consistent {
			return ErrStockMismatch
		}
		fmt.Fprintln(out, "Stock is consistent.")

	case "summary", "sum":
		summary, err := svc.TransactionSummary(ctx, summaryQuery(args[1:]))
		if err != nil {
			return fmt.Errorf("failed to build summary: %w", err)
		}
		printSummary(out, summary)

	case "export":
		if len(args) < 2 {
			return errors.New("usage: app export <file.xlsx> [from] [to]")
		}
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", args[1], err)
		}
		if err := svc.ExportTransactionSummary(ctx, summaryQuery(args[2:]), f); err != nil {
			f.Close()
			os.Remove(args[1])
			return fmt.Errorf("failed to export summary: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[1], err)
		}
		fmt.Fprintf(out, "Summary written to %s\n", args[1])

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], Usage)
	}
	return nil
}

func summaryQuery(args []string) app.SummaryQuery {
	var q app.SummaryQuery
	if len(args) > 0 {
		q.From = args[0]
	}
	if len(args) > 1 {
		q.To = args[1]
	}
	return q
}

func printLowStock(out io.Writer, result *app.LowStockResult) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  LOW STOCK (%d)\n", result.Count)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-14s %-30s %6s %6s\n", "SKU", "NAME", "STOCK", "MIN")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, p := range result.Products {
		fmt.Fprintf(out, "  %-14s %-30s %6d %6d\n", p.SKU, truncate(p.Name, 30), p.Stock, p.MinStock)
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printMovements(out io.Writer, page *core.MovementPage) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-20s %-10s %6s %6s %6s  %s\n", "DATE", "TYPE", "QTY", "FROM", "TO", "REASON")
	fmt.Fprintln(out, strings.Repeat("-", 78))
	for _, m := range page.Movements {
		fmt.Fprintf(out, "  %-20s %-10s %6d %6d %6d  %s\n",
			m.CreatedAt.UTC().Format("2006-01-02 15:04:05"), m.Type, m.Quantity, m.PreviousStock, m.NewStock, m.Reason)
	}
	fmt.Fprintln(out, strings.Repeat("-", 78))
	fmt.Fprintf(out, "  page %d, %d of %d movements\n", page.Page, len(page.Movements), page.Total)
}

func printSummary(out io.Writer, s *core.TransactionSummary) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-58s\n", "TRANSACTION SUMMARY")
	fmt.Fprintf(out, "  Entries  : %d\n", s.Count)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-10s %-30s %15s\n", "TYPE", "CATEGORY", "AMOUNT")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, c := range s.ByCategory {
		fmt.Fprintf(out, "  %-10s %-30s %15s\n", c.Type, truncate(c.Category, 30), c.Amount.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-41s %15s\n", "Total income", s.TotalIncome.StringFixed(2))
	fmt.Fprintf(out, "  %-41s %15s\n", "Total expense", s.TotalExpense.StringFixed(2))
	fmt.Fprintf(out, "  %-41s %15s\n", "Net", s.Net.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
