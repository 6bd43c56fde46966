package core

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary    = "Summary"
	sheetCategories = "By Category"
	sheetMonths     = "By Month"
)

// ExportSummaryXLSX writes the summary as a three-sheet workbook.
func ExportSummaryXLSX(summary *TransactionSummary, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{sheetCategories, sheetMonths} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	summaryRows := [][]any{
		{"Metric", "Value"},
		{"From", formatBound(summary.From)},
		{"To", formatBound(summary.To)},
		{"Transactions", summary.Count},
		{"Total income", summary.TotalIncome.InexactFloat64()},
		{"Total expense", summary.TotalExpense.InexactFloat64()},
		{"Net", summary.Net.InexactFloat64()},
	}
	if err := writeRows(f, sheetSummary, summaryRows); err != nil {
		return err
	}

	catRows := [][]any{{"Type", "Category", "Count", "Amount"}}
	for _, c := range summary.ByCategory {
		catRows = append(catRows, []any{string(c.Type), c.Category, c.Count, c.Amount.InexactFloat64()})
	}
	if err := writeRows(f, sheetCategories, catRows); err != nil {
		return err
	}

	monthRows := [][]any{{"Month", "Income", "Expense", "Net"}}
	for _, m := range summary.ByMonth {
		monthRows = append(monthRows, []any{m.Month, m.Income.InexactFloat64(), m.Expense.InexactFloat64(), m.Net.InexactFloat64()})
	}
	if err := writeRows(f, sheetMonths, monthRows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.UTC().Format("2006-01-02")
}
