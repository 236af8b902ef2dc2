// Package export serializes already-fetched data for download: invoice
// listings and dashboard series as CSV, single invoices as PDF.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vumbaview/console/models"
	"github.com/vumbaview/console/stats"
)

const dateFormat = "2006-01-02"

// InvoicesCSVFilename names an invoice export for the given status filter,
// e.g. Vumba_Invoices_Pending_20260115.csv.
func InvoicesCSVFilename(status models.InvoiceStatus, now time.Time) string {
	scope := "All"
	if status != "" {
		scope = string(status)
	}
	return fmt.Sprintf("Vumba_Invoices_%s_%s.csv", scope, now.Format("20060102"))
}

// WriteInvoicesCSV writes one row per invoice with its items flattened into a
// single column.
func WriteInvoicesCSV(w io.Writer, invoices []models.Invoice) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Invoice ID", "Student Name", "Items", "Total Amount",
		"Due Date", "Status", "Created At",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, inv := range invoices {
		row := []string{
			inv.DisplayNumber(),
			inv.Student.Name,
			itemsColumn(inv.Items),
			inv.Total.String(),
			inv.DueDate.Format(dateFormat),
			string(inv.Status),
			inv.CreatedAt.Format(dateFormat),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func itemsColumn(items []models.InvoiceItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s ($%s)", item.FeeType, item.Amount.String())
	}
	return strings.Join(parts, "; ")
}

// ChartCSVFilename names a dashboard chart export.
func ChartCSVFilename(now time.Time) string {
	return fmt.Sprintf("Vumba_Dashboard_%s.csv", now.Format("20060102"))
}

// WriteChartCSV writes the dashboard activity series.
func WriteChartCSV(w io.Writer, rows []stats.ChartRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Invoices", "Uniforms", "Students"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Date,
			row.Invoices.String(),
			fmt.Sprintf("%d", row.Uniforms),
			fmt.Sprintf("%d", row.Students),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
