package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vumbaview/console/models"
	"github.com/vumbaview/console/stats"
)

func sampleInvoice() models.Invoice {
	return models.Invoice{
		ID:            "a1b2c3d4-e5f6",
		InvoiceNumber: "2026-0042",
		StudentID:     "s1",
		Total:         decimal.RequireFromString("245.50"),
		DueDate:       time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC),
		Status:        models.StatusPending,
		CreatedAt:     time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC),
		Student:       models.InvoiceStudent{Name: "Tinashe Moyo", Class: "Form 2A", Contact: "0771234567"},
		Items: []models.InvoiceItem{
			{FeeType: models.FeeSchoolFees, Amount: decimal.RequireFromString("200")},
			{FeeType: models.FeeUniform, Amount: decimal.RequireFromString("45.50"), Description: "2x blazer"},
		},
		Payments: []models.Payment{
			{Amount: decimal.RequireFromString("100"), Method: models.MethodEcocash, Date: time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestInvoicesCSVFilename(t *testing.T) {
	now := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Vumba_Invoices_All_20260115.csv", InvoicesCSVFilename("", now))
	assert.Equal(t, "Vumba_Invoices_Pending_20260115.csv", InvoicesCSVFilename(models.StatusPending, now))
}

func TestWriteInvoicesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInvoicesCSV(&buf, []models.Invoice{sampleInvoice()}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{
		"Invoice ID", "Student Name", "Items", "Total Amount",
		"Due Date", "Status", "Created At",
	}, records[0])

	row := records[1]
	assert.Equal(t, "INV-2026-0042", row[0])
	assert.Equal(t, "Tinashe Moyo", row[1])
	assert.Equal(t, "School Fees ($200); Uniform ($45.5)", row[2])
	assert.Equal(t, "245.5", row[3])
	assert.Equal(t, "2026-09-30", row[4])
	assert.Equal(t, "Pending", row[5])
	assert.Equal(t, "2026-09-01", row[6])
}

func TestWriteChartCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []stats.ChartRow{
		{Date: "2026-03-02", Invoices: decimal.RequireFromString("150"), Uniforms: 2, Students: 1},
	}
	require.NoError(t, WriteChartCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Date", "Invoices", "Uniforms", "Students"}, records[0])
	assert.Equal(t, []string{"2026-03-02", "150", "2", "1"}, records[1])
}

func TestChartCSVFilename(t *testing.T) {
	now := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Vumba_Dashboard_20260311.csv", ChartCSVFilename(now))
}

func TestInvoicePDFFilename(t *testing.T) {
	assert.Equal(t, "Invoice_INV-2026-0042.pdf", InvoicePDFFilename(sampleInvoice()))
}

func TestWriteInvoicePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInvoicePDF(&buf, sampleInvoice()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF"), "output is a pdf document")
	assert.Greater(t, buf.Len(), 500)
}
