package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vumbaview/console/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestBuildChartRowsGroupsByDay(t *testing.T) {
	data := models.DashboardData{
		Invoices: []models.Invoice{
			{Total: decimal.RequireFromString("100"), CreatedAt: day(2026, time.March, 2)},
			{Total: decimal.RequireFromString("50"), CreatedAt: day(2026, time.March, 2)},
			{Total: decimal.RequireFromString("75"), CreatedAt: day(2026, time.March, 5)},
		},
		Uniforms: []models.UniformSale{
			{CreatedAt: day(2026, time.March, 2), Items: []models.UniformItem{{Name: "Blazer", Quantity: 2}}},
			{CreatedAt: day(2026, time.March, 3)},
		},
		Students: []models.Student{
			{CreatedAt: day(2026, time.March, 5)},
			{CreatedAt: day(2026, time.March, 5)},
		},
	}

	rows := BuildChartRows(data)
	require.Len(t, rows, 3)

	assert.Equal(t, "2026-03-02", rows[0].Date)
	assert.True(t, rows[0].Invoices.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, 2, rows[0].Uniforms)
	assert.Zero(t, rows[0].Students)

	assert.Equal(t, "2026-03-03", rows[1].Date)
	assert.Equal(t, 1, rows[1].Uniforms, "unitemized sale counts one article")

	assert.Equal(t, "2026-03-05", rows[2].Date)
	assert.True(t, rows[2].Invoices.Equal(decimal.RequireFromString("75")))
	assert.Equal(t, 2, rows[2].Students)
}

func TestFilterRows(t *testing.T) {
	// A Wednesday, so the week filter reaches back to Sunday the 8th.
	now := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC)
	rows := []ChartRow{
		{Date: "2025-12-30"},
		{Date: "2026-02-17"},
		{Date: "2026-03-01"},
		{Date: "2026-03-08"},
		{Date: "2026-03-11"},
	}

	dates := func(rows []ChartRow) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Date
		}
		return out
	}

	assert.Equal(t, []string{"2026-03-11"}, dates(FilterRows(rows, FilterToday, now)))
	assert.Equal(t, []string{"2026-03-08", "2026-03-11"}, dates(FilterRows(rows, FilterWeek, now)))
	assert.Equal(t, []string{"2026-03-01", "2026-03-08", "2026-03-11"}, dates(FilterRows(rows, FilterMonth, now)))
	assert.Equal(t, []string{"2026-02-17", "2026-03-01", "2026-03-08", "2026-03-11"}, dates(FilterRows(rows, FilterYear, now)))
	assert.Len(t, FilterRows(rows, FilterAll, now), 5)
	assert.Len(t, FilterRows(rows, "bogus", now), 5)
}

func TestWindowRows(t *testing.T) {
	now := time.Date(2026, time.March, 31, 12, 0, 0, 0, time.UTC)
	rows := []ChartRow{
		{Date: "2025-12-01"},
		{Date: "2026-03-01"},
		{Date: "2026-03-25"},
	}

	assert.Len(t, WindowRows(rows, 7, now), 1)
	assert.Len(t, WindowRows(rows, 30, now), 2)
	assert.Len(t, WindowRows(rows, 90, now), 2)
	assert.Len(t, WindowRows(rows, 0, now), 3, "zero window passes everything")
}

func TestSchoolFeesInvoicesTermFilter(t *testing.T) {
	schoolFees := func(created time.Time, total string) models.Invoice {
		return models.Invoice{
			Total:     decimal.RequireFromString(total),
			CreatedAt: created,
			Items:     []models.InvoiceItem{{FeeType: models.FeeSchoolFees, Amount: decimal.RequireFromString(total)}},
		}
	}
	invoices := []models.Invoice{
		schoolFees(day(2026, time.February, 1), "300"), // term 1
		schoolFees(day(2026, time.June, 15), "310"),    // term 2
		schoolFees(day(2026, time.October, 1), "320"),  // term 3
		schoolFees(day(2026, time.April, 20), "99"),    // between terms
		{ // no school-fees item
			Total:     decimal.RequireFromString("45"),
			CreatedAt: day(2026, time.February, 1),
			Items:     []models.InvoiceItem{{FeeType: models.FeeUniform, Amount: decimal.RequireFromString("45")}},
		},
	}

	all := SchoolFeesInvoices(invoices, 2026, "all")
	assert.Len(t, all, 4, "uniform-only invoice is excluded")
	assert.Len(t, SchoolFeesInvoices(invoices, 2026, ""), 4)

	term1 := SchoolFeesInvoices(invoices, 2026, "Term 1")
	require.Len(t, term1, 1)
	assert.True(t, term1[0].Total.Equal(decimal.RequireFromString("300")))

	term2 := SchoolFeesInvoices(invoices, 2026, "Term 2")
	require.Len(t, term2, 1)
	assert.True(t, term2[0].Total.Equal(decimal.RequireFromString("310")))

	// An unknown term name degrades to the unscoped school-fees list.
	assert.Len(t, SchoolFeesInvoices(invoices, 2026, "Term 9"), 4)
}

func TestTermsCalendar(t *testing.T) {
	terms := Terms(2026)
	require.Len(t, terms, 3)
	assert.Equal(t, "Term 1", terms[0].Name)
	assert.Equal(t, time.Date(2026, time.January, 14, 0, 0, 0, 0, time.UTC), terms[0].Start)
	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), terms[2].End)
}

func TestInvoicesTotal(t *testing.T) {
	invoices := []models.Invoice{
		{Total: decimal.RequireFromString("100.25")},
		{Total: decimal.RequireFromString("99.75")},
	}
	assert.True(t, InvoicesTotal(invoices).Equal(decimal.RequireFromString("200")))
	assert.True(t, InvoicesTotal(nil).IsZero())
}
