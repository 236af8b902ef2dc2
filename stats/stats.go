// Package stats computes the derived figures the dashboard and student
// detail pages display: per-day activity series for the enrollment/revenue
// chart and term-scoped fee totals. Everything works over already-fetched
// data; nothing here calls the backend.
package stats

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/vumbaview/console/models"
)

// ChartRow is one day of dashboard activity.
type ChartRow struct {
	Date     string          `json:"date"` // YYYY-MM-DD
	Invoices decimal.Decimal `json:"invoices"`
	Uniforms int             `json:"uniforms"`
	Students int             `json:"students"`
}

const dayFormat = "2006-01-02"

// BuildChartRows groups invoiced amounts, uniform articles sold, and new
// enrollments by calendar day, sorted ascending by date.
func BuildChartRows(data models.DashboardData) []ChartRow {
	byDay := map[string]*ChartRow{}
	day := func(t time.Time) *ChartRow {
		key := t.Format(dayFormat)
		row, ok := byDay[key]
		if !ok {
			row = &ChartRow{Date: key}
			byDay[key] = row
		}
		return row
	}

	for _, invoice := range data.Invoices {
		row := day(invoice.CreatedAt)
		row.Invoices = row.Invoices.Add(invoice.Total)
	}
	for _, sale := range data.Uniforms {
		day(sale.CreatedAt).Uniforms += sale.Quantity()
	}
	for _, student := range data.Students {
		day(student.CreatedAt).Students++
	}

	rows := make([]ChartRow, 0, len(byDay))
	for _, row := range byDay {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows
}

// TimeFilter selects a to-date window for the chart.
type TimeFilter string

const (
	FilterAll   TimeFilter = "all"
	FilterToday TimeFilter = "today"
	FilterWeek  TimeFilter = "week"
	FilterMonth TimeFilter = "month"
	FilterYear  TimeFilter = "year"
)

// FilterRows keeps rows on or after the start of the filter period relative
// to now. Unknown filters pass everything through.
func FilterRows(rows []ChartRow, filter TimeFilter, now time.Time) []ChartRow {
	var start time.Time
	switch filter {
	case FilterToday:
		start = now.AddDate(0, 0, -1)
	case FilterWeek:
		// Week starts on Sunday.
		start = startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
	case FilterMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case FilterYear:
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	default:
		return rows
	}
	return keepSince(rows, start)
}

// WindowRows keeps the trailing days-long window ending now.
func WindowRows(rows []ChartRow, days int, now time.Time) []ChartRow {
	if days <= 0 {
		return rows
	}
	return keepSince(rows, now.AddDate(0, 0, -days))
}

func keepSince(rows []ChartRow, start time.Time) []ChartRow {
	return lo.Filter(rows, func(row ChartRow, _ int) bool {
		date, err := time.Parse(dayFormat, row.Date)
		if err != nil {
			return false
		}
		return !date.Before(startOfDay(start))
	})
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Term is one of the three school terms of a year.
type Term struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Terms returns the school calendar for a year.
func Terms(year int) []Term {
	date := func(month time.Month, d int) time.Time {
		return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	}
	return []Term{
		{Name: "Term 1", Start: date(time.January, 14), End: date(time.April, 10)},
		{Name: "Term 2", Start: date(time.May, 13), End: date(time.August, 7)},
		{Name: "Term 3", Start: date(time.September, 9), End: date(time.December, 1)},
	}
}

// SchoolFeesInvoices keeps invoices that carry a School Fees item, optionally
// narrowed to one named term of the given year. A term name of "all" (or
// empty) keeps every school-fees invoice.
func SchoolFeesInvoices(invoices []models.Invoice, year int, termName string) []models.Invoice {
	filtered := lo.Filter(invoices, func(inv models.Invoice, _ int) bool {
		return lo.SomeBy(inv.Items, func(item models.InvoiceItem) bool {
			return item.FeeType == models.FeeSchoolFees
		})
	})
	if termName == "" || termName == "all" {
		return filtered
	}
	term, found := lo.Find(Terms(year), func(t Term) bool { return t.Name == termName })
	if !found {
		return filtered
	}
	return lo.Filter(filtered, func(inv models.Invoice, _ int) bool {
		return !inv.CreatedAt.Before(term.Start) && !inv.CreatedAt.After(term.End)
	})
}

// InvoicesTotal sums invoice totals.
func InvoicesTotal(invoices []models.Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.Total)
	}
	return total
}
