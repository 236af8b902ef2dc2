package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vumbaview/console/export"
	"github.com/vumbaview/console/models"
	"github.com/vumbaview/console/stats"
)

// timeNow is swapped out in tests.
var timeNow = time.Now

type dashboardPayload struct {
	Headline models.DashboardStats `json:"stats"`
	Chart    []stats.ChartRow      `json:"chart"`
}

// GetDashboard retrieves dashboard statistics and chart data
// @Summary      Get dashboard
// @Description  Get headline stats plus the per-day activity series, filtered by a to-date period and a trailing-day window.
// @Tags         dashboard
// @Produce      json
// @Param        filter  query     string  false  "today, week, month, year, or all (default all)"
// @Param        range   query     string  false  "7d, 30d, or 90d trailing window"
// @Success      200     {object}  Response{data=dashboardPayload}
// @Router       /dashboard [get]
// @Security     BasicAuth
func GetDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := Backend.Dashboard(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}

	rows := chartRows(data, r)
	writeJSON(w, http.StatusOK, dashboardPayload{Headline: data.Stats, Chart: rows})
}

// ExportDashboardCSV downloads the chart series as CSV
// @Summary      Export dashboard CSV
// @Description  Download the filtered per-day activity series as a CSV file.
// @Tags         dashboard
// @Produce      text/csv
// @Param        filter  query  string  false  "today, week, month, year, or all"
// @Param        range   query  string  false  "7d, 30d, or 90d trailing window"
// @Success      200
// @Router       /dashboard/export [get]
// @Security     BasicAuth
func ExportDashboardCSV(w http.ResponseWriter, r *http.Request) {
	data, err := Backend.Dashboard(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}

	rows := chartRows(data, r)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.ChartCSVFilename(timeNow())+`"`)
	if err := export.WriteChartCSV(w, rows); err != nil {
		logStreamError(err)
	}
}

func chartRows(data models.DashboardData, r *http.Request) []stats.ChartRow {
	now := timeNow()
	rows := stats.BuildChartRows(data)

	if filter := r.URL.Query().Get("filter"); filter != "" {
		rows = stats.FilterRows(rows, stats.TimeFilter(filter), now)
	}
	switch r.URL.Query().Get("range") {
	case "7d":
		rows = stats.WindowRows(rows, 7, now)
	case "90d":
		rows = stats.WindowRows(rows, 90, now)
	case "30d":
		rows = stats.WindowRows(rows, 30, now)
	}
	return rows
}

// logStreamError records a failure writing a download body after headers are
// already sent.
func logStreamError(err error) {
	slog.Error("export stream failed", "error", err)
}
