package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router wires up the console API.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CountRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes with basic auth
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BasicAuth)

		// Students
		r.Get("/students", ListStudents)
		r.Post("/students", CreateStudent)
		r.Get("/students/{id}", GetStudent)

		// Invoices
		r.Get("/invoices", ListInvoices)
		r.Post("/invoices", CreateInvoice)
		r.Get("/invoices/export", ExportInvoicesCSV)
		r.Delete("/invoices/{id}", DeleteInvoice)
		r.Get("/invoices/{id}/pdf", InvoicePDF)
		r.Get("/invoices/student/{studentId}/credit-outstanding", OutstandingCreditInvoices)

		// Dashboard
		r.Get("/dashboard", GetDashboard)
		r.Get("/dashboard/export", ExportDashboardCSV)
	})

	// Swagger UI
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return cors.Default().Handler(r)
}
