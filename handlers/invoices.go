package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/vumbaview/console/backend"
	"github.com/vumbaview/console/export"
	"github.com/vumbaview/console/models"
)

// ListInvoices lists invoices
// @Summary      List invoices
// @Description  Get invoices, newest first, optionally filtered by status.
// @Tags         invoices
// @Produce      json
// @Param        status  query     string  false  "Pending, Paid, or Overdue"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Page size (default 10, 0 for all)"
// @Success      200     {object}  Response{data=[]models.Invoice}
// @Router       /invoices [get]
// @Security     BasicAuth
func ListInvoices(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	invoices, pg, err := Backend.ListInvoices(r.Context(), backend.ListInvoicesOptions{
		Page:   page,
		Limit:  limit,
		Status: models.InvoiceStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	writePage(w, http.StatusOK, invoices, pg)
}

// CreateInvoice validates and forwards a composed invoice
// @Summary      Create invoice
// @Description  Validate a draft invoice and forward it to the accounting service. For fulfillment drafts the linked credit invoice must be outstanding and its total must match the fulfillment amount.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        invoice  body      models.DraftInvoice  true  "Draft invoice"
// @Success      201      {object}  Response{data=models.Invoice}
// @Failure      400      {object}  Response{error=string}
// @Router       /invoices [post]
// @Security     BasicAuth
func CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var draft models.DraftInvoice
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := draft.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if draft.IsFulfillment() {
		// Re-check the linked credit invoice against the live outstanding
		// list; a stale client-side sync must not slip through.
		outstanding, err := Backend.OutstandingCreditInvoices(r.Context(), draft.StudentID)
		if err != nil {
			writeBackendError(w, err)
			return
		}
		credit, found := lo.Find(outstanding, func(c models.CreditInvoice) bool {
			return c.ID == draft.LinkedInvoiceID
		})
		if !found {
			writeError(w, http.StatusBadRequest, "linked credit invoice is no longer outstanding")
			return
		}
		for _, item := range draft.Items {
			if item.FeeType == models.FeeFulfillment && !item.Amount.Equal(credit.Total) {
				writeError(w, http.StatusBadRequest, "fulfillment amount does not match the selected credit invoice")
				return
			}
		}
	}

	created, err := Backend.CreateInvoice(r.Context(), draft)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// DeleteInvoice deletes an invoice
// @Summary      Delete invoice
// @Description  Remove an invoice.
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /invoices/{id} [delete]
// @Security     BasicAuth
func DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := Backend.DeleteInvoice(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// OutstandingCreditInvoices lists a student's outstanding credit invoices
// @Summary      Outstanding credit invoices
// @Description  Get the credit invoices still owed by a student, the selectable fulfillment targets.
// @Tags         invoices
// @Produce      json
// @Param        studentId  path      string  true  "Student ID"
// @Success      200        {object}  Response{data=[]models.CreditInvoice}
// @Router       /invoices/student/{studentId}/credit-outstanding [get]
// @Security     BasicAuth
func OutstandingCreditInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := Backend.OutstandingCreditInvoices(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if invoices == nil {
		invoices = []models.CreditInvoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

// ExportInvoicesCSV downloads invoices as CSV
// @Summary      Export invoices CSV
// @Description  Download all invoices matching the status filter as a CSV file.
// @Tags         invoices
// @Produce      text/csv
// @Param        status  query  string  false  "Pending, Paid, or Overdue"
// @Success      200
// @Router       /invoices/export [get]
// @Security     BasicAuth
func ExportInvoicesCSV(w http.ResponseWriter, r *http.Request) {
	status := models.InvoiceStatus(r.URL.Query().Get("status"))
	invoices, _, err := Backend.ListInvoices(r.Context(), backend.ListInvoicesOptions{Status: status})
	if err != nil {
		writeBackendError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.InvoicesCSVFilename(status, timeNow())+`"`)
	if err := export.WriteInvoicesCSV(w, invoices); err != nil {
		// Headers are gone; all we can do is log.
		logStreamError(err)
	}
}

// InvoicePDF downloads one invoice as PDF
// @Summary      Invoice PDF
// @Description  Download a printable PDF of one invoice.
// @Tags         invoices
// @Produce      application/pdf
// @Param        id   path      string  true  "Invoice ID"
// @Success      200
// @Failure      404  {object}  Response{error=string}
// @Router       /invoices/{id}/pdf [get]
// @Security     BasicAuth
func InvoicePDF(w http.ResponseWriter, r *http.Request) {
	invoice, err := Backend.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeBackendError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.InvoicePDFFilename(invoice)+`"`)
	if err := export.WriteInvoicePDF(w, invoice); err != nil {
		logStreamError(err)
	}
}
