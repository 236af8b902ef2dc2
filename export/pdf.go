package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/vumbaview/console/models"
)

const (
	schoolName    = "Vumba View Academy"
	schoolTagline = "Private School - Mutare, Zimbabwe"
	schoolEmail   = "info@vumbaacademy.com"
)

// InvoicePDFFilename names a single-invoice download.
func InvoicePDFFilename(inv models.Invoice) string {
	return fmt.Sprintf("Invoice_%s.pdf", inv.DisplayNumber())
}

// WriteInvoicePDF renders a printable invoice: school letterhead, billed-to
// block, itemized fees, payment history, and total.
func WriteInvoicePDF(w io.Writer, inv models.Invoice) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(inv.DisplayNumber(), false)
	pdf.AddPage()

	// Letterhead
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, schoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, schoolTagline, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, "Email: "+schoolEmail, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(6)

	// Billed-to and invoice details, side by side
	top := pdf.GetY()
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(95, 6, "Billed To:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 5, inv.Student.Name, "", 1, "L", false, 0, "")
	if inv.Student.Class != "" {
		pdf.CellFormat(95, 5, "Class: "+inv.Student.Class, "", 1, "L", false, 0, "")
	}
	if inv.Student.Contact != "" {
		pdf.CellFormat(95, 5, "Contact: "+inv.Student.Contact, "", 1, "L", false, 0, "")
	}
	bottom := pdf.GetY()

	pdf.SetXY(105, top)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(95, 6, "Invoice Details:", "", 2, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 5, "Invoice #: "+inv.DisplayNumber(), "", 2, "R", false, 0, "")
	pdf.CellFormat(95, 5, "Issue Date: "+inv.CreatedAt.Format("Jan 2, 2006"), "", 2, "R", false, 0, "")
	pdf.CellFormat(95, 5, "Due Date: "+inv.DueDate.Format("Jan 2, 2006"), "", 2, "R", false, 0, "")
	pdf.CellFormat(95, 5, "Status: "+string(inv.Status), "", 2, "R", false, 0, "")
	if pdf.GetY() > bottom {
		bottom = pdf.GetY()
	}
	pdf.SetXY(10, bottom+6)

	// Items table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(140, 8, "Fee Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 8, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.Items {
		label := string(item.FeeType)
		if item.Description != "" {
			label += " - " + item.Description
		}
		pdf.CellFormat(140, 8, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, "$"+item.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(140, 8, "Total", "1", 0, "R", true, 0, "")
	pdf.CellFormat(50, 8, "$"+inv.Total.StringFixed(2), "1", 1, "R", true, 0, "")

	// Payment history
	if len(inv.Payments) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 6, "Payment History", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(70, 8, "Date", "1", 0, "L", true, 0, "")
		pdf.CellFormat(70, 8, "Method", "1", 0, "L", true, 0, "")
		pdf.CellFormat(50, 8, "Amount", "1", 1, "R", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, payment := range inv.Payments {
			pdf.CellFormat(70, 8, payment.Date.Format("Jan 2, 2006"), "1", 0, "L", false, 0, "")
			pdf.CellFormat(70, 8, string(payment.Method), "1", 0, "L", false, 0, "")
			pdf.CellFormat(50, 8, "$"+payment.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
		}
	}

	pdf.Ln(12)
	pdf.SetFont("Arial", "I", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, "Thank you for choosing Vumba View Academy. We value your continued support.", "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering invoice pdf: %w", err)
	}
	return nil
}
