package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeType classifies an invoice line item.
type FeeType string

const (
	FeeSchoolFees     FeeType = "School Fees"
	FeeUniform        FeeType = "Uniform"
	FeePractical      FeeType = "Practical Fees"
	FeeHolidayLessons FeeType = "Holiday Lessons"
	FeeTrips          FeeType = "Trips"
	FeeExam           FeeType = "Exam Fees"
	FeeProject        FeeType = "Project Fees"
	FeeOther          FeeType = "Other"

	// FeeFulfillment marks a line item that settles an outstanding credit
	// invoice. Its amount is derived from the linked invoice, not edited.
	FeeFulfillment FeeType = "Fulfillment"
)

// FeeTypes lists the fee types selectable on a regular line item.
var FeeTypes = []FeeType{
	FeeSchoolFees, FeeUniform, FeePractical, FeeHolidayLessons,
	FeeTrips, FeeExam, FeeProject, FeeOther,
}

// PaymentMethod is how an invoice is to be settled.
type PaymentMethod string

const (
	MethodCard    PaymentMethod = "Card"
	MethodEcocash PaymentMethod = "Ecocash"
	MethodCash    PaymentMethod = "Cash"
	MethodCredit  PaymentMethod = "Credit"
)

// PaymentMethods lists all accepted payment methods.
var PaymentMethods = []PaymentMethod{MethodCard, MethodEcocash, MethodCash, MethodCredit}

// InvoiceStatus is the lifecycle state of an issued invoice.
type InvoiceStatus string

const (
	StatusPending InvoiceStatus = "Pending"
	StatusPaid    InvoiceStatus = "Paid"
	StatusOverdue InvoiceStatus = "Overdue"
)

// InvoiceItem is a single billed line on an invoice.
type InvoiceItem struct {
	FeeType     FeeType         `json:"feeType"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// ItemsTotal sums item amounts. A zero-value (absent) amount contributes zero.
func ItemsTotal(items []InvoiceItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

// Payment is a recorded payment against an invoice.
type Payment struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"createdAt"`
}

// InvoiceStudent is the student summary embedded in a fetched invoice.
type InvoiceStudent struct {
	Name    string `json:"name"`
	Class   string `json:"class,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Invoice is a billing record fetched from the accounting backend.
type Invoice struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	StudentID     string          `json:"studentId"`
	Items         []InvoiceItem   `json:"items"`
	Total         decimal.Decimal `json:"total"`
	DueDate       time.Time       `json:"dueDate"`
	Status        InvoiceStatus   `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	Student       InvoiceStudent  `json:"student"`
	Payments      []Payment       `json:"payments,omitempty"`
}

// DisplayNumber renders the human-facing invoice reference, falling back to a
// short id prefix when the backend assigned no invoice number.
func (i Invoice) DisplayNumber() string {
	if i.InvoiceNumber != "" {
		return "INV-" + i.InvoiceNumber
	}
	id := i.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "INV-" + id
}

// CreditInvoice is a previously issued invoice, billed on credit, that
// remains outstanding. It is read-only here: selecting one as a fulfillment
// target copies its total, never mutates it.
type CreditInvoice struct {
	ID      string          `json:"id"`
	Total   decimal.Decimal `json:"total"`
	DueDate time.Time       `json:"dueDate"`
	Status  InvoiceStatus   `json:"status"`
	Items   []InvoiceItem   `json:"items"`
}

// DraftInvoice is the wire form of a composed invoice sent to the backend.
// AmountDue and LinkedInvoiceID are omitted entirely unless their mode is
// active: the backend treats field presence as the mode discriminator.
type DraftInvoice struct {
	StudentID       string           `json:"studentId"`
	Items           []InvoiceItem    `json:"items"`
	DueDate         time.Time        `json:"dueDate"`
	PaymentMethod   PaymentMethod    `json:"paymentMethod"`
	AmountDue       *decimal.Decimal `json:"amountDue,omitempty"`
	LinkedInvoiceID string           `json:"linkedInvoiceId,omitempty"`
}

// IsFulfillment reports whether any item settles a credit invoice.
func (d DraftInvoice) IsFulfillment() bool {
	for _, item := range d.Items {
		if item.FeeType == FeeFulfillment {
			return true
		}
	}
	return false
}

// Total sums the draft's item amounts.
func (d DraftInvoice) Total() decimal.Decimal {
	return ItemsTotal(d.Items)
}

// Validate checks the structural rules a draft must satisfy before it is
// sent. Returns an empty string when valid, otherwise a user-facing message.
// The fulfillment amount/credit-invoice cross check needs the outstanding
// list and lives with the caller.
func (d *DraftInvoice) Validate() string {
	if d.StudentID == "" {
		return "please select a student"
	}
	if d.DueDate.IsZero() {
		return "please select a due date"
	}
	if len(d.Items) == 0 {
		return "please add at least one item"
	}
	for _, item := range d.Items {
		if item.FeeType != FeeFulfillment && !item.Amount.IsPositive() {
			return "all items must have a positive amount"
		}
	}
	switch d.PaymentMethod {
	case MethodCard, MethodEcocash, MethodCash, MethodCredit:
	default:
		return "payment method must be one of: Card, Ecocash, Cash, Credit"
	}
	if d.IsFulfillment() && d.LinkedInvoiceID == "" {
		return "please select a credit invoice to fulfill"
	}
	return ""
}
