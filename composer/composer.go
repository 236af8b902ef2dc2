// Package composer holds the draft state of one invoice being put together:
// the selected student, line items, due date and payment method, plus the
// credit-invoice linkage when the draft fulfills an outstanding credit
// invoice. It derives totals, enforces the item-editing rules, validates the
// draft, and submits it to the accounting backend.
package composer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/vumbaview/console/models"
)

// Service is the slice of the accounting backend the composer needs.
type Service interface {
	ListStudents(ctx context.Context) ([]models.Student, error)
	OutstandingCreditInvoices(ctx context.Context, studentID string) ([]models.CreditInvoice, error)
	CreateInvoice(ctx context.Context, draft models.DraftInvoice) (models.Invoice, error)
}

// Guard errors for operations the current state disallows.
var (
	ErrSubmitting        = errors.New("a submission is already in flight")
	ErrFulfillmentLocked = errors.New("items cannot be changed while a fulfillment item is present")
	ErrLastItem          = errors.New("an invoice needs at least one item")
	ErrNoSuchItem        = errors.New("no item at that index")
	ErrNoFulfillment     = errors.New("the draft has no fulfillment item")
	ErrUnknownCredit     = errors.New("credit invoice is not in the outstanding list")
)

// ValidationError is a user-facing pre-submission validation failure. The
// draft is left untouched so the user can correct and retry.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Composer is one invoice-drafting session. The draft lives only for the
// session: it resets on successful submission and is never persisted.
//
// Methods are safe for concurrent use; in particular a slow credit-invoice
// lookup finishing after the student (or fulfillment mode) has changed is
// discarded rather than applied over newer state.
type Composer struct {
	svc Service

	mu             sync.Mutex
	id             string
	studentID      string
	dueDate        time.Time
	method         models.PaymentMethod
	items          []models.InvoiceItem
	searchQuery    string
	students       []models.Student
	creditInvoices []models.CreditInvoice
	selectedCredit string
	submitting     bool
	creditGen      uint64
}

// New returns a fresh drafting session with a single default line item, the
// same starting point the invoice form presents.
func New(svc Service) *Composer {
	return &Composer{
		svc:    svc,
		id:     uuid.NewString(),
		method: models.MethodCash,
		items:  []models.InvoiceItem{{FeeType: models.FeeSchoolFees}},
	}
}

// ID identifies this drafting session.
func (c *Composer) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// LoadStudents fetches the student directory for selection and search.
func (c *Composer) LoadStudents(ctx context.Context) error {
	students, err := c.svc.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("loading students: %w", err)
	}
	c.mu.Lock()
	c.students = students
	c.mu.Unlock()
	return nil
}

// SetSearchQuery updates the free-text student filter.
func (c *Composer) SetSearchQuery(query string) {
	c.mu.Lock()
	c.searchQuery = query
	c.mu.Unlock()
}

// FilteredStudents returns directory entries whose name, admission id, or
// class contains the search query, case-insensitively.
func (c *Composer) FilteredStudents() []models.Student {
	c.mu.Lock()
	students, query := c.students, c.searchQuery
	c.mu.Unlock()
	return lo.Filter(students, func(s models.Student, _ int) bool {
		return s.Matches(query)
	})
}

// SelectStudent picks the student being invoiced. If a fulfillment item is
// present, the outstanding credit invoices are re-fetched for the new
// student.
func (c *Composer) SelectStudent(ctx context.Context, studentID string) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitting
	}
	c.studentID = studentID
	c.selectedCredit = ""
	c.mu.Unlock()
	return c.RefreshCreditInvoices(ctx)
}

// SetDueDate sets the invoice due date.
func (c *Composer) SetDueDate(due time.Time) {
	c.mu.Lock()
	c.dueDate = due
	c.mu.Unlock()
}

// SetPaymentMethod sets how the invoice will be settled. For Credit the
// mirrored amount-due figure tracks the running total automatically.
func (c *Composer) SetPaymentMethod(method models.PaymentMethod) {
	c.mu.Lock()
	c.method = method
	c.mu.Unlock()
}

// AddItem appends a default line item. Disallowed in fulfillment mode and
// while a submission is in flight.
func (c *Composer) AddItem() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrSubmitting
	}
	if c.fulfillmentLocked() {
		return ErrFulfillmentLocked
	}
	c.items = append(c.items, models.InvoiceItem{FeeType: models.FeeSchoolFees})
	return nil
}

// RemoveItem deletes the item at index. The last remaining item cannot be
// removed.
func (c *Composer) RemoveItem(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrSubmitting
	}
	if c.fulfillmentLocked() {
		return ErrFulfillmentLocked
	}
	if len(c.items) <= 1 {
		return ErrLastItem
	}
	if index < 0 || index >= len(c.items) {
		return ErrNoSuchItem
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

// UpdateItemAmount sets the amount of a line item. Fulfillment amounts are
// derived from the linked credit invoice and cannot be edited directly.
func (c *Composer) UpdateItemAmount(index int, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrSubmitting
	}
	if index < 0 || index >= len(c.items) {
		return ErrNoSuchItem
	}
	if c.fulfillmentLocked() {
		return ErrFulfillmentLocked
	}
	c.items[index].Amount = amount
	return nil
}

// UpdateItemDescription sets the optional description of a line item.
func (c *Composer) UpdateItemDescription(index int, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrSubmitting
	}
	if index < 0 || index >= len(c.items) {
		return ErrNoSuchItem
	}
	if c.fulfillmentLocked() && c.items[index].FeeType != models.FeeFulfillment {
		return ErrFulfillmentLocked
	}
	c.items[index].Description = description
	return nil
}

// UpdateItemFeeType changes a line item's fee type. Switching an item to
// Fulfillment zeroes its amount and clears any previously selected credit
// invoice, forcing re-selection; the outstanding list is then (re-)fetched
// for the selected student. Switching the fulfillment item back releases the
// item-editing lock and drops the credit-invoice state.
func (c *Composer) UpdateItemFeeType(ctx context.Context, index int, feeType models.FeeType) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitting
	}
	if index < 0 || index >= len(c.items) {
		c.mu.Unlock()
		return ErrNoSuchItem
	}
	if c.fulfillmentLocked() && c.items[index].FeeType != models.FeeFulfillment {
		c.mu.Unlock()
		return ErrFulfillmentLocked
	}

	previous := c.items[index].FeeType
	c.items[index].FeeType = feeType
	if feeType == models.FeeFulfillment && previous != models.FeeFulfillment {
		c.items[index].Amount = decimal.Zero
		c.selectedCredit = ""
	}
	c.mu.Unlock()

	return c.RefreshCreditInvoices(ctx)
}

// RefreshCreditInvoices reconciles the outstanding credit-invoice list with
// the current student and fulfillment state. Outside fulfillment mode (or
// with no student selected) it clears the list and selection. Otherwise it
// fetches the student's outstanding credit invoices and, if none is selected
// yet, defaults to the first entry and syncs the fulfillment amount.
//
// Each fetch carries a generation token; a response that arrives after a
// newer refresh started is discarded so a slow lookup for a previously
// selected student cannot overwrite current state.
func (c *Composer) RefreshCreditInvoices(ctx context.Context) error {
	c.mu.Lock()
	c.creditGen++
	gen := c.creditGen
	if !c.fulfillmentLocked() || c.studentID == "" {
		c.creditInvoices = nil
		c.selectedCredit = ""
		c.mu.Unlock()
		return nil
	}
	studentID := c.studentID
	c.mu.Unlock()

	invoices, err := c.svc.OutstandingCreditInvoices(ctx, studentID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.creditGen {
		// Superseded by a newer student or mode change.
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading outstanding credit invoices: %w", err)
	}
	c.creditInvoices = invoices
	if len(invoices) > 0 && c.selectedCredit == "" {
		c.selectedCredit = invoices[0].ID
	}
	c.syncFulfillmentLocked()
	return nil
}

// SelectCreditInvoice picks the outstanding credit invoice this draft
// fulfills and copies its total onto the fulfillment item.
func (c *Composer) SelectCreditInvoice(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrSubmitting
	}
	if !c.fulfillmentLocked() {
		return ErrNoFulfillment
	}
	if _, found := c.findCreditLocked(id); !found {
		return ErrUnknownCredit
	}
	c.selectedCredit = id
	c.syncFulfillmentLocked()
	return nil
}

// syncFulfillmentLocked applies the one-way amount sync from the selected
// credit invoice onto the fulfillment item. A selection no longer present in
// the list is cleared rather than left dangling.
func (c *Composer) syncFulfillmentLocked() {
	if c.selectedCredit == "" {
		return
	}
	credit, found := c.findCreditLocked(c.selectedCredit)
	for i := range c.items {
		if c.items[i].FeeType != models.FeeFulfillment {
			continue
		}
		if found {
			c.items[i].Amount = credit.Total
		} else {
			c.items[i].Amount = decimal.Zero
		}
	}
	if !found {
		c.selectedCredit = ""
	}
}

func (c *Composer) findCreditLocked(id string) (models.CreditInvoice, bool) {
	for _, inv := range c.creditInvoices {
		if inv.ID == id {
			return inv, true
		}
	}
	return models.CreditInvoice{}, false
}

func (c *Composer) fulfillmentLocked() bool {
	for _, item := range c.items {
		if item.FeeType == models.FeeFulfillment {
			return true
		}
	}
	return false
}

// Total is the sum of all line-item amounts.
func (c *Composer) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.ItemsTotal(c.items)
}

// IsCreditPayment reports whether the draft bills on credit.
func (c *Composer) IsCreditPayment() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method == models.MethodCredit
}

// IsFulfillment reports whether the draft settles an outstanding credit
// invoice.
func (c *Composer) IsFulfillment() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fulfillmentLocked()
}

// AmountDue mirrors the running total while the payment method is Credit.
// The second return is false for any other method.
func (c *Composer) AmountDue() (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.method != models.MethodCredit {
		return decimal.Zero, false
	}
	return models.ItemsTotal(c.items), true
}

// Items returns a copy of the draft's line items in display order.
func (c *Composer) Items() []models.InvoiceItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]models.InvoiceItem, len(c.items))
	copy(items, c.items)
	return items
}

// CreditInvoices returns the fetched outstanding credit invoices.
func (c *Composer) CreditInvoices() []models.CreditInvoice {
	c.mu.Lock()
	defer c.mu.Unlock()
	invoices := make([]models.CreditInvoice, len(c.creditInvoices))
	copy(invoices, c.creditInvoices)
	return invoices
}

// SelectedCreditInvoice returns the fulfillment target, if one is selected.
func (c *Composer) SelectedCreditInvoice() (models.CreditInvoice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findCreditLocked(c.selectedCredit)
}

// StudentID is the selected student, empty when none.
func (c *Composer) StudentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.studentID
}

// DueDate is the selected due date, zero when unset.
func (c *Composer) DueDate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dueDate
}

// PaymentMethod is the selected payment method.
func (c *Composer) PaymentMethod() models.PaymentMethod {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method
}

// Pending reports whether a create request is in flight.
func (c *Composer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Validate runs the pre-submission checks in order and returns the first
// failure as a user-facing message, or "" when the draft can be submitted.
func (c *Composer) Validate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked()
}

func (c *Composer) validateLocked() string {
	if c.studentID == "" {
		return "please select a student"
	}
	if c.dueDate.IsZero() {
		return "please select a due date"
	}
	if len(c.items) == 0 {
		return "please add at least one item"
	}
	for _, item := range c.items {
		if item.FeeType != models.FeeFulfillment && !item.Amount.IsPositive() {
			return "all items must have a positive amount"
		}
	}
	if c.fulfillmentLocked() {
		credit, found := c.findCreditLocked(c.selectedCredit)
		if c.selectedCredit == "" || !found {
			return "please select a credit invoice to fulfill"
		}
		for _, item := range c.items {
			if item.FeeType == models.FeeFulfillment && !item.Amount.Equal(credit.Total) {
				return "fulfillment amount does not match the selected credit invoice"
			}
		}
	}
	return ""
}

// BuildPayload assembles the wire form of the draft. Mode-dependent fields
// are only present when their mode is active.
func (c *Composer) BuildPayload() models.DraftInvoice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloadLocked()
}

func (c *Composer) payloadLocked() models.DraftInvoice {
	items := make([]models.InvoiceItem, len(c.items))
	copy(items, c.items)

	draft := models.DraftInvoice{
		StudentID:     c.studentID,
		Items:         items,
		DueDate:       c.dueDate,
		PaymentMethod: c.method,
	}
	if c.method == models.MethodCredit {
		total := models.ItemsTotal(items)
		draft.AmountDue = &total
	}
	if c.fulfillmentLocked() {
		draft.LinkedInvoiceID = c.selectedCredit
	}
	return draft
}

// Submit validates the draft and sends it to the backend. On success the
// session resets to a fresh draft; on any failure the draft is preserved so
// the user can correct and retry. Only one submission runs at a time.
func (c *Composer) Submit(ctx context.Context) (models.Invoice, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return models.Invoice{}, ErrSubmitting
	}
	if msg := c.validateLocked(); msg != "" {
		c.mu.Unlock()
		return models.Invoice{}, ValidationError(msg)
	}
	c.submitting = true
	payload := c.payloadLocked()
	c.mu.Unlock()

	invoice, err := c.svc.CreateInvoice(ctx, payload)

	c.mu.Lock()
	c.submitting = false
	if err == nil {
		c.resetLocked()
	}
	c.mu.Unlock()

	if err != nil {
		return models.Invoice{}, err
	}
	return invoice, nil
}

// resetLocked starts a fresh session, as after navigating back to the form.
func (c *Composer) resetLocked() {
	c.id = uuid.NewString()
	c.studentID = ""
	c.dueDate = time.Time{}
	c.method = models.MethodCash
	c.items = []models.InvoiceItem{{FeeType: models.FeeSchoolFees}}
	c.searchQuery = ""
	c.creditInvoices = nil
	c.selectedCredit = ""
	c.creditGen++
}
