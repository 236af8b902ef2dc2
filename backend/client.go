// Package backend is a typed client for the school-accounting service. All
// business logic and persistence live there; this client only shapes requests
// and surfaces the service's error messages.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vumbaview/console/models"
)

// DefaultBaseURL matches the local development backend.
const DefaultBaseURL = "http://localhost:8080/api/accounting"

// Client talks to the accounting backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for the given base URL. An empty base URL selects the
// development default.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError carries a non-success response from the backend. Message is the
// server-provided human-readable error, surfaced verbatim to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend request failed with status %d", e.StatusCode)
}

// Pagination describes the slice of a paginated listing.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Pagination *Pagination     `json:"pagination"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (*Pagination, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading backend response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		// A malformed body on an error status still yields a usable APIError.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}

	if out != nil {
		data := env.Data
		if data == nil {
			// Some endpoints reply with a bare object rather than the envelope.
			data = raw
		}
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("decoding backend response: %w", err)
		}
	}
	return env.Pagination, nil
}

// ListStudents fetches the full student directory.
func (c *Client) ListStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if _, err := c.do(ctx, http.MethodGet, "/students", nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// GetStudent fetches one student with invoices and uniform sales embedded.
func (c *Client) GetStudent(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	if _, err := c.do(ctx, http.MethodGet, "/students/"+url.PathEscape(id), nil, &student); err != nil {
		return models.Student{}, err
	}
	return student, nil
}

// CreateStudent enrolls a new student.
func (c *Client) CreateStudent(ctx context.Context, input models.StudentInput) (models.Student, error) {
	var student models.Student
	if _, err := c.do(ctx, http.MethodPost, "/students/new", input, &student); err != nil {
		return models.Student{}, err
	}
	return student, nil
}

// ListInvoicesOptions filter a ListInvoices call. A zero Limit requests every
// matching invoice.
type ListInvoicesOptions struct {
	Page   int
	Limit  int
	Status models.InvoiceStatus
}

// ListInvoices fetches invoices, newest first.
func (c *Client) ListInvoices(ctx context.Context, opts ListInvoicesOptions) ([]models.Invoice, *Pagination, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}

	var invoices []models.Invoice
	pg, err := c.do(ctx, http.MethodGet, "/invoices/?"+q.Encode(), nil, &invoices)
	if err != nil {
		return nil, nil, err
	}
	return invoices, pg, nil
}

// GetInvoice fetches a single invoice.
func (c *Client) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	var invoice models.Invoice
	if _, err := c.do(ctx, http.MethodGet, "/invoices/"+url.PathEscape(id), nil, &invoice); err != nil {
		return models.Invoice{}, err
	}
	return invoice, nil
}

// DeleteInvoice removes an invoice.
func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/invoices/"+url.PathEscape(id), nil, nil)
	return err
}

// OutstandingCreditInvoices fetches a student's credit invoices that remain
// owed, the selectable targets of a fulfillment.
func (c *Client) OutstandingCreditInvoices(ctx context.Context, studentID string) ([]models.CreditInvoice, error) {
	var invoices []models.CreditInvoice
	path := "/invoices/student/" + url.PathEscape(studentID) + "/credit-outstanding"
	if _, err := c.do(ctx, http.MethodGet, path, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// CreateInvoice submits a composed invoice.
func (c *Client) CreateInvoice(ctx context.Context, draft models.DraftInvoice) (models.Invoice, error) {
	var invoice models.Invoice
	if _, err := c.do(ctx, http.MethodPost, "/invoices/new", draft, &invoice); err != nil {
		return models.Invoice{}, err
	}
	return invoice, nil
}

// Dashboard fetches the aggregate dashboard payload.
func (c *Client) Dashboard(ctx context.Context) (models.DashboardData, error) {
	var data models.DashboardData
	if _, err := c.do(ctx, http.MethodGet, "/", nil, &data); err != nil {
		return models.DashboardData{}, err
	}
	return data, nil
}
