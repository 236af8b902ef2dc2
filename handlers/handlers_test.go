package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vumbaview/console/backend"
)

// fakeAccounting stands in for the upstream accounting service, speaking its
// envelope protocol.
type fakeAccounting struct {
	mux *http.ServeMux

	mu       sync.Mutex
	requests map[string]int
}

func newFakeAccounting() *fakeAccounting {
	f := &fakeAccounting{mux: http.NewServeMux(), requests: map[string]int{}}

	f.reply("GET /students", `[
		{"id":"s1","name":"Tinashe Moyo","admissionId":"VVA-001","class":"Form 2A","fees":"350"},
		{"id":"s2","name":"Rudo Chikafu","admissionId":"VVA-014","class":"Form 4B","fees":"350"},
		{"id":"s3","name":"Simba Ncube","admissionId":"VVA-020","class":"Form 2A","fees":"350"}
	]`)
	f.reply("GET /students/s1", `{
		"id":"s1","name":"Tinashe Moyo","admissionId":"VVA-001","class":"Form 2A","fees":"350",
		"invoices":[
			{"id":"inv-1","studentId":"s1","total":"300","status":"Paid","createdAt":"2026-02-01T09:00:00Z",
			 "items":[{"feeType":"School Fees","amount":"300"}]},
			{"id":"inv-2","studentId":"s1","total":"45","status":"Paid","createdAt":"2026-02-03T09:00:00Z",
			 "items":[{"feeType":"Uniform","amount":"45"}]},
			{"id":"inv-3","studentId":"s1","total":"310","status":"Pending","createdAt":"2026-06-15T09:00:00Z",
			 "items":[{"feeType":"School Fees","amount":"310"}]}
		]
	}`)
	f.mux.HandleFunc("POST /students/new", func(w http.ResponseWriter, r *http.Request) {
		f.count("POST /students/new")
		var in map[string]any
		json.NewDecoder(r.Body).Decode(&in)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"success":true,"data":{"id":"s9","name":%q}}`, in["name"])
	})
	f.reply("GET /invoices/", `[
		{"id":"inv-1","invoiceNumber":"2026-0001","studentId":"s1","total":"200","status":"Pending",
		 "dueDate":"2026-09-30T00:00:00Z","createdAt":"2026-09-01T09:00:00Z",
		 "student":{"name":"Tinashe Moyo","class":"Form 2A"},
		 "items":[{"feeType":"School Fees","amount":"200"}]}
	]`)
	f.reply("GET /invoices/student/s1/credit-outstanding", `[
		{"id":"ci-1","total":"300","status":"Pending","items":[{"feeType":"School Fees","amount":"300"}]}
	]`)
	f.mux.HandleFunc("POST /invoices/new", func(w http.ResponseWriter, r *http.Request) {
		f.count("POST /invoices/new")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"data":{"id":"inv-9","studentId":"s1","total":"200","status":"Pending"}}`))
	})
	f.reply("GET /{$}", `{
		"stats":{"totalStudents":3,"pendingInvoices":1,"totalRevenue":"12500"},
		"students":[{"id":"s1","createdAt":"2026-03-02T08:00:00Z"}],
		"invoices":[
			{"id":"inv-1","total":"150","createdAt":"2026-03-02T09:00:00Z"},
			{"id":"inv-2","total":"75","createdAt":"2025-11-20T09:00:00Z"}
		],
		"uniforms":[{"id":"u1","createdAt":"2026-03-02T10:00:00Z","items":[{"name":"Blazer","quantity":2}]}]
	}`)

	f.mux.HandleFunc("GET /students/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"student not found"}`))
	})

	return f
}

func (f *fakeAccounting) reply(pattern, data string) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.count(pattern)
		fmt.Fprintf(w, `{"success":true,"data":%s}`, data)
	})
}

func (f *fakeAccounting) count(pattern string) {
	f.mu.Lock()
	f.requests[pattern]++
	f.mu.Unlock()
}

func (f *fakeAccounting) hits(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[pattern]
}

// newTestConsole wires the router against a fake upstream and returns the
// console's test server.
func newTestConsole(t *testing.T) (*httptest.Server, *fakeAccounting) {
	t.Helper()
	fake := newFakeAccounting()
	upstream := httptest.NewServer(fake.mux)
	t.Cleanup(upstream.Close)

	previous := Backend
	Backend = backend.New(upstream.URL)
	t.Cleanup(func() { Backend = previous })

	console := httptest.NewServer(Router())
	t.Cleanup(console.Close)
	return console, fake
}

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	previous := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = previous })
}

// apiResponse mirrors the wire form of the console's JSON envelope.
type apiResponse struct {
	Data       json.RawMessage     `json:"data"`
	Error      string              `json:"error"`
	Pagination *backend.Pagination `json:"pagination"`
}

func getJSON(t *testing.T, url string, out any) (int, apiResponse) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if out != nil && env.Data != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode, env
}

func TestHealth(t *testing.T) {
	console, _ := newTestConsole(t)
	resp, err := http.Get(console.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListStudentsSearch(t *testing.T) {
	console, _ := newTestConsole(t)

	var students []map[string]any
	status, env := getJSON(t, console.URL+"/api/v1/students?search=form+2", &students)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, students, 2)
	assert.Equal(t, "Tinashe Moyo", students[0]["name"])
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Total)
}

func TestListStudentsPagination(t *testing.T) {
	console, _ := newTestConsole(t)

	var students []map[string]any
	_, env := getJSON(t, console.URL+"/api/v1/students?page=2&limit=1", &students)
	require.Len(t, students, 1)
	assert.Equal(t, "Rudo Chikafu", students[0]["name"])
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 3, env.Pagination.Total)
	assert.Equal(t, 3, env.Pagination.TotalPages)
}

func TestCreateStudentRejectsInvalidInput(t *testing.T) {
	console, fake := newTestConsole(t)

	body := `{"name":"","class":"Form 1A","contact":"0771234567","parentContact":"0777654321","fees":"350"}`
	resp, err := http.Post(console.URL+"/api/v1/students", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var env Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "name is required", env.Error)
	assert.Zero(t, fake.hits("POST /students/new"), "invalid input must not reach the backend")
}

func TestGetStudentTermTotals(t *testing.T) {
	console, _ := newTestConsole(t)

	var detail struct {
		GrandTotal         string           `json:"grandTotal"`
		SchoolFeesTotal    string           `json:"schoolFeesTotal"`
		SchoolFeesInvoices []map[string]any `json:"schoolFeesInvoices"`
	}
	status, _ := getJSON(t, console.URL+"/api/v1/students/s1?year=2026&term=Term+1", &detail)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "655", detail.GrandTotal)
	assert.Equal(t, "300", detail.SchoolFeesTotal)
	require.Len(t, detail.SchoolFeesInvoices, 1)
	assert.Equal(t, "inv-1", detail.SchoolFeesInvoices[0]["id"])
}

func TestCreateInvoiceRejectsInvalidDraft(t *testing.T) {
	console, fake := newTestConsole(t)

	resp, err := http.Post(console.URL+"/api/v1/invoices", "application/json", strings.NewReader(`{"items":[]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var env Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "please select a student", env.Error)
	assert.Zero(t, fake.hits("POST /invoices/new"))
}

func TestCreateInvoiceFulfillmentRecheck(t *testing.T) {
	draft := func(link, amount string) string {
		return fmt.Sprintf(`{
			"studentId":"s1",
			"dueDate":"2026-09-30T00:00:00Z",
			"paymentMethod":"Cash",
			"items":[{"feeType":"Fulfillment","amount":%q}],
			"linkedInvoiceId":%q
		}`, amount, link)
	}

	t.Run("accepted", func(t *testing.T) {
		console, fake := newTestConsole(t)
		resp, err := http.Post(console.URL+"/api/v1/invoices", "application/json", strings.NewReader(draft("ci-1", "300")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, 1, fake.hits("POST /invoices/new"))
	})

	t.Run("settled elsewhere", func(t *testing.T) {
		console, fake := newTestConsole(t)
		resp, err := http.Post(console.URL+"/api/v1/invoices", "application/json", strings.NewReader(draft("ci-gone", "300")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var env Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		assert.Equal(t, "linked credit invoice is no longer outstanding", env.Error)
		assert.Zero(t, fake.hits("POST /invoices/new"))
	})

	t.Run("amount drifted", func(t *testing.T) {
		console, fake := newTestConsole(t)
		resp, err := http.Post(console.URL+"/api/v1/invoices", "application/json", strings.NewReader(draft("ci-1", "250")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var env Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		assert.Equal(t, "fulfillment amount does not match the selected credit invoice", env.Error)
		assert.Zero(t, fake.hits("POST /invoices/new"))
	})
}

func TestBackendErrorPassesThrough(t *testing.T) {
	console, _ := newTestConsole(t)

	resp, err := http.Get(console.URL + "/api/v1/students/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var env Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "student not found", env.Error)
}

func TestBackendDownBecomesBadGateway(t *testing.T) {
	console, _ := newTestConsole(t)
	// Point the client at a closed port.
	previous := Backend
	Backend = backend.New("http://127.0.0.1:1")
	t.Cleanup(func() { Backend = previous })

	resp, err := http.Get(console.URL + "/api/v1/students")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var env Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "accounting service is unavailable", env.Error)
}

func TestExportInvoicesCSV(t *testing.T) {
	console, _ := newTestConsole(t)
	fixedNow(t, time.Date(2026, time.September, 15, 12, 0, 0, 0, time.UTC))

	resp, err := http.Get(console.URL + "/api/v1/invoices/export?status=Pending")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Vumba_Invoices_Pending_20260915.csv"`, resp.Header.Get("Content-Disposition"))

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "INV-2026-0001", records[1][0])
	assert.Equal(t, "Tinashe Moyo", records[1][1])
}

func TestInvoicePDFDownload(t *testing.T) {
	console, fake := newTestConsole(t)
	fake.reply("GET /invoices/inv-1", `{
		"id":"inv-1","invoiceNumber":"2026-0001","studentId":"s1","total":"200","status":"Pending",
		"dueDate":"2026-09-30T00:00:00Z","createdAt":"2026-09-01T09:00:00Z",
		"student":{"name":"Tinashe Moyo"},
		"items":[{"feeType":"School Fees","amount":"200"}]
	}`)

	resp, err := http.Get(console.URL + "/api/v1/invoices/inv-1/pdf")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Invoice_INV-2026-0001.pdf"`, resp.Header.Get("Content-Disposition"))

	head := make([]byte, 4)
	_, err = io.ReadFull(resp.Body, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestDashboardChartFiltering(t *testing.T) {
	console, _ := newTestConsole(t)
	fixedNow(t, time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC))

	var payload struct {
		Stats struct {
			TotalStudents int `json:"totalStudents"`
		} `json:"stats"`
		Chart []struct {
			Date     string `json:"date"`
			Invoices string `json:"invoices"`
			Uniforms int    `json:"uniforms"`
			Students int    `json:"students"`
		} `json:"chart"`
	}

	status, _ := getJSON(t, console.URL+"/api/v1/dashboard", &payload)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, payload.Stats.TotalStudents)
	require.Len(t, payload.Chart, 2, "one row per active day")
	assert.Equal(t, "2025-11-20", payload.Chart[0].Date)

	status, _ = getJSON(t, console.URL+"/api/v1/dashboard?filter=year", &payload)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, payload.Chart, 1)
	assert.Equal(t, "2026-03-02", payload.Chart[0].Date)
	assert.Equal(t, "150", payload.Chart[0].Invoices)
	assert.Equal(t, 2, payload.Chart[0].Uniforms)
	assert.Equal(t, 1, payload.Chart[0].Students)
}

func TestExportDashboardCSV(t *testing.T) {
	console, _ := newTestConsole(t)
	fixedNow(t, time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC))

	resp, err := http.Get(console.URL + "/api/v1/dashboard/export?filter=year")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, `attachment; filename="Vumba_Dashboard_20260311.csv"`, resp.Header.Get("Content-Disposition"))
	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"2026-03-02", "150", "2", "1"}, records[1])
}

func TestBasicAuthGuardsAPI(t *testing.T) {
	t.Setenv("AUTH_USER", "admin")
	t.Setenv("AUTH_PASS", "secret")
	// The router reads the credentials when it is built.
	console, _ := newTestConsole(t)

	resp, err := http.Get(console.URL + "/api/v1/students")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, console.URL+"/api/v1/students", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Health stays open for probes.
	resp, err = http.Get(console.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
