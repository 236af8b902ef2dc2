package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/vumbaview/console/backend"
	"github.com/vumbaview/console/models"
	"github.com/vumbaview/console/stats"
)

const defaultPageSize = 10

// ListStudents lists students
// @Summary      List students
// @Description  Get the student directory, optionally filtered by a free-text search over name, admission id, and class.
// @Tags         students
// @Produce      json
// @Param        search  query     string  false  "Case-insensitive substring match"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Page size (default 10, 0 for all)"
// @Success      200     {object}  Response{data=[]models.Student}
// @Router       /students [get]
// @Security     BasicAuth
func ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := Backend.ListStudents(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}

	if search := r.URL.Query().Get("search"); search != "" {
		students = lo.Filter(students, func(s models.Student, _ int) bool {
			return s.Matches(search)
		})
	}

	page, limit := pageParams(r)
	total := len(students)
	if limit > 0 {
		start := (page - 1) * limit
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}
		students = students[start:end]
	}
	if students == nil {
		students = []models.Student{}
	}

	writePage(w, http.StatusOK, students, &backend.Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	})
}

// CreateStudent enrolls a new student
// @Summary      Create student
// @Description  Validate and forward a new student enrollment.
// @Tags         students
// @Accept       json
// @Produce      json
// @Param        student  body      models.StudentInput  true  "Student details"
// @Success      201      {object}  Response{data=models.Student}
// @Failure      400      {object}  Response{error=string}
// @Router       /students [post]
// @Security     BasicAuth
func CreateStudent(w http.ResponseWriter, r *http.Request) {
	var input models.StudentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	student, err := Backend.CreateStudent(r.Context(), input)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

// studentDetail is a student plus the fee figures the detail page shows.
type studentDetail struct {
	models.Student
	GrandTotal         decimal.Decimal  `json:"grandTotal"`
	SchoolFeesTotal    decimal.Decimal  `json:"schoolFeesTotal"`
	SchoolFeesInvoices []models.Invoice `json:"schoolFeesInvoices"`
}

// GetStudent retrieves a single student with fee totals
// @Summary      Get student
// @Description  Get a student's details plus invoice totals, with School Fees invoices optionally narrowed to one term of a year.
// @Tags         students
// @Produce      json
// @Param        id    path      string  true   "Student ID"
// @Param        year  query     int     false  "Calendar year for term filtering (default current)"
// @Param        term  query     string  false  "Term 1, Term 2, Term 3, or all"
// @Success      200   {object}  Response{data=studentDetail}
// @Failure      404   {object}  Response{error=string}
// @Router       /students/{id} [get]
// @Security     BasicAuth
func GetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := Backend.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeBackendError(w, err)
		return
	}

	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	if year == 0 {
		year = timeNow().Year()
	}
	term := r.URL.Query().Get("term")

	fees := stats.SchoolFeesInvoices(student.Invoices, year, term)
	writeJSON(w, http.StatusOK, studentDetail{
		Student:            student,
		GrandTotal:         stats.InvoicesTotal(student.Invoices),
		SchoolFeesTotal:    stats.InvoicesTotal(fees),
		SchoolFeesInvoices: fees,
	})
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			limit = n
		}
	}
	return page, limit
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		if total > 0 {
			return 1
		}
		return 0
	}
	return (total + limit - 1) / limit
}
