package models

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Student is an enrolled student as returned by the accounting backend.
type Student struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	AdmissionID   string          `json:"admissionId"`
	Class         string          `json:"class"`
	Contact       string          `json:"contact,omitempty"`
	ParentContact string          `json:"parentContact,omitempty"`
	Fees          decimal.Decimal `json:"fees"`
	CreatedAt     time.Time       `json:"createdAt"`
	Invoices      []Invoice       `json:"invoices,omitempty"`
	Uniforms      []UniformSale   `json:"uniforms,omitempty"`
}

// Matches reports whether the student's name, admission id, or class contains
// the query as a case-insensitive substring. An empty query matches everyone.
func (s Student) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(s.Name), q) ||
		strings.Contains(strings.ToLower(s.AdmissionID), q) ||
		strings.Contains(strings.ToLower(s.Class), q)
}

// StudentInput is used for enrolling a new student.
type StudentInput struct {
	Name          string          `json:"name" validate:"required"`
	Class         string          `json:"class" validate:"required"`
	Contact       string          `json:"contact" validate:"required,numeric,min=4"`
	ParentContact string          `json:"parentContact" validate:"required,numeric,min=4"`
	Fees          decimal.Decimal `json:"fees"`
}

var validate = validator.New()

func (s *StudentInput) Validate() string {
	if err := validate.Struct(s); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			switch errs[0].Field() {
			case "Name":
				return "name is required"
			case "Class":
				return "class is required"
			case "Contact":
				return "contact must be a number of at least 4 digits"
			case "ParentContact":
				return "parentContact must be a number of at least 4 digits"
			}
		}
		return "invalid student details"
	}
	if !s.Fees.IsPositive() {
		return "fees must be a positive number"
	}
	return ""
}

// UniformItem is one article on a uniform sale.
type UniformItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price,omitempty"`
}

// UniformSale records uniform articles bought by a student.
type UniformSale struct {
	ID        string        `json:"id"`
	StudentID string        `json:"studentId,omitempty"`
	Items     []UniformItem `json:"items"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Quantity counts articles on the sale; a missing quantity counts as one, and
// a sale with no itemization counts as a single article.
func (u UniformSale) Quantity() int {
	if len(u.Items) == 0 {
		return 1
	}
	total := 0
	for _, item := range u.Items {
		if item.Quantity > 0 {
			total += item.Quantity
		} else {
			total++
		}
	}
	return total
}
