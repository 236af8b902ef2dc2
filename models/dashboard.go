package models

import "github.com/shopspring/decimal"

// DashboardStats are the headline figures on the dashboard.
type DashboardStats struct {
	TotalStudents   int             `json:"totalStudents"`
	PendingInvoices int             `json:"pendingInvoices"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
}

// DashboardData is the aggregate payload the backend serves for the
// dashboard: headline stats plus the raw series the charts are built from.
type DashboardData struct {
	Stats    DashboardStats `json:"stats"`
	Students []Student      `json:"students"`
	Invoices []Invoice      `json:"invoices"`
	Uniforms []UniformSale  `json:"uniforms"`
}
