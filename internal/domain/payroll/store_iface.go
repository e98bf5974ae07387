package payroll

import (
	"context"
	"time"
)

// StoreAPI is the persistence surface the payroll service depends on.
// Implemented by *Store over pgx; faked in service tests.
type StoreAPI interface {
	// InTx runs fn against a transaction-scoped store. The transaction commits
	// only if fn returns nil.
	InTx(ctx context.Context, fn func(StoreAPI) error) error

	RunExists(ctx context.Context, companyID string, periodStart, periodEnd time.Time) (bool, error)
	CreateRun(ctx context.Context, companyID string, periodStart, periodEnd time.Time, status, createdBy string) (Run, error)
	SetRunStatus(ctx context.Context, companyID, runID, status string) error
	GetRun(ctx context.Context, companyID, runID string) (Run, error)
	ListRuns(ctx context.Context, companyID string, limit, offset int) ([]Run, int, error)

	ListActiveEmployees(ctx context.Context, companyID string) ([]EmployeeRef, error)
	SalaryStructureFor(ctx context.Context, companyID, employeeID string) (SalaryStructure, error)
	ApprovedUnpaidLeaveDays(ctx context.Context, companyID string, periodStart, periodEnd time.Time) (map[string]int, error)

	InsertPayslip(ctx context.Context, companyID string, payslip Payslip) (Payslip, error)
	ListPayslipsForRun(ctx context.Context, companyID, runID string) ([]Payslip, error)
	ListPayslipsForEmployee(ctx context.Context, companyID, employeeID string, limit, offset int) ([]Payslip, int, error)
	GetPayslip(ctx context.Context, companyID, payslipID string) (Payslip, error)
	PayslipPDFData(ctx context.Context, companyID, payslipID string) (PDFData, error)
}

// PDFData carries everything the payslip renderer needs.
type PDFData struct {
	Payslip      Payslip
	EmployeeName string
	Designation  string
	CompanyName  string
	PeriodStart  time.Time
	PeriodEnd    time.Time
}
