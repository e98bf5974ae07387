package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalaryStructure is the point-in-time compensation snapshot for one employee.
// Category maps are typed decimal amounts; absent maps are treated as empty.
type SalaryStructure struct {
	EmployeeID        string                     `json:"employeeId"`
	BasePay           decimal.Decimal            `json:"basePay"`
	Allowances        map[string]decimal.Decimal `json:"allowances"`
	DeductionsFixed   map[string]decimal.Decimal `json:"deductionsFixed"`
	DeductionsPercent map[string]decimal.Decimal `json:"deductionsPercent"`
	UpdatedAt         time.Time                  `json:"updatedAt"`
}

// Amounts is the output of the payslip calculator. NegativeNet marks a
// misconfigured structure whose deductions exceed gross; the value itself is
// never clamped.
type Amounts struct {
	Gross           decimal.Decimal `json:"grossPay"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	Net             decimal.Decimal `json:"netPay"`
	NegativeNet     bool            `json:"negativeNet"`
}

// Snapshot is persisted with each payslip so the figures stay explainable
// after the salary structure changes.
type Snapshot struct {
	BasePay           decimal.Decimal            `json:"basePay"`
	Allowances        map[string]decimal.Decimal `json:"allowances,omitempty"`
	DeductionsFixed   map[string]decimal.Decimal `json:"deductionsFixed,omitempty"`
	DeductionsPercent map[string]decimal.Decimal `json:"deductionsPercent,omitempty"`
	UnpaidLeaveDays   int                        `json:"unpaidLeaveDays"`
	LeaveDeduction    decimal.Decimal            `json:"leaveDeduction"`
}

type Payslip struct {
	ID              string          `json:"id"`
	RunID           string          `json:"payrollId"`
	EmployeeID      string          `json:"employeeId"`
	EmployeeName    string          `json:"employeeName,omitempty"`
	Gross           decimal.Decimal `json:"grossPay"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	Net             decimal.Decimal `json:"netPay"`
	Snapshot        Snapshot        `json:"payDataSnapshot"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type Run struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"companyId"`
	PeriodStart time.Time `json:"payPeriodStart"`
	PeriodEnd   time.Time `json:"payPeriodEnd"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RunResult reports one orchestrated payroll run, including employees skipped
// for missing salary structures and non-fatal warnings.
type RunResult struct {
	Run           Run             `json:"run"`
	Payslips      []Payslip       `json:"payslips"`
	Skipped       []string        `json:"skippedEmployees,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	TotalGross    decimal.Decimal `json:"totalGross"`
	TotalNet      decimal.Decimal `json:"totalNet"`
	EmployeeCount int             `json:"employeeCount"`
}

type RunSummary struct {
	Run             Run             `json:"run"`
	TotalGross      decimal.Decimal `json:"totalGross"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	TotalNet        decimal.Decimal `json:"totalNet"`
	EmployeeCount   int             `json:"employeeCount"`
	NegativeNetIDs  []string        `json:"negativeNetEmployees,omitempty"`
}

// EmployeeRef is what the orchestrator needs to know about an active employee.
type EmployeeRef struct {
	ID       string
	FullName string
}
