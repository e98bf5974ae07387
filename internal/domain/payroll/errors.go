package payroll

import "errors"

var (
	ErrInvalidPeriod       = errors.New("pay period end before start")
	ErrInvalidStructure    = errors.New("invalid salary structure")
	ErrRunNotFound         = errors.New("payroll run not found")
	ErrPayslipNotFound     = errors.New("payslip not found")
	ErrNoSalaryStructure   = errors.New("employee has no salary structure")
	ErrInvalidStatusChange = errors.New("invalid payroll status transition")
	ErrNoEmployees         = errors.New("no active employees for payroll run")
)
