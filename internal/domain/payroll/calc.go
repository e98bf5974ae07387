package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputePayslip derives payslip amounts from a salary structure.
//
//	gross = base_pay + Σ allowances
//	total_deductions = Σ fixed + Σ (percent/100 × gross)
//	net = gross - total_deductions
//
// Percent deductions all apply to the same gross base; they are never
// compounded against a running residual. A net below zero is reported via
// NegativeNet rather than clamped.
func ComputePayslip(structure SalaryStructure) Amounts {
	gross := structure.BasePay
	for _, amount := range structure.Allowances {
		gross = gross.Add(amount)
	}

	deductions := decimal.Zero
	for _, amount := range structure.DeductionsFixed {
		deductions = deductions.Add(amount)
	}
	for _, percent := range structure.DeductionsPercent {
		deductions = deductions.Add(gross.Mul(percent).Div(hundred))
	}

	net := gross.Sub(deductions)
	return Amounts{
		Gross:           gross,
		TotalDeductions: deductions,
		Net:             net,
		NegativeNet:     net.IsNegative(),
	}
}

// LeaveDeduction prices unpaid leave days at base_pay/30 per day.
func LeaveDeduction(basePay decimal.Decimal, unpaidDays int) decimal.Decimal {
	if unpaidDays <= 0 {
		return decimal.Zero
	}
	perDay := basePay.Div(decimal.NewFromInt(daysPerMonth))
	return perDay.Mul(decimal.NewFromInt(int64(unpaidDays)))
}

// ComputeRunPayslip is the orchestrator's calculator: the pure payslip amounts
// plus the pro-rata deduction for approved unpaid leave in the pay period.
// With zero unpaid days it is identical to ComputePayslip.
func ComputeRunPayslip(structure SalaryStructure, unpaidDays int) (Amounts, Snapshot) {
	amounts := ComputePayslip(structure)

	leaveDeduction := LeaveDeduction(structure.BasePay, unpaidDays)
	if leaveDeduction.IsPositive() {
		amounts.TotalDeductions = amounts.TotalDeductions.Add(leaveDeduction)
		amounts.Net = amounts.Gross.Sub(amounts.TotalDeductions)
		amounts.NegativeNet = amounts.Net.IsNegative()
	}

	snapshot := Snapshot{
		BasePay:           structure.BasePay,
		Allowances:        structure.Allowances,
		DeductionsFixed:   structure.DeductionsFixed,
		DeductionsPercent: structure.DeductionsPercent,
		UnpaidLeaveDays:   unpaidDays,
		LeaveDeduction:    leaveDeduction,
	}
	return amounts, snapshot
}

// ValidateStructure enforces the range invariants: monetary values must not be
// negative, percentages must lie in [0,100].
func ValidateStructure(structure SalaryStructure) error {
	if structure.BasePay.IsNegative() {
		return fmt.Errorf("%w: base_pay must not be negative", ErrInvalidStructure)
	}
	for name, amount := range structure.Allowances {
		if amount.IsNegative() {
			return fmt.Errorf("%w: allowance %q must not be negative", ErrInvalidStructure, name)
		}
	}
	for name, amount := range structure.DeductionsFixed {
		if amount.IsNegative() {
			return fmt.Errorf("%w: fixed deduction %q must not be negative", ErrInvalidStructure, name)
		}
	}
	for name, percent := range structure.DeductionsPercent {
		if percent.IsNegative() || percent.GreaterThan(hundred) {
			return fmt.Errorf("%w: percent deduction %q must be within [0,100]", ErrInvalidStructure, name)
		}
	}
	return nil
}
