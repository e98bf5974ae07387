package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func sampleStructure() SalaryStructure {
	return SalaryStructure{
		BasePay: dec("50000"),
		Allowances: map[string]decimal.Decimal{
			"hra":       dec("10000"),
			"transport": dec("2000"),
		},
		DeductionsFixed: map[string]decimal.Decimal{
			"pf": dec("1800"),
		},
		DeductionsPercent: map[string]decimal.Decimal{
			"insurance": dec("2"),
		},
	}
}

func TestComputePayslip(t *testing.T) {
	amounts := ComputePayslip(sampleStructure())

	require.True(t, amounts.Gross.Equal(dec("62000")), "gross = %s", amounts.Gross)
	require.True(t, amounts.TotalDeductions.Equal(dec("3040")), "deductions = %s", amounts.TotalDeductions)
	require.True(t, amounts.Net.Equal(dec("58960")), "net = %s", amounts.Net)
	require.False(t, amounts.NegativeNet)
}

func TestComputePayslipEmptyMaps(t *testing.T) {
	amounts := ComputePayslip(SalaryStructure{BasePay: dec("1000")})

	require.True(t, amounts.Gross.Equal(dec("1000")))
	require.True(t, amounts.TotalDeductions.IsZero())
	require.True(t, amounts.Net.Equal(dec("1000")))
}

func TestComputePayslipIdempotent(t *testing.T) {
	structure := sampleStructure()
	first := ComputePayslip(structure)
	second := ComputePayslip(structure)

	require.Equal(t, first.Gross.String(), second.Gross.String())
	require.Equal(t, first.TotalDeductions.String(), second.TotalDeductions.String())
	require.Equal(t, first.Net.String(), second.Net.String())
}

func TestComputePayslipNegativeNetFlagged(t *testing.T) {
	amounts := ComputePayslip(SalaryStructure{
		BasePay: dec("1000"),
		DeductionsFixed: map[string]decimal.Decimal{
			"loan": dec("1500"),
		},
	})

	require.True(t, amounts.NegativeNet)
	require.True(t, amounts.Net.Equal(dec("-500")), "net must not be clamped, got %s", amounts.Net)
}

func TestPercentDeductionsApplyToGrossNotResidual(t *testing.T) {
	amounts := ComputePayslip(SalaryStructure{
		BasePay: dec("1000"),
		DeductionsPercent: map[string]decimal.Decimal{
			"a": dec("10"),
			"b": dec("10"),
		},
	})

	// 10% + 10% of the same 1000 base, not 10% of 900.
	require.True(t, amounts.TotalDeductions.Equal(dec("200")), "deductions = %s", amounts.TotalDeductions)
}

func TestLeaveDeduction(t *testing.T) {
	require.True(t, LeaveDeduction(dec("30000"), 3).Equal(dec("3000")))
	require.True(t, LeaveDeduction(dec("30000"), 0).IsZero())
	require.True(t, LeaveDeduction(dec("30000"), -1).IsZero())
}

func TestComputeRunPayslipUnpaidLeave(t *testing.T) {
	structure := SalaryStructure{BasePay: dec("30000")}
	amounts, snapshot := ComputeRunPayslip(structure, 2)

	require.True(t, amounts.Gross.Equal(dec("30000")))
	require.True(t, amounts.TotalDeductions.Equal(dec("2000")))
	require.True(t, amounts.Net.Equal(dec("28000")))
	require.Equal(t, 2, snapshot.UnpaidLeaveDays)
	require.True(t, snapshot.LeaveDeduction.Equal(dec("2000")))
}

func TestComputeRunPayslipNoUnpaidLeaveMatchesPure(t *testing.T) {
	structure := sampleStructure()
	pure := ComputePayslip(structure)
	amounts, snapshot := ComputeRunPayslip(structure, 0)

	require.Equal(t, pure.Net.String(), amounts.Net.String())
	require.True(t, snapshot.LeaveDeduction.IsZero())
}

func TestValidateStructure(t *testing.T) {
	require.NoError(t, ValidateStructure(sampleStructure()))

	bad := sampleStructure()
	bad.BasePay = dec("-1")
	require.ErrorIs(t, ValidateStructure(bad), ErrInvalidStructure)

	bad = sampleStructure()
	bad.Allowances["hra"] = dec("-5")
	require.ErrorIs(t, ValidateStructure(bad), ErrInvalidStructure)

	bad = sampleStructure()
	bad.DeductionsPercent["insurance"] = dec("101")
	require.ErrorIs(t, ValidateStructure(bad), ErrInvalidStructure)

	bad = sampleStructure()
	bad.DeductionsPercent["insurance"] = dec("100")
	require.NoError(t, ValidateStructure(bad))
}
