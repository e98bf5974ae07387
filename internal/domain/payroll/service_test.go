package payroll

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	employees  []EmployeeRef
	structures map[string]SalaryStructure
	unpaid     map[string]int
	runs       map[string]*Run
	payslips   []Payslip
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		structures: make(map[string]SalaryStructure),
		unpaid:     make(map[string]int),
		runs:       make(map[string]*Run),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) InTx(ctx context.Context, fn func(StoreAPI) error) error {
	return fn(f)
}

func (f *fakeStore) RunExists(ctx context.Context, companyID string, start, end time.Time) (bool, error) {
	for _, run := range f.runs {
		if run.PeriodStart.Equal(start) && run.PeriodEnd.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateRun(ctx context.Context, companyID string, start, end time.Time, status, createdBy string) (Run, error) {
	run := Run{
		ID:          f.id("run"),
		CompanyID:   companyID,
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      status,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
	f.runs[run.ID] = &run
	return run, nil
}

func (f *fakeStore) SetRunStatus(ctx context.Context, companyID, runID, status string) error {
	run, ok := f.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	return nil
}

func (f *fakeStore) GetRun(ctx context.Context, companyID, runID string) (Run, error) {
	run, ok := f.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return *run, nil
}

func (f *fakeStore) ListRuns(ctx context.Context, companyID string, limit, offset int) ([]Run, int, error) {
	var runs []Run
	for _, run := range f.runs {
		runs = append(runs, *run)
	}
	return runs, len(runs), nil
}

func (f *fakeStore) ListActiveEmployees(ctx context.Context, companyID string) ([]EmployeeRef, error) {
	return f.employees, nil
}

func (f *fakeStore) SalaryStructureFor(ctx context.Context, companyID, employeeID string) (SalaryStructure, error) {
	structure, ok := f.structures[employeeID]
	if !ok {
		return SalaryStructure{}, ErrNoSalaryStructure
	}
	return structure, nil
}

func (f *fakeStore) ApprovedUnpaidLeaveDays(ctx context.Context, companyID string, start, end time.Time) (map[string]int, error) {
	return f.unpaid, nil
}

func (f *fakeStore) InsertPayslip(ctx context.Context, companyID string, payslip Payslip) (Payslip, error) {
	payslip.ID = f.id("slip")
	payslip.CreatedAt = time.Now()
	f.payslips = append(f.payslips, payslip)
	return payslip, nil
}

func (f *fakeStore) ListPayslipsForRun(ctx context.Context, companyID, runID string) ([]Payslip, error) {
	var out []Payslip
	for _, p := range f.payslips {
		if p.RunID == runID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPayslipsForEmployee(ctx context.Context, companyID, employeeID string, limit, offset int) ([]Payslip, int, error) {
	var out []Payslip
	for _, p := range f.payslips {
		if p.EmployeeID == employeeID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) GetPayslip(ctx context.Context, companyID, payslipID string) (Payslip, error) {
	for _, p := range f.payslips {
		if p.ID == payslipID {
			return p, nil
		}
	}
	return Payslip{}, ErrPayslipNotFound
}

func (f *fakeStore) PayslipPDFData(ctx context.Context, companyID, payslipID string) (PDFData, error) {
	payslip, err := f.GetPayslip(ctx, companyID, payslipID)
	if err != nil {
		return PDFData{}, err
	}
	return PDFData{
		Payslip:      payslip,
		EmployeeName: payslip.EmployeeName,
		CompanyName:  "Acme",
		PeriodStart:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}, nil
}

func period() (time.Time, time.Time) {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
}

func TestRunPayrollSkipsEmployeesWithoutStructure(t *testing.T) {
	store := newFakeStore()
	store.employees = []EmployeeRef{
		{ID: "emp-1", FullName: "Ada"},
		{ID: "emp-2", FullName: "Ben"},
		{ID: "emp-3", FullName: "Cal"},
	}
	store.structures["emp-1"] = SalaryStructure{BasePay: dec("1000")}
	store.structures["emp-3"] = SalaryStructure{BasePay: dec("2000")}

	svc := NewService(store)
	start, end := period()
	result, err := svc.RunPayroll(context.Background(), "co-1", start, end, "admin-1")
	require.NoError(t, err)

	require.Len(t, result.Payslips, 2)
	require.Equal(t, []string{"emp-2"}, result.Skipped)
	require.Contains(t, result.Warnings, "missing_salary_structure: emp-2")
	require.Equal(t, StatusProcessed, result.Run.Status)
	require.True(t, result.TotalGross.Equal(dec("3000")))
	require.Equal(t, 2, result.EmployeeCount)
}

func TestRunPayrollDuplicatePeriodWarns(t *testing.T) {
	store := newFakeStore()
	store.employees = []EmployeeRef{{ID: "emp-1", FullName: "Ada"}}
	store.structures["emp-1"] = SalaryStructure{BasePay: dec("1000")}

	svc := NewService(store)
	start, end := period()

	first, err := svc.RunPayroll(context.Background(), "co-1", start, end, "admin-1")
	require.NoError(t, err)
	require.NotContains(t, first.Warnings, WarningDuplicatePeriod)

	second, err := svc.RunPayroll(context.Background(), "co-1", start, end, "admin-1")
	require.NoError(t, err)
	require.Contains(t, second.Warnings, WarningDuplicatePeriod)
	require.NotEqual(t, first.Run.ID, second.Run.ID, "duplicate runs stay independent")
}

func TestRunPayrollAppliesUnpaidLeaveDeduction(t *testing.T) {
	store := newFakeStore()
	store.employees = []EmployeeRef{{ID: "emp-1", FullName: "Ada"}}
	store.structures["emp-1"] = SalaryStructure{BasePay: dec("30000")}
	store.unpaid["emp-1"] = 3

	svc := NewService(store)
	start, end := period()
	result, err := svc.RunPayroll(context.Background(), "co-1", start, end, "admin-1")
	require.NoError(t, err)

	require.Len(t, result.Payslips, 1)
	slip := result.Payslips[0]
	require.True(t, slip.TotalDeductions.Equal(dec("3000")))
	require.True(t, slip.Net.Equal(dec("27000")))
	require.Equal(t, 3, slip.Snapshot.UnpaidLeaveDays)
}

func TestRunPayrollNegativeNetWarns(t *testing.T) {
	store := newFakeStore()
	store.employees = []EmployeeRef{{ID: "emp-1", FullName: "Ada"}}
	store.structures["emp-1"] = SalaryStructure{
		BasePay:         dec("1000"),
		DeductionsFixed: map[string]decimal.Decimal{"loan": dec("1500")},
	}

	svc := NewService(store)
	start, end := period()
	result, err := svc.RunPayroll(context.Background(), "co-1", start, end, "admin-1")
	require.NoError(t, err)

	require.Contains(t, result.Warnings, "negative_net: emp-1")
	require.True(t, result.Payslips[0].Net.Equal(dec("-500")))
}

func TestRunPayrollInvalidPeriod(t *testing.T) {
	svc := NewService(newFakeStore())
	start, end := period()
	_, err := svc.RunPayroll(context.Background(), "co-1", end, start, "admin-1")
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestRunPayrollNoEmployees(t *testing.T) {
	svc := NewService(newFakeStore())
	start, end := period()
	_, err := svc.RunPayroll(context.Background(), "co-1", start, end, "admin-1")
	require.ErrorIs(t, err, ErrNoEmployees)
}

func TestUpdateStatusForwardOnly(t *testing.T) {
	store := newFakeStore()
	store.employees = []EmployeeRef{{ID: "emp-1", FullName: "Ada"}}
	store.structures["emp-1"] = SalaryStructure{BasePay: dec("1000")}

	svc := NewService(store)
	start, end := period()
	result, err := svc.RunPayroll(context.Background(), "co-1", start, end, "admin-1")
	require.NoError(t, err)
	runID := result.Run.ID

	run, err := svc.UpdateStatus(context.Background(), "co-1", runID, StatusPaid)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, run.Status)

	_, err = svc.UpdateStatus(context.Background(), "co-1", runID, StatusDraft)
	require.ErrorIs(t, err, ErrInvalidStatusChange)

	_, err = svc.UpdateStatus(context.Background(), "co-1", runID, StatusPaid)
	require.ErrorIs(t, err, ErrInvalidStatusChange)
}

func TestRunDetailsTotals(t *testing.T) {
	store := newFakeStore()
	store.employees = []EmployeeRef{
		{ID: "emp-1", FullName: "Ada"},
		{ID: "emp-2", FullName: "Ben"},
	}
	store.structures["emp-1"] = SalaryStructure{BasePay: dec("1000")}
	store.structures["emp-2"] = SalaryStructure{
		BasePay:         dec("500"),
		DeductionsFixed: map[string]decimal.Decimal{"loan": dec("800")},
	}

	svc := NewService(store)
	start, end := period()
	result, err := svc.RunPayroll(context.Background(), "co-1", start, end, "admin-1")
	require.NoError(t, err)

	summary, payslips, err := svc.RunDetails(context.Background(), "co-1", result.Run.ID)
	require.NoError(t, err)
	require.Len(t, payslips, 2)
	require.True(t, summary.TotalGross.Equal(dec("1500")))
	require.True(t, summary.TotalNet.Equal(dec("700")))
	require.Equal(t, []string{"emp-2"}, summary.NegativeNetIDs)
}

func TestRenderPayslipPDF(t *testing.T) {
	store := newFakeStore()
	store.employees = []EmployeeRef{{ID: "emp-1", FullName: "Ada"}}
	store.structures["emp-1"] = sampleStructure()

	svc := NewService(store)
	start, end := period()
	result, err := svc.RunPayroll(context.Background(), "co-1", start, end, "admin-1")
	require.NoError(t, err)

	pdfBytes, filename, err := svc.RenderPayslipPDF(context.Background(), "co-1", result.Payslips[0].ID)
	require.NoError(t, err)
	require.Equal(t, "payslip_2025_03.pdf", filename)
	require.True(t, len(pdfBytes) > 4 && string(pdfBytes[:4]) == "%PDF")
}
