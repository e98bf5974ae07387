package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

var statusTransitions = map[string]string{
	StatusDraft:     StatusProcessed,
	StatusProcessed: StatusPaid,
}

// RunPayroll executes one payroll run: one payrolls row plus a payslip per
// active employee with a salary structure. Employees without a structure are
// skipped and reported, never fatal. A run over a period that already has a
// run is allowed but flagged with a duplicate_period warning.
func (s *Service) RunPayroll(ctx context.Context, companyID string, periodStart, periodEnd time.Time, initiatorID string) (RunResult, error) {
	if periodEnd.Before(periodStart) {
		return RunResult{}, ErrInvalidPeriod
	}

	result := RunResult{TotalGross: decimal.Zero, TotalNet: decimal.Zero}

	duplicate, err := s.Store.RunExists(ctx, companyID, periodStart, periodEnd)
	if err != nil {
		return RunResult{}, err
	}
	if duplicate {
		result.Warnings = append(result.Warnings, WarningDuplicatePeriod)
	}

	err = s.Store.InTx(ctx, func(st StoreAPI) error {
		employees, err := st.ListActiveEmployees(ctx, companyID)
		if err != nil {
			return err
		}
		if len(employees) == 0 {
			return ErrNoEmployees
		}

		run, err := st.CreateRun(ctx, companyID, periodStart, periodEnd, StatusDraft, initiatorID)
		if err != nil {
			return err
		}

		unpaidDays, err := st.ApprovedUnpaidLeaveDays(ctx, companyID, periodStart, periodEnd)
		if err != nil {
			return err
		}

		for _, emp := range employees {
			structure, err := st.SalaryStructureFor(ctx, companyID, emp.ID)
			if errors.Is(err, ErrNoSalaryStructure) {
				result.Skipped = append(result.Skipped, emp.ID)
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", WarningMissingSalary, emp.ID))
				continue
			}
			if err != nil {
				return err
			}

			amounts, snapshot := ComputeRunPayslip(structure, unpaidDays[emp.ID])
			if amounts.NegativeNet {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", WarningNegativeNet, emp.ID))
			}

			payslip, err := st.InsertPayslip(ctx, companyID, Payslip{
				RunID:           run.ID,
				EmployeeID:      emp.ID,
				EmployeeName:    emp.FullName,
				Gross:           amounts.Gross,
				TotalDeductions: amounts.TotalDeductions,
				Net:             amounts.Net,
				Snapshot:        snapshot,
			})
			if err != nil {
				return err
			}

			result.Payslips = append(result.Payslips, payslip)
			result.TotalGross = result.TotalGross.Add(amounts.Gross)
			result.TotalNet = result.TotalNet.Add(amounts.Net)
		}

		if len(result.Payslips) > 0 {
			if err := st.SetRunStatus(ctx, companyID, run.ID, StatusProcessed); err != nil {
				return err
			}
			run.Status = StatusProcessed
		}

		result.Run = run
		result.EmployeeCount = len(result.Payslips)
		return nil
	})
	if err != nil {
		return RunResult{}, err
	}
	return result, nil
}

func (s *Service) GetRun(ctx context.Context, companyID, runID string) (Run, error) {
	return s.Store.GetRun(ctx, companyID, runID)
}

func (s *Service) ListRuns(ctx context.Context, companyID string, limit, offset int) ([]Run, int, error) {
	return s.Store.ListRuns(ctx, companyID, limit, offset)
}

// RunDetails returns the run, its payslips and aggregate totals.
func (s *Service) RunDetails(ctx context.Context, companyID, runID string) (RunSummary, []Payslip, error) {
	run, err := s.Store.GetRun(ctx, companyID, runID)
	if err != nil {
		return RunSummary{}, nil, err
	}
	payslips, err := s.Store.ListPayslipsForRun(ctx, companyID, runID)
	if err != nil {
		return RunSummary{}, nil, err
	}

	summary := RunSummary{
		Run:             run,
		TotalGross:      decimal.Zero,
		TotalDeductions: decimal.Zero,
		TotalNet:        decimal.Zero,
		EmployeeCount:   len(payslips),
	}
	for _, p := range payslips {
		summary.TotalGross = summary.TotalGross.Add(p.Gross)
		summary.TotalDeductions = summary.TotalDeductions.Add(p.TotalDeductions)
		summary.TotalNet = summary.TotalNet.Add(p.Net)
		if p.Net.IsNegative() {
			summary.NegativeNetIDs = append(summary.NegativeNetIDs, p.EmployeeID)
		}
	}
	return summary, payslips, nil
}

// UpdateStatus moves a run forward along draft → processed → paid.
func (s *Service) UpdateStatus(ctx context.Context, companyID, runID, next string) (Run, error) {
	run, err := s.Store.GetRun(ctx, companyID, runID)
	if err != nil {
		return Run{}, err
	}
	if statusTransitions[run.Status] != next {
		return Run{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, run.Status, next)
	}
	if err := s.Store.SetRunStatus(ctx, companyID, runID, next); err != nil {
		return Run{}, err
	}
	run.Status = next
	return run, nil
}

func (s *Service) ListEmployeePayslips(ctx context.Context, companyID, employeeID string, limit, offset int) ([]Payslip, int, error) {
	return s.Store.ListPayslipsForEmployee(ctx, companyID, employeeID, limit, offset)
}

func (s *Service) GetPayslip(ctx context.Context, companyID, payslipID string) (Payslip, error) {
	return s.Store.GetPayslip(ctx, companyID, payslipID)
}

// PreviewPayslip computes payslip amounts for one employee's current salary
// structure without persisting anything.
func (s *Service) PreviewPayslip(ctx context.Context, companyID, employeeID string) (Amounts, error) {
	structure, err := s.Store.SalaryStructureFor(ctx, companyID, employeeID)
	if err != nil {
		return Amounts{}, err
	}
	return ComputePayslip(structure), nil
}
