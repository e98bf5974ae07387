package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paycore/internal/platform/querier"
)

type Store struct {
	DB   querier.Querier
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool, pool: pool}
}

func (s *Store) InTx(ctx context.Context, fn func(StoreAPI) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Store{DB: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) RunExists(ctx context.Context, companyID string, periodStart, periodEnd time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM payrolls
      WHERE company_id = $1 AND pay_period_start = $2 AND pay_period_end = $3
    )
  `, companyID, periodStart, periodEnd).Scan(&exists)
	return exists, err
}

func (s *Store) CreateRun(ctx context.Context, companyID string, periodStart, periodEnd time.Time, status, createdBy string) (Run, error) {
	run := Run{
		CompanyID:   companyID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      status,
		CreatedBy:   createdBy,
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payrolls (company_id, pay_period_start, pay_period_end, status, created_by)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id, created_at
  `, companyID, periodStart, periodEnd, status, createdBy).Scan(&run.ID, &run.CreatedAt)
	return run, err
}

func (s *Store) SetRunStatus(ctx context.Context, companyID, runID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payrolls SET status = $1 WHERE company_id = $2 AND id = $3
  `, status, companyID, runID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, companyID, runID string) (Run, error) {
	var run Run
	err := s.DB.QueryRow(ctx, `
    SELECT id, company_id, pay_period_start, pay_period_end, status, created_by, created_at
    FROM payrolls
    WHERE company_id = $1 AND id = $2
  `, companyID, runID).Scan(&run.ID, &run.CompanyID, &run.PeriodStart, &run.PeriodEnd, &run.Status, &run.CreatedBy, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

func (s *Store) ListRuns(ctx context.Context, companyID string, limit, offset int) ([]Run, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM payrolls WHERE company_id = $1
  `, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, company_id, pay_period_start, pay_period_end, status, created_by, created_at
    FROM payrolls
    WHERE company_id = $1
    ORDER BY pay_period_start DESC, created_at DESC
    LIMIT $2 OFFSET $3
  `, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.CompanyID, &run.PeriodStart, &run.PeriodEnd, &run.Status, &run.CreatedBy, &run.CreatedAt); err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (s *Store) ListActiveEmployees(ctx context.Context, companyID string) ([]EmployeeRef, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, full_name
    FROM employees
    WHERE company_id = $1 AND is_active
    ORDER BY full_name
  `, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []EmployeeRef
	for rows.Next() {
		var emp EmployeeRef
		if err := rows.Scan(&emp.ID, &emp.FullName); err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func (s *Store) SalaryStructureFor(ctx context.Context, companyID, employeeID string) (SalaryStructure, error) {
	structure := SalaryStructure{EmployeeID: employeeID}
	var allowances, fixed, percent []byte
	err := s.DB.QueryRow(ctx, `
    SELECT ss.base_pay, ss.allowances, ss.deductions_fixed, ss.deductions_percent, ss.updated_at
    FROM salary_structures ss
    JOIN employees e ON e.id = ss.employee_id
    WHERE e.company_id = $1 AND ss.employee_id = $2
  `, companyID, employeeID).Scan(&structure.BasePay, &allowances, &fixed, &percent, &structure.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalaryStructure{}, ErrNoSalaryStructure
	}
	if err != nil {
		return SalaryStructure{}, err
	}

	if err := unmarshalAmounts(allowances, &structure.Allowances); err != nil {
		return SalaryStructure{}, err
	}
	if err := unmarshalAmounts(fixed, &structure.DeductionsFixed); err != nil {
		return SalaryStructure{}, err
	}
	if err := unmarshalAmounts(percent, &structure.DeductionsPercent); err != nil {
		return SalaryStructure{}, err
	}
	return structure, nil
}

func unmarshalAmounts(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

func (s *Store) ApprovedUnpaidLeaveDays(ctx context.Context, companyID string, periodStart, periodEnd time.Time) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, SUM(days_requested)
    FROM leave_requests
    WHERE company_id = $1 AND status = 'approved' AND leave_type = 'unpaid'
      AND start_date >= $2 AND end_date <= $3
    GROUP BY employee_id
  `, companyID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make(map[string]int)
	for rows.Next() {
		var employeeID string
		var total int
		if err := rows.Scan(&employeeID, &total); err != nil {
			return nil, err
		}
		days[employeeID] = total
	}
	return days, rows.Err()
}

func (s *Store) InsertPayslip(ctx context.Context, companyID string, payslip Payslip) (Payslip, error) {
	snapshotJSON, err := json.Marshal(payslip.Snapshot)
	if err != nil {
		return Payslip{}, err
	}
	err = s.DB.QueryRow(ctx, `
    INSERT INTO payslips (payroll_id, employee_id, gross_pay, total_deductions, net_pay, pay_data_snapshot)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id, created_at
  `, payslip.RunID, payslip.EmployeeID, payslip.Gross, payslip.TotalDeductions, payslip.Net, snapshotJSON).Scan(&payslip.ID, &payslip.CreatedAt)
	return payslip, err
}

func (s *Store) ListPayslipsForRun(ctx context.Context, companyID, runID string) ([]Payslip, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.payroll_id, p.employee_id, e.full_name, p.gross_pay, p.total_deductions, p.net_pay, p.pay_data_snapshot, p.created_at
    FROM payslips p
    JOIN payrolls r ON r.id = p.payroll_id
    JOIN employees e ON e.id = p.employee_id
    WHERE r.company_id = $1 AND p.payroll_id = $2
    ORDER BY e.full_name
  `, companyID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayslips(rows)
}

func (s *Store) ListPayslipsForEmployee(ctx context.Context, companyID, employeeID string, limit, offset int) ([]Payslip, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM payslips p
    JOIN payrolls r ON r.id = p.payroll_id
    WHERE r.company_id = $1 AND p.employee_id = $2
  `, companyID, employeeID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.payroll_id, p.employee_id, e.full_name, p.gross_pay, p.total_deductions, p.net_pay, p.pay_data_snapshot, p.created_at
    FROM payslips p
    JOIN payrolls r ON r.id = p.payroll_id
    JOIN employees e ON e.id = p.employee_id
    WHERE r.company_id = $1 AND p.employee_id = $2
    ORDER BY r.pay_period_start DESC
    LIMIT $3 OFFSET $4
  `, companyID, employeeID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payslips, err := scanPayslips(rows)
	return payslips, total, err
}

func (s *Store) GetPayslip(ctx context.Context, companyID, payslipID string) (Payslip, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.payroll_id, p.employee_id, e.full_name, p.gross_pay, p.total_deductions, p.net_pay, p.pay_data_snapshot, p.created_at
    FROM payslips p
    JOIN payrolls r ON r.id = p.payroll_id
    JOIN employees e ON e.id = p.employee_id
    WHERE r.company_id = $1 AND p.id = $2
  `, companyID, payslipID)
	if err != nil {
		return Payslip{}, err
	}
	defer rows.Close()

	payslips, err := scanPayslips(rows)
	if err != nil {
		return Payslip{}, err
	}
	if len(payslips) == 0 {
		return Payslip{}, ErrPayslipNotFound
	}
	return payslips[0], nil
}

func (s *Store) PayslipPDFData(ctx context.Context, companyID, payslipID string) (PDFData, error) {
	payslip, err := s.GetPayslip(ctx, companyID, payslipID)
	if err != nil {
		return PDFData{}, err
	}

	var data PDFData
	data.Payslip = payslip
	err = s.DB.QueryRow(ctx, `
    SELECT e.full_name, COALESCE(e.designation, ''), c.name, r.pay_period_start, r.pay_period_end
    FROM payslips p
    JOIN payrolls r ON r.id = p.payroll_id
    JOIN employees e ON e.id = p.employee_id
    JOIN companies c ON c.id = r.company_id
    WHERE p.id = $1
  `, payslipID).Scan(&data.EmployeeName, &data.Designation, &data.CompanyName, &data.PeriodStart, &data.PeriodEnd)
	if err != nil {
		return PDFData{}, err
	}
	return data, nil
}

func scanPayslips(rows pgx.Rows) ([]Payslip, error) {
	var payslips []Payslip
	for rows.Next() {
		var p Payslip
		var snapshot []byte
		if err := rows.Scan(&p.ID, &p.RunID, &p.EmployeeID, &p.EmployeeName, &p.Gross, &p.TotalDeductions, &p.Net, &snapshot, &p.CreatedAt); err != nil {
			return nil, err
		}
		if len(snapshot) > 0 {
			if err := json.Unmarshal(snapshot, &p.Snapshot); err != nil {
				return nil, err
			}
		}
		payslips = append(payslips, p)
	}
	return payslips, rows.Err()
}
