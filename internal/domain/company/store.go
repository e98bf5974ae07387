package company

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"paycore/internal/domain/payroll"
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
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{DB: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateCompany(ctx context.Context, name string) (Company, error) {
	var c Company
	err := s.DB.QueryRow(ctx, `
    INSERT INTO companies (name) VALUES ($1)
    RETURNING id, name, created_at
  `, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

func (s *Store) GetCompany(ctx context.Context, companyID string) (Company, error) {
	var c Company
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, created_at FROM companies WHERE id = $1
  `, companyID).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	}
	return c, err
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (company_id, full_name, email, designation, is_active, joined_at)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING id, created_at
  `, emp.CompanyID, emp.FullName, emp.Email, emp.Designation, emp.IsActive, emp.JoinedAt).
		Scan(&emp.ID, &emp.CreatedAt)
	if err != nil {
		return Employee{}, err
	}
	return emp, nil
}

func (s *Store) CreateUser(ctx context.Context, companyID, email, passwordHash, role string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (company_id, email, password_hash, role)
    VALUES ($1, $2, $3, $4)
    RETURNING id
  `, companyID, email, passwordHash, role).Scan(&userID)
	return userID, err
}

func (s *Store) AttachUser(ctx context.Context, companyID, employeeID, userID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees SET user_id = $1
    WHERE company_id = $2 AND id = $3
  `, userID, companyID, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

const employeeColumns = `
    id, company_id, COALESCE(user_id::text, ''), full_name, email,
    COALESCE(designation, ''), is_active, joined_at, created_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(
		&emp.ID, &emp.CompanyID, &emp.UserID, &emp.FullName, &emp.Email,
		&emp.Designation, &emp.IsActive, &emp.JoinedAt, &emp.CreatedAt,
	)
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, companyID, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE company_id = $1 AND id = $2
  `, companyID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Store) ListEmployees(ctx context.Context, companyID string, activeOnly bool, limit, offset int) ([]Employee, int, error) {
	where := "WHERE company_id = $1"
	if activeOnly {
		where += " AND is_active"
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees "+where, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + employeeColumns + " FROM employees " + where +
		fmt.Sprintf(" ORDER BY full_name LIMIT $%d OFFSET $%d", 2, 3)
	rows, err := s.DB.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, emp)
	}
	return employees, total, rows.Err()
}

func (s *Store) UpdateEmployee(ctx context.Context, emp Employee) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET full_name = $1, email = $2, designation = $3
    WHERE company_id = $4 AND id = $5
  `, emp.FullName, emp.Email, emp.Designation, emp.CompanyID, emp.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) SetEmployeeActive(ctx context.Context, companyID, employeeID string, active bool) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees SET is_active = $1
    WHERE company_id = $2 AND id = $3
  `, active, companyID, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) EmailExists(ctx context.Context, companyID, email string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE company_id = $1 AND lower(email) = lower($2)
  `, companyID, email).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) UpsertSalaryStructure(ctx context.Context, companyID string, structure payroll.SalaryStructure) error {
	allowances, err := json.Marshal(structure.Allowances)
	if err != nil {
		return err
	}
	fixed, err := json.Marshal(structure.DeductionsFixed)
	if err != nil {
		return err
	}
	percent, err := json.Marshal(structure.DeductionsPercent)
	if err != nil {
		return err
	}

	var tag pgconn.CommandTag
	tag, err = s.DB.Exec(ctx, `
    INSERT INTO salary_structures (employee_id, base_pay, allowances, deductions_fixed, deductions_percent, updated_at)
    SELECT e.id, $3, $4, $5, $6, now()
    FROM employees e
    WHERE e.company_id = $1 AND e.id = $2
    ON CONFLICT (employee_id) DO UPDATE
    SET base_pay = EXCLUDED.base_pay,
        allowances = EXCLUDED.allowances,
        deductions_fixed = EXCLUDED.deductions_fixed,
        deductions_percent = EXCLUDED.deductions_percent,
        updated_at = now()
  `, companyID, structure.EmployeeID, structure.BasePay, allowances, fixed, percent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) GetSalaryStructure(ctx context.Context, companyID, employeeID string) (payroll.SalaryStructure, error) {
	return (&payroll.Store{DB: s.DB}).SalaryStructureFor(ctx, companyID, employeeID)
}
