package leave

import (
	"context"
	"errors"
	"fmt"
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

func (s *Store) LockCompany(ctx context.Context, companyID string) error {
	_, err := s.DB.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", companyID)
	return err
}

func (s *Store) ListPeriods(ctx context.Context, companyID string) ([]Period, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, company_id, name, start_date, end_date, is_active, created_at
    FROM leave_periods
    WHERE company_id = $1
    ORDER BY start_date DESC
  `, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.StartDate, &p.EndDate, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (s *Store) CreatePeriod(ctx context.Context, companyID, name string, start, end time.Time, isActive bool) (Period, error) {
	period := Period{
		CompanyID: companyID,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		IsActive:  isActive,
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_periods (company_id, name, start_date, end_date, is_active)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id, created_at
  `, companyID, name, start, end, isActive).Scan(&period.ID, &period.CreatedAt)
	return period, err
}

func (s *Store) SetPeriodActive(ctx context.Context, companyID, periodID string, active bool) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_periods SET is_active = $1 WHERE company_id = $2 AND id = $3
  `, active, companyID, periodID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

func (s *Store) HasActivePeriod(ctx context.Context, companyID string) (bool, error) {
	var active bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM leave_periods WHERE company_id = $1 AND is_active)
  `, companyID).Scan(&active)
	return active, err
}

func (s *Store) ContainerPeriodID(ctx context.Context, companyID string, asOf time.Time) (string, error) {
	var periodID string
	// Prefer the period covering asOf, fall back to the most recent one.
	err := s.DB.QueryRow(ctx, `
    SELECT id FROM leave_periods
    WHERE company_id = $1 AND NOT is_active
    ORDER BY (start_date <= $2 AND end_date >= $2) DESC, start_date DESC
    LIMIT 1
  `, companyID, asOf).Scan(&periodID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoContainerPeriod
	}
	return periodID, err
}

func (s *Store) InsertRequest(ctx context.Context, request Request) (Request, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (company_id, employee_id, leave_period_id, start_date, end_date, days_requested, leave_type, reason, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id, created_at
  `, request.CompanyID, request.EmployeeID, request.PeriodID, request.StartDate, request.EndDate,
		request.Days, request.Type, request.Reason, request.Status).Scan(&request.ID, &request.CreatedAt)
	return request, err
}

const requestColumns = `
  id, company_id, employee_id, leave_period_id, start_date, end_date,
  days_requested, leave_type, COALESCE(reason, ''), status,
  COALESCE(approved_by::text, ''), approved_at, created_at
`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.CompanyID, &req.EmployeeID, &req.PeriodID, &req.StartDate, &req.EndDate,
		&req.Days, &req.Type, &req.Reason, &req.Status, &req.ApprovedBy, &req.ApprovedAt, &req.CreatedAt)
	return req, err
}

func (s *Store) GetRequest(ctx context.Context, companyID, requestID string) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE company_id = $1 AND id = $2
  `, companyID, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrRequestNotFound
	}
	return req, err
}

func (s *Store) GetRequestForUpdate(ctx context.Context, companyID, requestID string) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE company_id = $1 AND id = $2
    FOR UPDATE
  `, companyID, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrRequestNotFound
	}
	return req, err
}

func (s *Store) ListRequests(ctx context.Context, companyID, employeeID string, limit, offset int) ([]Request, int, error) {
	where := "WHERE company_id = $1"
	args := []any{companyID}
	if employeeID != "" {
		where += " AND employee_id = $2"
		args = append(args, employeeID)
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + requestColumns + " FROM leave_requests " + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

func (s *Store) MarkResolved(ctx context.Context, companyID, requestID, status, approverID string, at time.Time) error {
	// Compare-and-swap on the pending status: a concurrent resolver loses here.
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $1, approved_by = $2, approved_at = $3
    WHERE company_id = $4 AND id = $5 AND status = $6
  `, status, approverID, at, companyID, requestID, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

func (s *Store) AddLeavesTaken(ctx context.Context, companyID, employeeID, periodID string, days int) (Balance, error) {
	var balance Balance
	err := s.DB.QueryRow(ctx, `
    UPDATE employee_leave_balances
    SET leaves_taken = leaves_taken + $1, updated_at = now()
    WHERE company_id = $2 AND employee_id = $3 AND leave_period_id = $4
    RETURNING id, employee_id, leave_period_id, total_granted, leaves_taken
  `, days, companyID, employeeID, periodID).Scan(&balance.ID, &balance.EmployeeID, &balance.PeriodID, &balance.TotalGranted, &balance.LeavesTaken)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrBalanceNotFound
	}
	return balance, err
}

func (s *Store) ListBalances(ctx context.Context, companyID, employeeID string) ([]Balance, error) {
	where := "WHERE company_id = $1"
	args := []any{companyID}
	if employeeID != "" {
		where += " AND employee_id = $2"
		args = append(args, employeeID)
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, leave_period_id, total_granted, leaves_taken
    FROM employee_leave_balances `+where+`
    ORDER BY employee_id
  `, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.PeriodID, &b.TotalGranted, &b.LeavesTaken); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *Store) GrantBalance(ctx context.Context, companyID, employeeID, periodID string, totalGranted int) (Balance, error) {
	var balance Balance
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employee_leave_balances (company_id, employee_id, leave_period_id, total_granted, leaves_taken)
    VALUES ($1,$2,$3,$4,0)
    ON CONFLICT (employee_id, leave_period_id)
    DO UPDATE SET total_granted = EXCLUDED.total_granted, updated_at = now()
    RETURNING id, employee_id, leave_period_id, total_granted, leaves_taken
  `, companyID, employeeID, periodID, totalGranted).Scan(&balance.ID, &balance.EmployeeID, &balance.PeriodID, &balance.TotalGranted, &balance.LeavesTaken)
	return balance, err
}
