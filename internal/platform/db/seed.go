package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"paycore/internal/domain/auth"
	"paycore/internal/platform/config"
)

// Seed provisions the first company, its admin account and a container leave
// period for the current year. Safe to run repeatedly.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	adminEmail := strings.TrimSpace(cfg.SeedAdminEmail)
	adminPassword := cfg.SeedAdminPassword
	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	var companyID string
	err := pool.QueryRow(ctx, "SELECT id FROM companies WHERE name = $1", cfg.SeedCompanyName).Scan(&companyID)
	if err != nil {
		if err := pool.QueryRow(ctx, `
      INSERT INTO companies (name) VALUES ($1) RETURNING id
    `, cfg.SeedCompanyName).Scan(&companyID); err != nil {
			return fmt.Errorf("seed company: %w", err)
		}
	}

	var userExists bool
	if err := pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", adminEmail).Scan(&userExists); err != nil {
		return err
	}
	if !userExists {
		hash, err := auth.HashPassword(adminPassword)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, `
      INSERT INTO users (company_id, email, password_hash, role)
      VALUES ($1, $2, $3, $4)
    `, companyID, adminEmail, hash, auth.RoleAdmin); err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
	}

	// Container period covering the current year; requests are filed against it.
	year := time.Now().UTC().Year()
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if _, err := pool.Exec(ctx, `
    INSERT INTO leave_periods (company_id, name, start_date, end_date, is_active)
    SELECT $1, $2, $3, $4, false
    WHERE NOT EXISTS (
      SELECT 1 FROM leave_periods WHERE company_id = $1 AND start_date = $3 AND end_date = $4
    )
  `, companyID, fmt.Sprintf("Leave Year %d", year), start, end); err != nil {
		return fmt.Errorf("seed leave period: %w", err)
	}

	return nil
}
