package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"paycore/internal/platform/querier"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	DB        querier.Querier
	JWTSecret string
	TokenTTL  time.Duration
}

func NewService(db querier.Querier, jwtSecret string, tokenTTL time.Duration) *Service {
	return &Service{DB: db, JWTSecret: jwtSecret, TokenTTL: tokenTTL}
}

type LoginResult struct {
	Token      string `json:"token"`
	UserID     string `json:"userId"`
	CompanyID  string `json:"companyId"`
	EmployeeID string `json:"employeeId,omitempty"`
	Role       string `json:"role"`
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var userID, companyID, role, hash string
	err := s.DB.QueryRow(ctx, `
    SELECT id, company_id, role, password_hash
    FROM users
    WHERE email = $1
  `, email).Scan(&userID, &companyID, &role, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := CheckPassword(hash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	var employeeID string
	if err := s.DB.QueryRow(ctx, `
    SELECT id FROM employees WHERE company_id = $1 AND user_id = $2
  `, companyID, userID).Scan(&employeeID); err != nil {
		employeeID = ""
	}

	token, err := GenerateToken(s.JWTSecret, Claims{
		UserID:     userID,
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Role:       role,
	}, s.TokenTTL)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		Token:      token,
		UserID:     userID,
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Role:       role,
	}, nil
}
