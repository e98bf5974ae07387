package company

import (
	"context"

	"paycore/internal/domain/payroll"
)

// StoreAPI is the persistence surface for companies, employees and their
// salary structures.
type StoreAPI interface {
	// InTx runs fn against a transaction-scoped store. The transaction commits
	// only if fn returns nil.
	InTx(ctx context.Context, fn func(StoreAPI) error) error

	CreateCompany(ctx context.Context, name string) (Company, error)
	GetCompany(ctx context.Context, companyID string) (Company, error)

	CreateEmployee(ctx context.Context, emp Employee) (Employee, error)
	// CreateUser creates a login for an employee and returns the user id.
	CreateUser(ctx context.Context, companyID, email, passwordHash, role string) (string, error)
	AttachUser(ctx context.Context, companyID, employeeID, userID string) error
	GetEmployee(ctx context.Context, companyID, employeeID string) (Employee, error)
	ListEmployees(ctx context.Context, companyID string, activeOnly bool, limit, offset int) ([]Employee, int, error)
	UpdateEmployee(ctx context.Context, emp Employee) error
	SetEmployeeActive(ctx context.Context, companyID, employeeID string, active bool) error
	EmailExists(ctx context.Context, companyID, email string) (bool, error)

	UpsertSalaryStructure(ctx context.Context, companyID string, structure payroll.SalaryStructure) error
	GetSalaryStructure(ctx context.Context, companyID, employeeID string) (payroll.SalaryStructure, error)
}
