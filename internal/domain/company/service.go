package company

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paycore/internal/domain/auth"
	"paycore/internal/domain/payroll"
)

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) CreateCompany(ctx context.Context, name string) (Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Company{}, fmt.Errorf("%w: name required", ErrInvalidEmployee)
	}
	return s.Store.CreateCompany(ctx, name)
}

func (s *Service) GetCompany(ctx context.Context, companyID string) (Company, error) {
	return s.Store.GetCompany(ctx, companyID)
}

// EmployeeInput carries a new hire from the transport layer. When Password is
// set a login is provisioned alongside the employee row in one transaction.
type EmployeeInput struct {
	FullName    string
	Email       string
	Designation string
	JoinedAt    time.Time
	Password    string
}

func (s *Service) CreateEmployee(ctx context.Context, companyID string, in EmployeeInput) (Employee, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.FullName == "" || in.Email == "" {
		return Employee{}, fmt.Errorf("%w: full name and email required", ErrInvalidEmployee)
	}
	if in.JoinedAt.IsZero() {
		in.JoinedAt = time.Now().UTC()
	}

	var created Employee
	err := s.Store.InTx(ctx, func(st StoreAPI) error {
		taken, err := st.EmailExists(ctx, companyID, in.Email)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		created, err = st.CreateEmployee(ctx, Employee{
			CompanyID:   companyID,
			FullName:    in.FullName,
			Email:       in.Email,
			Designation: in.Designation,
			IsActive:    true,
			JoinedAt:    in.JoinedAt,
		})
		if err != nil {
			return err
		}

		if in.Password == "" {
			return nil
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return err
		}
		userID, err := st.CreateUser(ctx, companyID, in.Email, hash, auth.RoleEmployee)
		if err != nil {
			return err
		}
		created.UserID = userID
		return st.AttachUser(ctx, companyID, created.ID, userID)
	})
	if err != nil {
		return Employee{}, err
	}
	return created, nil
}

func (s *Service) GetEmployee(ctx context.Context, companyID, employeeID string) (Employee, error) {
	return s.Store.GetEmployee(ctx, companyID, employeeID)
}

func (s *Service) ListEmployees(ctx context.Context, companyID string, activeOnly bool, limit, offset int) ([]Employee, int, error) {
	return s.Store.ListEmployees(ctx, companyID, activeOnly, limit, offset)
}

func (s *Service) UpdateEmployee(ctx context.Context, emp Employee) error {
	emp.FullName = strings.TrimSpace(emp.FullName)
	emp.Email = strings.TrimSpace(strings.ToLower(emp.Email))
	if emp.FullName == "" || emp.Email == "" {
		return fmt.Errorf("%w: full name and email required", ErrInvalidEmployee)
	}
	return s.Store.UpdateEmployee(ctx, emp)
}

func (s *Service) SetEmployeeActive(ctx context.Context, companyID, employeeID string, active bool) error {
	return s.Store.SetEmployeeActive(ctx, companyID, employeeID, active)
}

// UpsertSalaryStructure replaces the full structure for one employee. Invalid
// amounts are rejected before anything is written.
func (s *Service) UpsertSalaryStructure(ctx context.Context, companyID string, structure payroll.SalaryStructure) error {
	if err := payroll.ValidateStructure(structure); err != nil {
		return err
	}
	return s.Store.UpsertSalaryStructure(ctx, companyID, structure)
}

func (s *Service) GetSalaryStructure(ctx context.Context, companyID, employeeID string) (payroll.SalaryStructure, error) {
	return s.Store.GetSalaryStructure(ctx, companyID, employeeID)
}
