package company

import "errors"

var (
	ErrCompanyNotFound  = errors.New("company not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrEmailTaken       = errors.New("email already in use")
	ErrInvalidEmployee  = errors.New("invalid employee")
)
