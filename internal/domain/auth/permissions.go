package auth

import "context"

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

const (
	PermEmployeesRead  = "employees.read"
	PermEmployeesWrite = "employees.write"
	PermSalaryWrite    = "salary.write"
	PermPayrollRead    = "payroll.read"
	PermPayrollRun     = "payroll.run"
	PermPayrollWrite   = "payroll.write"
	PermLeaveRead      = "leave.read"
	PermLeaveWrite     = "leave.write"
	PermLeaveApprove   = "leave.approve"
	PermPeriodsWrite   = "leave.periods.write"
	PermAuditRead      = "audit.read"
)

var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermSalaryWrite,
		PermPayrollRead,
		PermPayrollRun,
		PermPayrollWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermPeriodsWrite,
		PermAuditRead,
	},
	RoleEmployee: {
		PermEmployeesRead,
		PermPayrollRead,
		PermLeaveRead,
		PermLeaveWrite,
	},
}

// StaticPermissions resolves permissions from the fixed role table above.
// Roles are not tenant-configurable, so no storage lookup is involved.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, granted := range RolePermissions[role] {
		if granted == permission {
			return true, nil
		}
	}
	return false, nil
}
