package leave

import "time"

// Period is a company-scoped calendar window. When IsActive is true it is a
// blackout window: nobody may submit individual requests while it lasts.
// Inactive periods are containers under which requests and balances are filed.
type Period struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Request struct {
	ID         string     `json:"id"`
	CompanyID  string     `json:"companyId"`
	EmployeeID string     `json:"employeeId"`
	PeriodID   string     `json:"leavePeriodId"`
	StartDate  time.Time  `json:"startDate"`
	EndDate    time.Time  `json:"endDate"`
	Days       int        `json:"daysRequested"`
	Type       string     `json:"leaveType"`
	Reason     string     `json:"reason,omitempty"`
	Status     string     `json:"status"`
	ApprovedBy string     `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Balance is the per-employee, per-period leave ledger row. Remaining is
// derived, never stored; it goes negative when a period is over-approved.
type Balance struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employeeId"`
	PeriodID     string `json:"leavePeriodId"`
	TotalGranted int    `json:"totalGranted"`
	LeavesTaken  int    `json:"leavesTaken"`
}

func (b Balance) Remaining() int {
	return b.TotalGranted - b.LeavesTaken
}

// Resolution reports the outcome of resolving a pending request.
type Resolution struct {
	Request   Request  `json:"request"`
	Balance   *Balance `json:"balance,omitempty"`
	Overdrawn bool     `json:"overdrawn,omitempty"`
}
