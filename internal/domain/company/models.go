package company

import "time"

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Employee struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"companyId"`
	UserID      string    `json:"userId,omitempty"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Designation string    `json:"designation,omitempty"`
	IsActive    bool      `json:"isActive"`
	JoinedAt    time.Time `json:"joinedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}
