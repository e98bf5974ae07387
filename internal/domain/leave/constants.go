package leave

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"

	TypePaid   = "paid"
	TypeUnpaid = "unpaid"

	DecisionApproved = "approved"
	DecisionDenied   = "denied"
)
