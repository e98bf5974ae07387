package payroll

const (
	StatusDraft     = "draft"
	StatusProcessed = "processed"
	StatusPaid      = "paid"

	WarningDuplicatePeriod = "duplicate_period"
	WarningNegativeNet     = "negative_net"
	WarningMissingSalary   = "missing_salary_structure"
)

// Pro-rata divisor for unpaid leave: one day of unpaid leave deducts
// base_pay/30 regardless of the calendar month.
const daysPerMonth = 30
