package leave

import "errors"

var (
	ErrInvalidDateRange   = errors.New("end date before start date")
	ErrInvalidLeaveType   = errors.New("leave type must be paid or unpaid")
	ErrInvalidDecision    = errors.New("decision must be approved or denied")
	ErrBlackoutActive     = errors.New("company-wide leave period is active")
	ErrNoContainerPeriod  = errors.New("no leave period to file the request against")
	ErrRequestNotFound    = errors.New("leave request not found")
	ErrAlreadyResolved    = errors.New("leave request already resolved")
	ErrBalanceNotFound    = errors.New("leave balance not found")
	ErrPeriodNotFound     = errors.New("leave period not found")
	ErrActivePeriodExists = errors.New("another active leave period exists")
)
