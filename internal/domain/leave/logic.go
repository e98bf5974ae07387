package leave

import (
	"math"
	"time"
)

// RequestDays returns the inclusive day count between start and end: a request
// spanning a single day counts as 1. Computed once at submission and stored
// immutably on the request.
func RequestDays(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}
	span := end.Sub(start).Hours() / 24
	return int(math.Ceil(span)) + 1, nil
}

// ValidateType checks the leave type enum.
func ValidateType(leaveType string) error {
	if leaveType != TypePaid && leaveType != TypeUnpaid {
		return ErrInvalidLeaveType
	}
	return nil
}

// ValidateDecision checks the resolution enum.
func ValidateDecision(decision string) error {
	if decision != DecisionApproved && decision != DecisionDenied {
		return ErrInvalidDecision
	}
	return nil
}
