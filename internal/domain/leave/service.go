package leave

import (
	"context"
	"strings"
	"time"
)

type Service struct {
	Store StoreAPI
	// Clock is overridable for tests; defaults to time.Now.
	Clock func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store, Clock: time.Now}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// SubmitInput carries a new request from the transport layer.
type SubmitInput struct {
	StartDate time.Time
	EndDate   time.Time
	Type      string
	Reason    string
}

// SubmitRequest files a new leave request. The blackout gate is re-checked
// inside the same transaction that inserts the row, under a per-company lock,
// so a concurrently activated blackout period cannot slip a request through.
func (s *Service) SubmitRequest(ctx context.Context, companyID, employeeID string, in SubmitInput) (Request, error) {
	days, err := RequestDays(in.StartDate, in.EndDate)
	if err != nil {
		return Request{}, err
	}
	if err := ValidateType(in.Type); err != nil {
		return Request{}, err
	}

	var request Request
	err = s.Store.InTx(ctx, func(st StoreAPI) error {
		if err := st.LockCompany(ctx, companyID); err != nil {
			return err
		}

		active, err := st.HasActivePeriod(ctx, companyID)
		if err != nil {
			return err
		}
		if active {
			return ErrBlackoutActive
		}

		periodID, err := st.ContainerPeriodID(ctx, companyID, in.StartDate)
		if err != nil {
			return err
		}

		request, err = st.InsertRequest(ctx, Request{
			CompanyID:  companyID,
			EmployeeID: employeeID,
			PeriodID:   periodID,
			StartDate:  in.StartDate,
			EndDate:    in.EndDate,
			Days:       days,
			Type:       in.Type,
			Reason:     strings.TrimSpace(in.Reason),
			Status:     StatusPending,
		})
		return err
	})
	if err != nil {
		return Request{}, err
	}
	return request, nil
}

// Resolve transitions a pending request to approved or denied. Approval and
// the ledger increment commit together or not at all: if the balance row is
// missing, the status flip is rolled back and the request stays pending.
// Re-resolving a terminal request fails with ErrAlreadyResolved.
func (s *Service) Resolve(ctx context.Context, companyID, requestID, decision, approverID string) (Resolution, error) {
	if err := ValidateDecision(decision); err != nil {
		return Resolution{}, err
	}

	var resolution Resolution
	err := s.Store.InTx(ctx, func(st StoreAPI) error {
		request, err := st.GetRequestForUpdate(ctx, companyID, requestID)
		if err != nil {
			return err
		}
		if request.Status != StatusPending {
			return ErrAlreadyResolved
		}

		now := s.now()
		if err := st.MarkResolved(ctx, companyID, requestID, decision, approverID, now); err != nil {
			return err
		}

		request.Status = decision
		request.ApprovedBy = approverID
		request.ApprovedAt = &now

		if decision == DecisionApproved {
			balance, err := st.AddLeavesTaken(ctx, companyID, request.EmployeeID, request.PeriodID, request.Days)
			if err != nil {
				return err
			}
			resolution.Balance = &balance
			resolution.Overdrawn = balance.Remaining() < 0
		}

		resolution.Request = request
		return nil
	})
	if err != nil {
		return Resolution{}, err
	}
	return resolution, nil
}

func (s *Service) GetRequest(ctx context.Context, companyID, requestID string) (Request, error) {
	return s.Store.GetRequest(ctx, companyID, requestID)
}

func (s *Service) ListRequests(ctx context.Context, companyID, employeeID string, limit, offset int) ([]Request, int, error) {
	return s.Store.ListRequests(ctx, companyID, employeeID, limit, offset)
}

func (s *Service) ListPeriods(ctx context.Context, companyID string) ([]Period, error) {
	return s.Store.ListPeriods(ctx, companyID)
}

// CreatePeriod creates a calendar window. Creating it active runs under the
// company lock so at most one blackout can exist at a time.
func (s *Service) CreatePeriod(ctx context.Context, companyID, name string, start, end time.Time, isActive bool) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidDateRange
	}

	var period Period
	err := s.Store.InTx(ctx, func(st StoreAPI) error {
		if isActive {
			if err := st.LockCompany(ctx, companyID); err != nil {
				return err
			}
			active, err := st.HasActivePeriod(ctx, companyID)
			if err != nil {
				return err
			}
			if active {
				return ErrActivePeriodExists
			}
		}
		var err error
		period, err = st.CreatePeriod(ctx, companyID, name, start, end, isActive)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	return period, nil
}

// SetPeriodActive toggles the blackout flag, preserving the single-active
// invariant on activation.
func (s *Service) SetPeriodActive(ctx context.Context, companyID, periodID string, active bool) error {
	return s.Store.InTx(ctx, func(st StoreAPI) error {
		if active {
			if err := st.LockCompany(ctx, companyID); err != nil {
				return err
			}
			hasActive, err := st.HasActivePeriod(ctx, companyID)
			if err != nil {
				return err
			}
			if hasActive {
				return ErrActivePeriodExists
			}
		}
		return st.SetPeriodActive(ctx, companyID, periodID, active)
	})
}

// CanSubmitRequest reports whether the gate currently admits new requests.
// Advisory only: SubmitRequest re-checks inside its own transaction.
func (s *Service) CanSubmitRequest(ctx context.Context, companyID string) (bool, error) {
	active, err := s.Store.HasActivePeriod(ctx, companyID)
	if err != nil {
		return false, err
	}
	return !active, nil
}

func (s *Service) ListBalances(ctx context.Context, companyID, employeeID string) ([]Balance, error) {
	return s.Store.ListBalances(ctx, companyID, employeeID)
}

// GrantBalance provisions or resets the granted units for one employee and
// period. leaves_taken is untouched; only Resolve writes it.
func (s *Service) GrantBalance(ctx context.Context, companyID, employeeID, periodID string, totalGranted int) (Balance, error) {
	return s.Store.GrantBalance(ctx, companyID, employeeID, periodID, totalGranted)
}

// GrantDefaultBalance provisions a balance against the current container
// period, used when onboarding an employee.
func (s *Service) GrantDefaultBalance(ctx context.Context, companyID, employeeID string, totalGranted int) (Balance, error) {
	var balance Balance
	err := s.Store.InTx(ctx, func(st StoreAPI) error {
		periodID, err := st.ContainerPeriodID(ctx, companyID, s.now())
		if err != nil {
			return err
		}
		balance, err = st.GrantBalance(ctx, companyID, employeeID, periodID, totalGranted)
		return err
	})
	if err != nil {
		return Balance{}, err
	}
	return balance, nil
}
