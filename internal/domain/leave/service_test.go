package leave

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	periods  []Period
	requests map[string]*Request
	balances map[string]*Balance // keyed by employeeID+"/"+periodID

	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: map[string]*Request{},
		balances: map[string]*Balance{},
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return prefix + "-" + strconv.Itoa(f.nextID)
}

func (f *fakeStore) InTx(_ context.Context, fn func(StoreAPI) error) error { return fn(f) }

func (f *fakeStore) LockCompany(context.Context, string) error { return nil }

func (f *fakeStore) ListPeriods(_ context.Context, companyID string) ([]Period, error) {
	var out []Period
	for _, p := range f.periods {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePeriod(_ context.Context, companyID, name string, start, end time.Time, isActive bool) (Period, error) {
	p := Period{
		ID:        f.id("period"),
		CompanyID: companyID,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		IsActive:  isActive,
	}
	f.periods = append(f.periods, p)
	return p, nil
}

func (f *fakeStore) SetPeriodActive(_ context.Context, companyID, periodID string, active bool) error {
	for i := range f.periods {
		if f.periods[i].CompanyID == companyID && f.periods[i].ID == periodID {
			f.periods[i].IsActive = active
			return nil
		}
	}
	return ErrPeriodNotFound
}

func (f *fakeStore) HasActivePeriod(_ context.Context, companyID string) (bool, error) {
	for _, p := range f.periods {
		if p.CompanyID == companyID && p.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ContainerPeriodID(_ context.Context, companyID string, asOf time.Time) (string, error) {
	for _, p := range f.periods {
		if p.CompanyID == companyID && !p.IsActive && !asOf.Before(p.StartDate) && !asOf.After(p.EndDate) {
			return p.ID, nil
		}
	}
	for _, p := range f.periods {
		if p.CompanyID == companyID && !p.IsActive {
			return p.ID, nil
		}
	}
	return "", ErrNoContainerPeriod
}

func (f *fakeStore) InsertRequest(_ context.Context, request Request) (Request, error) {
	request.ID = f.id("req")
	request.CreatedAt = time.Now()
	f.requests[request.ID] = &request
	return request, nil
}

func (f *fakeStore) GetRequest(_ context.Context, companyID, requestID string) (Request, error) {
	r, ok := f.requests[requestID]
	if !ok || r.CompanyID != companyID {
		return Request{}, ErrRequestNotFound
	}
	return *r, nil
}

func (f *fakeStore) GetRequestForUpdate(ctx context.Context, companyID, requestID string) (Request, error) {
	return f.GetRequest(ctx, companyID, requestID)
}

func (f *fakeStore) ListRequests(_ context.Context, companyID, employeeID string, limit, offset int) ([]Request, int, error) {
	var out []Request
	for _, r := range f.requests {
		if r.CompanyID != companyID {
			continue
		}
		if employeeID != "" && r.EmployeeID != employeeID {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeStore) MarkResolved(_ context.Context, companyID, requestID, status, approverID string, at time.Time) error {
	r, ok := f.requests[requestID]
	if !ok || r.CompanyID != companyID {
		return ErrRequestNotFound
	}
	if r.Status != StatusPending {
		return ErrAlreadyResolved
	}
	r.Status = status
	r.ApprovedBy = approverID
	r.ApprovedAt = &at
	return nil
}

func (f *fakeStore) AddLeavesTaken(_ context.Context, companyID, employeeID, periodID string, days int) (Balance, error) {
	b, ok := f.balances[employeeID+"/"+periodID]
	if !ok {
		return Balance{}, ErrBalanceNotFound
	}
	b.LeavesTaken += days
	return *b, nil
}

func (f *fakeStore) ListBalances(_ context.Context, companyID, employeeID string) ([]Balance, error) {
	var out []Balance
	for _, b := range f.balances {
		if employeeID == "" || b.EmployeeID == employeeID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) GrantBalance(_ context.Context, companyID, employeeID, periodID string, totalGranted int) (Balance, error) {
	key := employeeID + "/" + periodID
	if b, ok := f.balances[key]; ok {
		b.TotalGranted = totalGranted
		return *b, nil
	}
	b := &Balance{
		ID:           f.id("bal"),
		EmployeeID:   employeeID,
		PeriodID:     periodID,
		TotalGranted: totalGranted,
	}
	f.balances[key] = b
	return *b, nil
}

func parseDay(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func setupLeave(t *testing.T) (*Service, *fakeStore, Period) {
	t.Helper()
	store := newFakeStore()
	svc := NewService(store)
	container, err := store.CreatePeriod(context.Background(), "co-1", "FY 2025",
		parseDay("2025-01-01"), parseDay("2025-12-31"), false)
	require.NoError(t, err)
	return svc, store, container
}

func TestSubmitRequestFilesPending(t *testing.T) {
	svc, _, container := setupLeave(t)

	req, err := svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-03-10"),
		EndDate:   parseDay("2025-03-14"),
		Type:      TypePaid,
		Reason:    "  family event  ",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, 5, req.Days)
	assert.Equal(t, container.ID, req.PeriodID)
	assert.Equal(t, "family event", req.Reason)
}

func TestSubmitRequestRejectedDuringBlackout(t *testing.T) {
	svc, store, _ := setupLeave(t)
	_, err := store.CreatePeriod(context.Background(), "co-1", "payroll freeze",
		parseDay("2025-06-01"), parseDay("2025-06-05"), true)
	require.NoError(t, err)

	// Dates far outside the blackout window are rejected all the same.
	_, err = svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-11-03"),
		EndDate:   parseDay("2025-11-04"),
		Type:      TypePaid,
	})
	assert.ErrorIs(t, err, ErrBlackoutActive)

	ok, err := svc.CanSubmitRequest(context.Background(), "co-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitRequestValidation(t *testing.T) {
	svc, _, _ := setupLeave(t)

	_, err := svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-03-14"),
		EndDate:   parseDay("2025-03-10"),
		Type:      TypePaid,
	})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-03-10"),
		EndDate:   parseDay("2025-03-11"),
		Type:      "sabbatical",
	})
	assert.ErrorIs(t, err, ErrInvalidLeaveType)
}

func TestApproveIncrementsBalance(t *testing.T) {
	svc, _, container := setupLeave(t)
	_, err := svc.GrantBalance(context.Background(), "co-1", "emp-1", container.ID, 20)
	require.NoError(t, err)

	first, err := svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-02-03"), EndDate: parseDay("2025-02-07"), Type: TypePaid,
	})
	require.NoError(t, err)
	second, err := svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-04-01"), EndDate: parseDay("2025-04-03"), Type: TypePaid,
	})
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), "co-1", first.ID, DecisionApproved, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, res.Balance)
	assert.Equal(t, 5, res.Balance.LeavesTaken)
	assert.Equal(t, 15, res.Balance.Remaining())
	assert.False(t, res.Overdrawn)
	assert.Equal(t, StatusApproved, res.Request.Status)
	assert.Equal(t, "admin-1", res.Request.ApprovedBy)
	require.NotNil(t, res.Request.ApprovedAt)

	res, err = svc.Resolve(context.Background(), "co-1", second.ID, DecisionApproved, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 8, res.Balance.LeavesTaken)
	assert.Equal(t, 12, res.Balance.Remaining())
}

func TestResolveTwiceConflicts(t *testing.T) {
	svc, store, container := setupLeave(t)
	_, err := svc.GrantBalance(context.Background(), "co-1", "emp-1", container.ID, 20)
	require.NoError(t, err)

	req, err := svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-02-03"), EndDate: parseDay("2025-02-07"), Type: TypePaid,
	})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "co-1", req.ID, DecisionApproved, "admin-1")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "co-1", req.ID, DecisionApproved, "admin-1")
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	// The second attempt must not touch the ledger.
	balance := store.balances["emp-1/"+container.ID]
	assert.Equal(t, 5, balance.LeavesTaken)
}

func TestDenyNeverTouchesBalance(t *testing.T) {
	svc, store, container := setupLeave(t)
	_, err := svc.GrantBalance(context.Background(), "co-1", "emp-1", container.ID, 20)
	require.NoError(t, err)

	req, err := svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-02-03"), EndDate: parseDay("2025-02-07"), Type: TypePaid,
	})
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), "co-1", req.ID, DecisionDenied, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, res.Request.Status)
	assert.Nil(t, res.Balance)

	balance := store.balances["emp-1/"+container.ID]
	assert.Equal(t, 0, balance.LeavesTaken)
}

func TestApproveOverdrawFlagged(t *testing.T) {
	svc, _, container := setupLeave(t)
	_, err := svc.GrantBalance(context.Background(), "co-1", "emp-1", container.ID, 3)
	require.NoError(t, err)

	req, err := svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-02-03"), EndDate: parseDay("2025-02-07"), Type: TypePaid,
	})
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), "co-1", req.ID, DecisionApproved, "admin-1")
	require.NoError(t, err)
	assert.True(t, res.Overdrawn)
	assert.Equal(t, -2, res.Balance.Remaining())
	assert.Equal(t, 5, res.Balance.LeavesTaken)
}

func TestApproveWithoutBalanceAborts(t *testing.T) {
	svc, _, _ := setupLeave(t)

	req, err := svc.SubmitRequest(context.Background(), "co-1", "emp-1", SubmitInput{
		StartDate: parseDay("2025-02-03"), EndDate: parseDay("2025-02-04"), Type: TypePaid,
	})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "co-1", req.ID, DecisionApproved, "admin-1")
	assert.ErrorIs(t, err, ErrBalanceNotFound)
}

func TestResolveUnknownRequest(t *testing.T) {
	svc, _, _ := setupLeave(t)

	_, err := svc.Resolve(context.Background(), "co-1", "missing", DecisionApproved, "admin-1")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = svc.Resolve(context.Background(), "co-1", "missing", "maybe", "admin-1")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestSingleActivePeriod(t *testing.T) {
	svc, _, _ := setupLeave(t)

	first, err := svc.CreatePeriod(context.Background(), "co-1", "freeze A",
		parseDay("2025-06-01"), parseDay("2025-06-05"), true)
	require.NoError(t, err)

	_, err = svc.CreatePeriod(context.Background(), "co-1", "freeze B",
		parseDay("2025-07-01"), parseDay("2025-07-05"), true)
	assert.ErrorIs(t, err, ErrActivePeriodExists)

	second, err := svc.CreatePeriod(context.Background(), "co-1", "freeze B",
		parseDay("2025-07-01"), parseDay("2025-07-05"), false)
	require.NoError(t, err)

	err = svc.SetPeriodActive(context.Background(), "co-1", second.ID, true)
	assert.ErrorIs(t, err, ErrActivePeriodExists)

	require.NoError(t, svc.SetPeriodActive(context.Background(), "co-1", first.ID, false))
	require.NoError(t, svc.SetPeriodActive(context.Background(), "co-1", second.ID, true))

	ok, err := svc.CanSubmitRequest(context.Background(), "co-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGrantDefaultBalanceUsesContainer(t *testing.T) {
	svc, _, container := setupLeave(t)
	svc.Clock = func() time.Time { return parseDay("2025-05-01") }

	balance, err := svc.GrantDefaultBalance(context.Background(), "co-1", "emp-9", 18)
	require.NoError(t, err)
	assert.Equal(t, container.ID, balance.PeriodID)
	assert.Equal(t, 18, balance.TotalGranted)
	assert.Equal(t, 18, balance.Remaining())
}
