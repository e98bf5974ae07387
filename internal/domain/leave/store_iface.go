package leave

import (
	"context"
	"time"
)

// StoreAPI is the persistence surface for the leave engine. Balances are only
// written through the resolution path; nothing else mutates leaves_taken.
type StoreAPI interface {
	// InTx runs fn against a transaction-scoped store. The transaction commits
	// only if fn returns nil.
	InTx(ctx context.Context, fn func(StoreAPI) error) error

	// LockCompany serializes leave submissions and period activation for one
	// company within the current transaction.
	LockCompany(ctx context.Context, companyID string) error

	ListPeriods(ctx context.Context, companyID string) ([]Period, error)
	CreatePeriod(ctx context.Context, companyID, name string, start, end time.Time, isActive bool) (Period, error)
	SetPeriodActive(ctx context.Context, companyID, periodID string, active bool) error
	HasActivePeriod(ctx context.Context, companyID string) (bool, error)
	// ContainerPeriodID picks the inactive period individual requests are filed
	// under.
	ContainerPeriodID(ctx context.Context, companyID string, asOf time.Time) (string, error)

	InsertRequest(ctx context.Context, request Request) (Request, error)
	GetRequest(ctx context.Context, companyID, requestID string) (Request, error)
	// GetRequestForUpdate locks the request row for the current transaction.
	GetRequestForUpdate(ctx context.Context, companyID, requestID string) (Request, error)
	ListRequests(ctx context.Context, companyID, employeeID string, limit, offset int) ([]Request, int, error)
	// MarkResolved flips a pending request to its terminal status. Returns
	// ErrAlreadyResolved when the request is no longer pending.
	MarkResolved(ctx context.Context, companyID, requestID, status, approverID string, at time.Time) error

	// AddLeavesTaken applies an approval to the ledger and returns the updated
	// balance. Returns ErrBalanceNotFound when no row exists, which must abort
	// the surrounding transaction.
	AddLeavesTaken(ctx context.Context, companyID, employeeID, periodID string, days int) (Balance, error)
	ListBalances(ctx context.Context, companyID, employeeID string) ([]Balance, error)
	GrantBalance(ctx context.Context, companyID, employeeID, periodID string, totalGranted int) (Balance, error)
}
