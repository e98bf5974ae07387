package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paycore/internal/platform/querier"
)

// Actions recorded by the administration surface.
const (
	ActionPayrollRun     = "payroll.run"
	ActionPayrollStatus  = "payroll.status"
	ActionLeaveSubmit    = "leave.submit"
	ActionLeaveApprove   = "leave.approve"
	ActionLeaveDeny      = "leave.deny"
	ActionPeriodCreate   = "period.create"
	ActionPeriodActivate = "period.activate"
	ActionEmployeeCreate = "employee.create"
	ActionSalaryUpsert   = "salary.upsert"
	ActionBalanceGrant   = "balance.grant"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	CreatedAt  time.Time       `json:"createdAt"`
	Details    json.RawMessage `json:"details,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorID    string
}

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

// Record writes one event. details may be nil; any other value is stored as
// its JSON encoding.
func (s *Service) Record(ctx context.Context, companyID, actorID, action, entityType, entityID, requestID string, details any) error {
	var detailsJSON []byte
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			return err
		}
		detailsJSON = payload
	}

	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_events (company_id, actor_user_id, action, entity_type, entity_id, request_id, details)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
  `, companyID, actorID, action, entityType, entityID, requestID, detailsJSON)
	return err
}

func (s *Service) Count(ctx context.Context, companyID string, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", companyID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, companyID string, filter Filter, limit, offset int) ([]Event, error) {
	query, args := buildBaseQuery(
		"SELECT id, COALESCE(actor_user_id::text, ''), action, entity_type, entity_id, COALESCE(request_id, ''), created_at, details",
		companyID, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.CreatedAt, &evt.Details); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildBaseQuery(prefix, companyID string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE company_id = $1"
	args := []any{companyID}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", len(args)+1)
		args = append(args, filter.EntityType)
	}
	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_user_id::text = $%d", len(args)+1)
		args = append(args, filter.ActorID)
	}
	return query, args
}
