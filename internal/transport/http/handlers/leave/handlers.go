package leavehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/leave"
	"paycore/internal/platform/metrics"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
	Metrics *metrics.Collector
}

func NewHandler(service *leave.Service, perms middleware.PermissionStore, auditSvc *audit.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/gate", h.handleGate)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/deny", h.handleDeny)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/periods", h.handleListPeriods)
		r.With(middleware.RequirePermission(auth.PermPeriodsWrite, h.Perms)).Post("/periods", h.handleCreatePeriod)
		r.With(middleware.RequirePermission(auth.PermPeriodsWrite, h.Perms)).Put("/periods/{periodID}/active", h.handleSetPeriodActive)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/balances", h.handleGrantBalance)
	})
}

func (h *Handler) handleGate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	canSubmit, err := h.Service.CanSubmitRequest(r.Context(), user.CompanyID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "gate_check_failed", "failed to check submission gate", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]bool{"canSubmit": canSubmit}, middleware.GetRequestID(r.Context()))
}

type submitPayload struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if user.EmployeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee", "account has no employee record", middleware.GetRequestID(r.Context()))
		return
	}

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	v.Enum("type", payload.Type, []string{leave.TypePaid, leave.TypeUnpaid}, "must be paid or unpaid")
	v.Required("type", payload.Type, "leave type is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	request, err := h.Service.SubmitRequest(r.Context(), user.CompanyID, user.EmployeeID, leave.SubmitInput{
		StartDate: start,
		EndDate:   end,
		Type:      payload.Type,
		Reason:    payload.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, leave.ErrBlackoutActive):
			api.Fail(w, http.StatusConflict, "gate_rejected", "leave submissions are closed while a blackout period is active", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrInvalidDateRange):
			api.Fail(w, http.StatusBadRequest, "invalid_date_range", "end date must not precede start date", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrInvalidLeaveType):
			api.Fail(w, http.StatusBadRequest, "invalid_leave_type", "leave type must be paid or unpaid", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrNoContainerPeriod):
			api.Fail(w, http.StatusUnprocessableEntity, "no_period", "no leave period configured for these dates", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "leave_submit_failed", "failed to submit leave request", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, audit.ActionLeaveSubmit, "leave_request", request.ID, middleware.GetRequestID(r.Context()), request); err != nil {
		slog.Warn("audit leave.submit failed", "err", err)
	}
	api.Created(w, request, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 20, 100)

	employeeID := user.EmployeeID
	if user.Role == auth.RoleAdmin {
		employeeID = r.URL.Query().Get("employeeId")
	}

	requests, total, err := h.Service.ListRequests(r.Context(), user.CompanyID, employeeID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_list_failed", "failed to list leave requests", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"items": requests, "total": total}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	request, err := h.Service.GetRequest(r.Context(), user.CompanyID, chi.URLParam(r, "requestID"))
	if err != nil {
		if errors.Is(err, leave.ErrRequestNotFound) {
			api.Fail(w, http.StatusNotFound, "request_not_found", "leave request not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "leave_get_failed", "failed to load leave request", middleware.GetRequestID(r.Context()))
		return
	}
	if user.Role != auth.RoleAdmin && request.EmployeeID != user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your leave request", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, request, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, leave.DecisionApproved, audit.ActionLeaveApprove)
}

func (h *Handler) handleDeny(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, leave.DecisionDenied, audit.ActionLeaveDeny)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, decision, auditAction string) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	resolution, err := h.Service.Resolve(r.Context(), user.CompanyID, chi.URLParam(r, "requestID"), decision, user.UserID)
	if err != nil {
		switch {
		case errors.Is(err, leave.ErrRequestNotFound):
			api.Fail(w, http.StatusNotFound, "request_not_found", "leave request not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrAlreadyResolved):
			api.Fail(w, http.StatusConflict, "already_resolved", "leave request is no longer pending", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrBalanceNotFound):
			api.Fail(w, http.StatusUnprocessableEntity, "balance_missing", "no leave balance provisioned for employee", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "leave_resolve_failed", "failed to resolve leave request", middleware.GetRequestID(r.Context()))
		}
		return
	}

	h.Metrics.Incr("leaveDecisionsTotal")
	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, auditAction, "leave_request", resolution.Request.ID, middleware.GetRequestID(r.Context()), map[string]any{
		"decision":  decision,
		"days":      resolution.Request.Days,
		"overdrawn": resolution.Overdrawn,
	}); err != nil {
		slog.Warn("audit leave.resolve failed", "err", err)
	}
	api.Success(w, resolution, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	periods, err := h.Service.ListPeriods(r.Context(), user.CompanyID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "periods_list_failed", "failed to list leave periods", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, periods, middleware.GetRequestID(r.Context()))
}

type periodPayload struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	IsActive  bool   `json:"isActive"`
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload periodPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	period, err := h.Service.CreatePeriod(r.Context(), user.CompanyID, payload.Name, start, end, payload.IsActive)
	if err != nil {
		switch {
		case errors.Is(err, leave.ErrActivePeriodExists):
			api.Fail(w, http.StatusConflict, "active_period_exists", "another blackout period is already active", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrInvalidDateRange):
			api.Fail(w, http.StatusBadRequest, "invalid_date_range", "end date must not precede start date", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "period_create_failed", "failed to create leave period", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, audit.ActionPeriodCreate, "leave_period", period.ID, middleware.GetRequestID(r.Context()), period); err != nil {
		slog.Warn("audit period.create failed", "err", err)
	}
	api.Created(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetPeriodActive(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	periodID := chi.URLParam(r, "periodID")
	if err := h.Service.SetPeriodActive(r.Context(), user.CompanyID, periodID, payload.Active); err != nil {
		switch {
		case errors.Is(err, leave.ErrPeriodNotFound):
			api.Fail(w, http.StatusNotFound, "period_not_found", "leave period not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrActivePeriodExists):
			api.Fail(w, http.StatusConflict, "active_period_exists", "another blackout period is already active", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "period_update_failed", "failed to update leave period", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, audit.ActionPeriodActivate, "leave_period", periodID, middleware.GetRequestID(r.Context()), map[string]bool{"active": payload.Active}); err != nil {
		slog.Warn("audit period.activate failed", "err", err)
	}
	api.Success(w, map[string]any{"id": periodID, "active": payload.Active}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := user.EmployeeID
	if user.Role == auth.RoleAdmin {
		employeeID = r.URL.Query().Get("employeeId")
	}

	balances, err := h.Service.ListBalances(r.Context(), user.CompanyID, employeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "balances_list_failed", "failed to list leave balances", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, balances, middleware.GetRequestID(r.Context()))
}

type grantPayload struct {
	EmployeeID   string `json:"employeeId"`
	PeriodID     string `json:"periodId"`
	TotalGranted int    `json:"totalGranted"`
}

func (h *Handler) handleGrantBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload grantPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id is required")
	v.Required("periodId", payload.PeriodID, "period id is required")
	if payload.TotalGranted < 0 {
		v.Add("totalGranted", "must not be negative")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	balance, err := h.Service.GrantBalance(r.Context(), user.CompanyID, payload.EmployeeID, payload.PeriodID, payload.TotalGranted)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "balance_grant_failed", "failed to grant leave balance", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, audit.ActionBalanceGrant, "leave_balance", balance.ID, middleware.GetRequestID(r.Context()), payload); err != nil {
		slog.Warn("audit balance.grant failed", "err", err)
	}
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}
