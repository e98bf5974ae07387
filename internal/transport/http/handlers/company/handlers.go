package companyhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/company"
	"paycore/internal/domain/leave"
	"paycore/internal/domain/payroll"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service *company.Service
	Leave   *leave.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service

	// DefaultLeaveGrant is provisioned for each new hire against the current
	// container period. Zero disables provisioning.
	DefaultLeaveGrant int
}

func NewHandler(service *company.Service, leaveSvc *leave.Service, perms middleware.PermissionStore, auditSvc *audit.Service, defaultLeaveGrant int) *Handler {
	return &Handler{
		Service:           service,
		Leave:             leaveSvc,
		Perms:             perms,
		Audit:             auditSvc,
		DefaultLeaveGrant: defaultLeaveGrant,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}/active", h.handleSetActive)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/{employeeID}/salary", h.handleGetSalary)
		r.With(middleware.RequirePermission(auth.PermSalaryWrite, h.Perms)).Put("/{employeeID}/salary", h.handleUpsertSalary)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	activeOnly := r.URL.Query().Get("active") == "true"

	employees, total, err := h.Service.ListEmployees(r.Context(), user.CompanyID, activeOnly, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employees_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"items": employees, "total": total}, middleware.GetRequestID(r.Context()))
}

type employeePayload struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Designation string `json:"designation"`
	JoinedAt    string `json:"joinedAt"`
	Password    string `json:"password"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("fullName", payload.FullName, "full name is required")
	v.Required("email", payload.Email, "email is required")
	joinedAt, _ := shared.ParseDate(payload.JoinedAt)
	if payload.JoinedAt != "" && joinedAt.IsZero() {
		v.Add("joinedAt", "must be a valid date in YYYY-MM-DD format")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	emp, err := h.Service.CreateEmployee(r.Context(), user.CompanyID, company.EmployeeInput{
		FullName:    payload.FullName,
		Email:       payload.Email,
		Designation: payload.Designation,
		JoinedAt:    joinedAt,
		Password:    payload.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, company.ErrEmailTaken):
			api.Fail(w, http.StatusConflict, "email_taken", "email already in use", middleware.GetRequestID(r.Context()))
		case errors.Is(err, company.ErrInvalidEmployee):
			api.Fail(w, http.StatusBadRequest, "invalid_employee", err.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if h.DefaultLeaveGrant > 0 {
		if _, err := h.Leave.GrantDefaultBalance(r.Context(), user.CompanyID, emp.ID, h.DefaultLeaveGrant); err != nil {
			slog.Warn("default leave grant failed", "employeeId", emp.ID, "err", err)
		}
	}

	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, audit.ActionEmployeeCreate, "employee", emp.ID, middleware.GetRequestID(r.Context()), emp); err != nil {
		slog.Warn("audit employee.create failed", "err", err)
	}
	api.Created(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Service.GetEmployee(r.Context(), user.CompanyID, employeeIDParam(r))
	if err != nil {
		if errors.Is(err, company.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	err := h.Service.UpdateEmployee(r.Context(), company.Employee{
		ID:          employeeIDParam(r),
		CompanyID:   user.CompanyID,
		FullName:    payload.FullName,
		Email:       payload.Email,
		Designation: payload.Designation,
	})
	if err != nil {
		switch {
		case errors.Is(err, company.ErrEmployeeNotFound):
			api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, company.ErrInvalidEmployee):
			api.Fail(w, http.StatusBadRequest, "invalid_employee", err.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", middleware.GetRequestID(r.Context()))
		}
		return
	}
	api.Success(w, map[string]string{"id": employeeIDParam(r)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Service.SetEmployeeActive(r.Context(), user.CompanyID, employeeIDParam(r), payload.Active); err != nil {
		if errors.Is(err, company.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"id": employeeIDParam(r), "active": payload.Active}, middleware.GetRequestID(r.Context()))
}

type salaryPayload struct {
	BasePay           decimal.Decimal            `json:"basePay"`
	Allowances        map[string]decimal.Decimal `json:"allowances"`
	DeductionsFixed   map[string]decimal.Decimal `json:"deductionsFixed"`
	DeductionsPercent map[string]decimal.Decimal `json:"deductionsPercent"`
}

func (h *Handler) handleUpsertSalary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload salaryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	structure := payroll.SalaryStructure{
		EmployeeID:        employeeIDParam(r),
		BasePay:           payload.BasePay,
		Allowances:        payload.Allowances,
		DeductionsFixed:   payload.DeductionsFixed,
		DeductionsPercent: payload.DeductionsPercent,
	}
	err := h.Service.UpsertSalaryStructure(r.Context(), user.CompanyID, structure)
	if err != nil {
		switch {
		case errors.Is(err, payroll.ErrInvalidStructure):
			api.Fail(w, http.StatusBadRequest, "invalid_structure", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, company.ErrEmployeeNotFound):
			api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "salary_upsert_failed", "failed to save salary structure", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, audit.ActionSalaryUpsert, "salary_structure", structure.EmployeeID, middleware.GetRequestID(r.Context()), structure); err != nil {
		slog.Warn("audit salary.upsert failed", "err", err)
	}
	api.Success(w, structure, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetSalary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	structure, err := h.Service.GetSalaryStructure(r.Context(), user.CompanyID, employeeIDParam(r))
	if err != nil {
		if errors.Is(err, payroll.ErrNoSalaryStructure) {
			api.Fail(w, http.StatusNotFound, "salary_not_found", "no salary structure for employee", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "salary_get_failed", "failed to load salary structure", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, structure, middleware.GetRequestID(r.Context()))
}

func employeeIDParam(r *http.Request) string {
	id := chi.URLParam(r, "employeeID")
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}
