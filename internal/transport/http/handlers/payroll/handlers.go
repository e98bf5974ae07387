package payrollhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/payroll"
	"paycore/internal/platform/metrics"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service *payroll.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
	Metrics *metrics.Collector
}

func NewHandler(service *payroll.Service, perms middleware.PermissionStore, auditSvc *audit.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/runs", h.handleRun)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/runs", h.handleListRuns)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/runs/{runID}", h.handleRunDetails)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Put("/runs/{runID}/status", h.handleUpdateStatus)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/payslips", h.handleListPayslips)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/payslips/{payslipID}", h.handleGetPayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/payslips/{payslipID}/pdf", h.handlePayslipPDF)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/preview/{employeeID}", h.handlePreview)
	})
}

type runPayload struct {
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload runPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	start, _ := v.Date("periodStart", payload.PeriodStart)
	end, _ := v.Date("periodEnd", payload.PeriodEnd)
	v.DateOrder("periodStart", start, "periodEnd", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.RunPayroll(r.Context(), user.CompanyID, start, end, user.UserID)
	if err != nil {
		switch {
		case errors.Is(err, payroll.ErrInvalidPeriod):
			api.Fail(w, http.StatusBadRequest, "invalid_period", "period end must not precede period start", middleware.GetRequestID(r.Context()))
		case errors.Is(err, payroll.ErrNoEmployees):
			api.Fail(w, http.StatusUnprocessableEntity, "no_employees", "no active employees to pay", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "payroll_run_failed", "payroll run failed", middleware.GetRequestID(r.Context()))
		}
		return
	}

	h.Metrics.Incr("payrollRunsTotal")
	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, audit.ActionPayrollRun, "payroll_run", result.Run.ID, middleware.GetRequestID(r.Context()), map[string]any{
		"periodStart":   payload.PeriodStart,
		"periodEnd":     payload.PeriodEnd,
		"employeeCount": result.EmployeeCount,
		"skipped":       result.Skipped,
		"warnings":      result.Warnings,
	}); err != nil {
		slog.Warn("audit payroll.run failed", "err", err)
	}
	api.Created(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 20, 100)

	runs, total, err := h.Service.ListRuns(r.Context(), user.CompanyID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payroll_list_failed", "failed to list payroll runs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"items": runs, "total": total}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunDetails(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	summary, payslips, err := h.Service.RunDetails(r.Context(), user.CompanyID, chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, payroll.ErrRunNotFound) {
			api.Fail(w, http.StatusNotFound, "run_not_found", "payroll run not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "payroll_details_failed", "failed to load payroll run", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"summary": summary, "payslips": payslips}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	run, err := h.Service.UpdateStatus(r.Context(), user.CompanyID, chi.URLParam(r, "runID"), payload.Status)
	if err != nil {
		switch {
		case errors.Is(err, payroll.ErrRunNotFound):
			api.Fail(w, http.StatusNotFound, "run_not_found", "payroll run not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, payroll.ErrInvalidStatusChange):
			api.Fail(w, http.StatusConflict, "invalid_status_change", "status transition not allowed", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "payroll_status_failed", "failed to update payroll status", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, audit.ActionPayrollStatus, "payroll_run", run.ID, middleware.GetRequestID(r.Context()), map[string]string{"status": run.Status}); err != nil {
		slog.Warn("audit payroll.status failed", "err", err)
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

// handleListPayslips serves the caller's own payslips. Admins can pass
// ?employeeId= to read someone else's.
func (h *Handler) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := user.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && user.Role == auth.RoleAdmin {
		employeeID = requested
	}
	if employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "employee_required", "no employee in scope", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 20, 100)

	payslips, total, err := h.Service.ListEmployeePayslips(r.Context(), user.CompanyID, employeeID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslips_list_failed", "failed to list payslips", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"items": payslips, "total": total}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPayslip(w http.ResponseWriter, r *http.Request) {
	payslip, ok := h.loadPayslip(w, r)
	if !ok {
		return
	}
	api.Success(w, payslip, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePayslipPDF(w http.ResponseWriter, r *http.Request) {
	payslip, ok := h.loadPayslip(w, r)
	if !ok {
		return
	}

	user, _ := middleware.GetUser(r.Context())
	pdf, filename, err := h.Service.RenderPayslipPDF(r.Context(), user.CompanyID, payslip.ID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslip_pdf_failed", "failed to render payslip", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	amounts, err := h.Service.PreviewPayslip(r.Context(), user.CompanyID, chi.URLParam(r, "employeeID"))
	if err != nil {
		if errors.Is(err, payroll.ErrNoSalaryStructure) {
			api.Fail(w, http.StatusNotFound, "salary_not_found", "no salary structure for employee", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "payroll_preview_failed", "failed to preview payslip", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, amounts, middleware.GetRequestID(r.Context()))
}

// loadPayslip fetches the payslip and enforces that non-admins only read
// their own.
func (h *Handler) loadPayslip(w http.ResponseWriter, r *http.Request) (payroll.Payslip, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return payroll.Payslip{}, false
	}

	payslip, err := h.Service.GetPayslip(r.Context(), user.CompanyID, chi.URLParam(r, "payslipID"))
	if err != nil {
		if errors.Is(err, payroll.ErrPayslipNotFound) {
			api.Fail(w, http.StatusNotFound, "payslip_not_found", "payslip not found", middleware.GetRequestID(r.Context()))
			return payroll.Payslip{}, false
		}
		api.Fail(w, http.StatusInternalServerError, "payslip_get_failed", "failed to load payslip", middleware.GetRequestID(r.Context()))
		return payroll.Payslip{}, false
	}

	if user.Role != auth.RoleAdmin && payslip.EmployeeID != user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your payslip", middleware.GetRequestID(r.Context()))
		return payroll.Payslip{}, false
	}
	return payslip, true
}
