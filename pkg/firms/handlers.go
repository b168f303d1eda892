package firms

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chambersapp/chambers/pkg/audit"
	"github.com/chambersapp/chambers/pkg/auth"
	"github.com/chambersapp/chambers/pkg/contextkeys"
	"github.com/chambersapp/chambers/pkg/httputil"
)

// Handler serves the employee-management and firm-settings API. The edge
// enforcer has already applied the route-permission table, including the
// ownership restriction on create, permissions and plan routes; everything
// here is additionally scoped to the caller's firm.
type Handler struct {
	service  *PostgresService
	recorder audit.Recorder
	log      *logrus.Logger
}

// NewHandler creates a new Handler
func NewHandler(service *PostgresService, recorder audit.Recorder, log *logrus.Logger) *Handler {
	return &Handler{service: service, recorder: recorder, log: log}
}

// RegisterRoutes mounts the employee and firm endpoints. employeeQuota
// wraps the employee create endpoint with the advisory seat pre-check;
// firmContext preloads the firm row for the /api/v1/firm routes. Either
// may be nil.
func (h *Handler) RegisterRoutes(router *mux.Router, employeeQuota, firmContext func(http.Handler) http.Handler) {
	router.HandleFunc("/api/v1/employees", h.ListEmployees).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/employees/update/{id}", h.UpdateEmployeeRole).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/employees/permissions/{id}", h.UpdateEmployeePermissions).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/employees/deactivate/{id}", h.DeactivateEmployee).Methods(http.MethodPost)

	wrap := func(fn http.HandlerFunc) http.Handler {
		if firmContext == nil {
			return fn
		}
		return firmContext(fn)
	}
	router.Handle("/api/v1/firm/settings", wrap(h.GetSettings)).Methods(http.MethodGet)
	router.Handle("/api/v1/firm/settings/update", wrap(h.UpdateSettings)).Methods(http.MethodPost)
	router.Handle("/api/v1/firm/subscription", wrap(h.UpdatePlan)).Methods(http.MethodPost)
	router.Handle("/api/v1/firm/usage", wrap(h.GetUsage)).Methods(http.MethodGet)

	create := http.Handler(http.HandlerFunc(h.CreateEmployee))
	if employeeQuota != nil {
		create = employeeQuota(create)
	}
	router.Handle("/api/v1/employees/create", create).Methods(http.MethodPost)
}

// ListEmployees returns the firm's employee accounts.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	employees, err := h.service.ListEmployees(r.Context(), tenantID)
	if err != nil {
		h.log.WithError(err).Error("failed to list employees")
		httputil.WriteServerError(w, "could not list employees")
		return
	}
	if employees == nil {
		employees = []*auth.Identity{}
	}
	httputil.WriteSuccess(w, employees)
}

// CreateEmployee provisions an employee seat through the transactional
// quota gate.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	ident, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	var req AddEmployeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}

	employee, err := h.service.AddEmployee(r.Context(), tenantID, req)
	if IsQuotaExceeded(err) {
		qe := err.(*QuotaExceededError)
		httputil.WriteQuotaExceeded(w, "plan limit reached for employees", qe.Current, qe.Limit)
		return
	}
	if errors.Is(err, ErrInvalidRole) {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to create employee")
		httputil.WriteServerError(w, "could not create employee")
		return
	}

	h.recordAdmin(r, tenantID, ident.ID, audit.EventTypeEmployeeCreate, map[string]any{
		"employee_id": employee.ID,
		"role":        string(employee.Role),
	})
	httputil.WriteCreated(w, employee)
}

// UpdateEmployeeRole changes an employee's role. The permission matrix is
// reset to the new role's default; any per-employee overrides are
// discarded rather than merged.
func (h *Handler) UpdateEmployeeRole(w http.ResponseWriter, r *http.Request) {
	ident, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	var req struct {
		Role auth.Role `json:"role"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if !req.Role.Valid() {
		httputil.WriteBadRequest(w, "unknown role "+string(req.Role))
		return
	}

	employeeID := mux.Vars(r)["id"]
	err := h.service.UpdateEmployeeRole(r.Context(), tenantID, employeeID, req.Role)
	if errors.Is(err, ErrEmployeeNotFound) {
		httputil.WriteNotFound(w, "employee not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to update employee role")
		httputil.WriteServerError(w, "could not update employee role")
		return
	}

	h.recordAdmin(r, tenantID, ident.ID, audit.EventTypeEmployeeRoleChange, map[string]any{
		"employee_id": employeeID,
		"role":        string(req.Role),
	})
	httputil.WriteSuccess(w, map[string]string{"id": employeeID, "role": string(req.Role)})
}

// UpdateEmployeePermissions replaces an employee's permission matrix. The
// body may carry any of the accepted permission shapes; unknown categories
// and actions are dropped during normalization.
func (h *Handler) UpdateEmployeePermissions(w http.ResponseWriter, r *http.Request) {
	ident, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	var req struct {
		Permissions json.RawMessage `json:"permissions"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if len(req.Permissions) == 0 {
		httputil.WriteBadRequest(w, "permissions are required")
		return
	}
	matrix := auth.NormalizePermissions(req.Permissions)

	employeeID := mux.Vars(r)["id"]
	err := h.service.UpdateEmployeePermissions(r.Context(), tenantID, employeeID, matrix)
	if errors.Is(err, ErrEmployeeNotFound) {
		httputil.WriteNotFound(w, "employee not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to update employee permissions")
		httputil.WriteServerError(w, "could not update permissions")
		return
	}

	h.recordAdmin(r, tenantID, ident.ID, audit.EventTypePermissionChange, map[string]any{
		"employee_id": employeeID,
		"granted":     matrix.Flatten(),
	})
	httputil.WriteSuccess(w, matrix)
}

// DeactivateEmployee disables an employee account. The row is kept so
// audit history and created-by references stay intact.
func (h *Handler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	ident, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	employeeID := mux.Vars(r)["id"]
	err := h.service.DeactivateEmployee(r.Context(), tenantID, employeeID)
	if errors.Is(err, ErrEmployeeNotFound) {
		httputil.WriteNotFound(w, "employee not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to deactivate employee")
		httputil.WriteServerError(w, "could not deactivate employee")
		return
	}

	h.recordAdmin(r, tenantID, ident.ID, audit.EventTypeEmployeeDeactivate, map[string]any{
		"employee_id": employeeID,
	})
	httputil.WriteSuccess(w, map[string]string{"id": employeeID})
}

// GetSettings returns the firm row, including plan and settings. When the
// firm-context middleware already loaded the row it is served as is.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	if firm, ok := r.Context().Value(contextkeys.FirmKey).(*Firm); ok {
		httputil.WriteSuccess(w, firm)
		return
	}

	firm, err := h.service.GetFirm(r.Context(), tenantID)
	if errors.Is(err, ErrFirmNotFound) {
		httputil.WriteNotFound(w, "firm not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to load firm")
		httputil.WriteServerError(w, "could not load firm")
		return
	}
	httputil.WriteSuccess(w, firm)
}

// UpdateSettings replaces the firm settings document.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	var req struct {
		Settings map[string]any `json:"settings"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.UpdateSettings(r.Context(), tenantID, req.Settings)
	if errors.Is(err, ErrFirmNotFound) {
		httputil.WriteNotFound(w, "firm not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to update settings")
		httputil.WriteServerError(w, "could not update settings")
		return
	}
	httputil.WriteSuccess(w, req.Settings)
}

// UpdatePlan changes the subscription tier. Limits derive from the plan at
// every admission check, so the new tier takes effect immediately.
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	ident, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	var req struct {
		Plan PlanTier `json:"plan"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if !req.Plan.Valid() {
		httputil.WriteBadRequest(w, "unknown plan "+string(req.Plan))
		return
	}

	err := h.service.UpdatePlan(r.Context(), tenantID, req.Plan)
	if errors.Is(err, ErrFirmNotFound) {
		httputil.WriteNotFound(w, "firm not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to update plan")
		httputil.WriteServerError(w, "could not update plan")
		return
	}

	h.recordAdmin(r, tenantID, ident.ID, audit.EventTypePlanChange, map[string]any{
		"plan": string(req.Plan),
	})
	httputil.WriteSuccess(w, map[string]any{
		"plan":   req.Plan,
		"quotas": DefaultQuotas(req.Plan),
	})
}

// GetUsage returns live resource counts next to the plan limits.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	usage, err := h.service.GetUsage(r.Context(), tenantID)
	if errors.Is(err, ErrFirmNotFound) {
		httputil.WriteNotFound(w, "firm not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to load usage")
		httputil.WriteServerError(w, "could not load usage")
		return
	}
	httputil.WriteSuccess(w, usage)
}

func (h *Handler) callerContext(w http.ResponseWriter, r *http.Request) (*auth.Identity, string, bool) {
	ident := auth.IdentityFromContext(r.Context())
	tenantID := contextkeys.TenantID(r.Context())
	if ident == nil || tenantID == "" {
		h.log.WithField("path", r.URL.Path).Error("firm handler ran without an authenticated context")
		httputil.WriteServerError(w, "internal server error")
		return nil, "", false
	}
	return ident, tenantID, true
}

func (h *Handler) recordAdmin(r *http.Request, tenantID, actorID string, action audit.EventType, details map[string]any) {
	event := &audit.Event{
		FirmID:     &tenantID,
		IdentityID: &actorID,
		Action:     action,
		Path:       r.URL.Path,
		Allowed:    true,
		RequestID:  contextkeys.RequestID(r.Context()),
		Details:    details,
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		h.log.WithError(err).Warn("failed to record admin event")
	}
}
