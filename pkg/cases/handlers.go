package cases

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chambersapp/chambers/pkg/audit"
	"github.com/chambersapp/chambers/pkg/auth"
	"github.com/chambersapp/chambers/pkg/contextkeys"
	"github.com/chambersapp/chambers/pkg/firms"
	"github.com/chambersapp/chambers/pkg/guard"
	"github.com/chambersapp/chambers/pkg/httputil"
	"github.com/chambersapp/chambers/pkg/observability"
)

// Store is the case persistence interface the handlers need.
type Store interface {
	GetCase(ctx context.Context, id string) (*Case, error)
	ListCases(ctx context.Context, firmID string) ([]*Case, error)
	ListVisibleCases(ctx context.Context, firmID, identityID string) ([]*Case, error)
	CreateTx(tx *sql.Tx, c *Case) error
	UpdateCase(ctx context.Context, c *Case) error
	AssignCase(ctx context.Context, firmID, caseID string, assignedTo *string) error
	DeleteCase(ctx context.Context, firmID, caseID string) error
}

// Admitter is the transactional quota gate, implemented by
// firms.PostgresService.
type Admitter interface {
	AdmitCase(ctx context.Context, firmID string, insert func(tx *sql.Tx) error) error
}

// Handler serves the case API. Requests arrive already authenticated and
// route-checked by the edge enforcer; the handlers re-check authorization
// against the specific row through the resource guard.
type Handler struct {
	store    Store
	admitter Admitter
	recorder audit.Recorder
	metrics  *observability.Metrics
	log      *logrus.Logger
}

// NewHandler creates a new Handler
func NewHandler(store Store, admitter Admitter, recorder audit.Recorder, metrics *observability.Metrics, log *logrus.Logger) *Handler {
	return &Handler{store: store, admitter: admitter, recorder: recorder, metrics: metrics, log: log}
}

// RegisterRoutes mounts the case endpoints on the router. caseQuota wraps
// the create endpoint with the advisory quota pre-check; pass nil to mount
// the handler bare (the transactional gate still applies).
func (h *Handler) RegisterRoutes(router *mux.Router, caseQuota func(http.Handler) http.Handler) {
	router.HandleFunc("/api/v1/cases", h.List).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/cases/view/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/cases/update/{id}", h.Update).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/cases/assign/{id}", h.Assign).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/cases/delete/{id}", h.Delete).Methods(http.MethodPost)

	create := http.Handler(http.HandlerFunc(h.Create))
	if caseQuota != nil {
		create = caseQuota(create)
	}
	router.Handle("/api/v1/cases/create", create).Methods(http.MethodPost)
}

// List returns the cases the caller may see: the whole firm for owners
// and viewAll holders, otherwise only rows they created or are assigned to.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ident, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	var (
		list []*Case
		err  error
	)
	if ident.IsOwner() || ident.Permissions.Has(auth.CategoryCases, auth.ActionViewAll) {
		list, err = h.store.ListCases(r.Context(), tenantID)
	} else {
		list, err = h.store.ListVisibleCases(r.Context(), tenantID, ident.ID)
	}
	if err != nil {
		h.log.WithError(err).Error("failed to list cases")
		httputil.WriteServerError(w, "could not list cases")
		return
	}
	if list == nil {
		list = []*Case{}
	}
	httputil.WriteSuccess(w, list)
}

// Create admits a new case through the transactional quota gate, so the
// plan limit holds even under concurrent creates for the same firm.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return
	}

	var req CreateCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.Title == "" {
		httputil.WriteBadRequest(w, "title is required")
		return
	}

	c := &Case{
		ID:          uuid.NewString(),
		FirmID:      tenantID,
		Title:       req.Title,
		Description: req.Description,
		Status:      StatusOpen,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   ident.ID,
	}

	err := h.admitter.AdmitCase(r.Context(), tenantID, func(tx *sql.Tx) error {
		return h.store.CreateTx(tx, c)
	})
	if firms.IsQuotaExceeded(err) {
		qe := err.(*firms.QuotaExceededError)
		h.metrics.QuotaDenialsTotal.WithLabelValues(qe.Resource, string(qe.Plan)).Inc()
		h.recordQuotaDenial(r, tenantID, ident.ID, qe)
		httputil.WriteQuotaExceeded(w, "plan limit reached for cases", qe.Current, qe.Limit)
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to create case")
		httputil.WriteServerError(w, "could not create case")
		return
	}
	httputil.WriteCreated(w, c)
}

// Get returns a single case after the guard clears it.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadAndAuthorize(w, r, auth.ActionView)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, c)
}

// Update mutates title, description and status.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadAndAuthorize(w, r, auth.ActionEdit)
	if !ok {
		return
	}

	var req UpdateCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			httputil.WriteBadRequest(w, "title cannot be empty")
			return
		}
		c.Title = *req.Title
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			httputil.WriteBadRequest(w, "unknown status "+string(*req.Status))
			return
		}
		c.Status = *req.Status
	}

	if err := h.store.UpdateCase(r.Context(), c); err != nil {
		h.log.WithError(err).Error("failed to update case")
		httputil.WriteServerError(w, "could not update case")
		return
	}
	httputil.WriteSuccess(w, c)
}

// Assign sets or clears the case assignee.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadAndAuthorize(w, r, auth.ActionAssign)
	if !ok {
		return
	}

	var req AssignCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	err := h.store.AssignCase(r.Context(), c.FirmID, c.ID, req.AssignedTo)
	if errors.Is(err, ErrAssigneeNotInFirm) {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to assign case")
		httputil.WriteServerError(w, "could not assign case")
		return
	}
	c.AssignedTo = req.AssignedTo
	httputil.WriteSuccess(w, c)
}

// Delete removes a case.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadAndAuthorize(w, r, auth.ActionDelete)
	if !ok {
		return
	}

	if err := h.store.DeleteCase(r.Context(), c.FirmID, c.ID); err != nil {
		h.log.WithError(err).Error("failed to delete case")
		httputil.WriteServerError(w, "could not delete case")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"id": c.ID})
}

// callerContext reads the identity and tenant the enforcer stored. Both
// missing means the middleware chain is mis-assembled; fail closed.
func (h *Handler) callerContext(w http.ResponseWriter, r *http.Request) (*auth.Identity, string, bool) {
	ident := auth.IdentityFromContext(r.Context())
	tenantID := contextkeys.TenantID(r.Context())
	if ident == nil || tenantID == "" {
		h.log.WithField("path", r.URL.Path).Error("case handler ran without an authenticated context")
		httputil.WriteServerError(w, "internal server error")
		return nil, "", false
	}
	return ident, tenantID, true
}

// loadAndAuthorize loads the case named in the URL and runs the resource
// guard for the given action.
func (h *Handler) loadAndAuthorize(w http.ResponseWriter, r *http.Request, action string) (*Case, bool) {
	ident, tenantID, ok := h.callerContext(w, r)
	if !ok {
		return nil, false
	}

	id := mux.Vars(r)["id"]
	c, err := h.store.GetCase(r.Context(), id)
	if errors.Is(err, ErrCaseNotFound) {
		httputil.WriteNotFound(w, "case not found")
		return nil, false
	}
	if err != nil {
		h.log.WithError(err).Error("failed to load case")
		httputil.WriteServerError(w, "could not load case")
		return nil, false
	}

	decision := guard.Authorize(ident, tenantID, guard.Resource{
		FirmID:     c.FirmID,
		AssignedTo: c.AssignedTo,
		CreatedBy:  c.CreatedBy,
	}, auth.CategoryCases, action)

	if !decision.Allowed {
		h.metrics.AuthzDecisionsTotal.WithLabelValues("deny", string(decision.Reason)).Inc()
		h.recordGuardDenial(r, tenantID, ident.ID, decision.Reason)
		h.writeDenial(w, decision)
		return nil, false
	}
	h.metrics.AuthzDecisionsTotal.WithLabelValues("allow", "").Inc()
	return c, true
}

func (h *Handler) writeDenial(w http.ResponseWriter, d guard.Decision) {
	switch d.Status {
	case http.StatusNotFound:
		// Cross-tenant reads report the same way as a missing row.
		httputil.WriteNotFound(w, "case not found")
	case http.StatusUnauthorized:
		httputil.WriteUnauthorized(w, "authentication required")
	default:
		httputil.WriteForbidden(w, "you do not have permission to perform this action")
	}
}

func (h *Handler) recordGuardDenial(r *http.Request, tenantID, identityID string, reason auth.Reason) {
	action := audit.EventTypeAccessDenied
	if reason == auth.ReasonCrossTenantAccess {
		action = audit.EventTypeCrossTenant
	}
	event := &audit.Event{
		FirmID:     &tenantID,
		IdentityID: &identityID,
		Action:     action,
		Path:       r.URL.Path,
		Reason:     string(reason),
		Allowed:    false,
		RequestID:  contextkeys.RequestID(r.Context()),
		Details:    map[string]any{"remote_addr": httputil.ClientIP(r)},
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		h.log.WithError(err).Warn("failed to record denial")
	}
}

func (h *Handler) recordQuotaDenial(r *http.Request, tenantID, identityID string, qe *firms.QuotaExceededError) {
	event := &audit.Event{
		FirmID:     &tenantID,
		IdentityID: &identityID,
		Action:     audit.EventTypeQuotaDenied,
		Path:       r.URL.Path,
		Reason:     qe.Error(),
		Allowed:    false,
		RequestID:  contextkeys.RequestID(r.Context()),
		Details: map[string]any{
			"resource":    qe.Resource,
			"current":     qe.Current,
			"limit":       qe.Limit,
			"remote_addr": httputil.ClientIP(r),
		},
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		h.log.WithError(err).Warn("failed to record quota denial")
	}
}
