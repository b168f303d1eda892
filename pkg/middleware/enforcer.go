package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chambersapp/chambers/pkg/audit"
	"github.com/chambersapp/chambers/pkg/auth"
	"github.com/chambersapp/chambers/pkg/contextkeys"
	"github.com/chambersapp/chambers/pkg/httputil"
	"github.com/chambersapp/chambers/pkg/observability"
	"github.com/chambersapp/chambers/pkg/routes"
)

// IdentityResolver authenticates a request from its credential carriers.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, req *http.Request) (*auth.Identity, error)
}

// EnforcerConfig configures the edge authorization enforcer.
type EnforcerConfig struct {
	// SignInPath and UnauthorizedPath receive page-route denials.
	SignInPath       string
	UnauthorizedPath string

	// PublicPaths are exact paths that never require authentication.
	PublicPaths []string

	// StaticPrefixes are path prefixes served without authentication.
	StaticPrefixes []string

	// ProtectedRoots are the path prefixes the enforcer guards. Anything
	// outside them passes through untouched.
	ProtectedRoots []string
}

// DefaultEnforcerConfig returns the path classification used by the
// Chambers application.
func DefaultEnforcerConfig() EnforcerConfig {
	return EnforcerConfig{
		SignInPath:       "/signin",
		UnauthorizedPath: "/unauthorized",
		PublicPaths:      []string{"/", "/signin", "/signup", "/unauthorized", "/pricing"},
		StaticPrefixes:   []string{"/static/", "/assets/", "/favicon.ico"},
		ProtectedRoots:   []string{"/app", "/api"},
	}
}

// Enforcer is the edge authorization layer. Every request runs through a
// terminal state machine: classify, authenticate, check active, match the
// route-permission table, check the permission. Each denial is terminal
// and carries a machine-readable reason.
type Enforcer struct {
	resolver IdentityResolver
	store    auth.IdentityStore
	registry *routes.Registry
	metrics  *observability.Metrics
	recorder audit.Recorder
	log      *logrus.Logger
	cfg      EnforcerConfig

	publicPaths map[string]struct{}
}

// NewEnforcer creates the edge enforcer.
func NewEnforcer(resolver IdentityResolver, store auth.IdentityStore, registry *routes.Registry,
	metrics *observability.Metrics, recorder audit.Recorder, log *logrus.Logger, cfg EnforcerConfig) *Enforcer {
	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}
	return &Enforcer{
		resolver:    resolver,
		store:       store,
		registry:    registry,
		metrics:     metrics,
		recorder:    recorder,
		log:         log,
		cfg:         cfg,
		publicPaths: public,
	}
}

// Handler wraps next with the authorization state machine.
func (e *Enforcer) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Classify. Public, static and unprotected paths pass untouched.
		if e.isPublic(path) || !e.isProtected(path) {
			next.ServeHTTP(w, r)
			return
		}

		// Authenticate.
		ident, err := e.resolver.ResolveIdentity(r.Context(), r)
		if errors.Is(err, auth.ErrNoCredential) {
			e.deny(w, r, nil, http.StatusUnauthorized, auth.ReasonUnauthenticated, "authentication required")
			return
		}
		if err != nil {
			e.infraFailure(w, r, "identity", err)
			return
		}

		// Check active.
		if !ident.IsActive {
			e.deny(w, r, ident, http.StatusUnauthorized, auth.ReasonAccountDisabled, "account is disabled")
			return
		}

		// Resolve tenant.
		tenantID, err := auth.ResolveTenant(r.Context(), e.store, ident)
		if errors.Is(err, auth.ErrOrphanedTenant) {
			e.deny(w, r, ident, http.StatusForbidden, auth.ReasonOrphanedTenant, "account is not attached to an active firm")
			return
		}
		if err != nil {
			e.infraFailure(w, r, "tenant", err)
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), ident)
		ctx = contextkeys.WithTenantID(ctx, tenantID)
		r = r.WithContext(ctx)

		// Match route. No entry means the route needs authentication only.
		entry, ok := e.registry.Match(path)
		if !ok {
			e.allow(next, w, r)
			return
		}

		// Check permission. Ownership-required routes deny every employee
		// outright; owners bypass the matrix everywhere else.
		if entry.OwnerOnly && !ident.IsOwner() {
			e.deny(w, r, ident, http.StatusForbidden, auth.ReasonOwnershipRequired, "this action requires the firm owner account")
			return
		}
		if !ident.IsOwner() && !ident.Permissions.Has(entry.Category, entry.Action) {
			e.deny(w, r, ident, http.StatusForbidden, auth.ReasonPermissionDenied,
				"missing permission "+string(entry.Category)+"."+entry.Action)
			return
		}

		e.allow(next, w, r)
	})
}

func (e *Enforcer) isPublic(path string) bool {
	if _, ok := e.publicPaths[path]; ok {
		return true
	}
	for _, prefix := range e.cfg.StaticPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (e *Enforcer) isProtected(path string) bool {
	for _, root := range e.cfg.ProtectedRoots {
		if path == root || strings.HasPrefix(path, root+"/") {
			return true
		}
	}
	return false
}

// isAPIRequest decides JSON envelope vs redirect for denials.
func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func (e *Enforcer) allow(next http.Handler, w http.ResponseWriter, r *http.Request) {
	e.metrics.AuthzDecisionsTotal.WithLabelValues("allow", "").Inc()
	next.ServeHTTP(w, r)
}

func (e *Enforcer) deny(w http.ResponseWriter, r *http.Request, ident *auth.Identity, status int, reason auth.Reason, message string) {
	e.metrics.AuthzDecisionsTotal.WithLabelValues("deny", string(reason)).Inc()
	e.recordDenial(r, ident, reason)

	if isAPIRequest(r) {
		httputil.WriteAPIError(w, status, message)
		return
	}
	if reason == auth.ReasonUnauthenticated || reason == auth.ReasonAccountDisabled {
		httputil.RedirectToSignIn(w, r, e.cfg.SignInPath, reason)
		return
	}
	httputil.RedirectUnauthorized(w, r, e.cfg.UnauthorizedPath, reason, message)
}

// infraFailure surfaces a dependency failure as a server error, never as
// an authorization failure, so clients can tell "not allowed" apart from
// "could not evaluate".
func (e *Enforcer) infraFailure(w http.ResponseWriter, r *http.Request, dependency string, err error) {
	e.metrics.ResolveErrorsTotal.WithLabelValues(dependency).Inc()
	e.log.WithError(err).WithFields(logrus.Fields{
		"dependency": dependency,
		"path":       r.URL.Path,
		"request_id": contextkeys.RequestID(r.Context()),
	}).Error("authorization dependency failure")

	status := http.StatusServiceUnavailable
	message := "authorization service unavailable"
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		message = "authorization check timed out"
	}
	if isAPIRequest(r) {
		if status == http.StatusGatewayTimeout {
			httputil.WriteGatewayTimeout(w, message)
		} else {
			httputil.WriteServiceUnavailable(w, message)
		}
		return
	}
	http.Error(w, message, status)
}

func (e *Enforcer) recordDenial(r *http.Request, ident *auth.Identity, reason auth.Reason) {
	event := &audit.Event{
		Action:    audit.EventTypeAccessDenied,
		Path:      r.URL.Path,
		Reason:    string(reason),
		Allowed:   false,
		RequestID: contextkeys.RequestID(r.Context()),
		Details:   map[string]any{"remote_addr": httputil.ClientIP(r)},
	}
	switch reason {
	case auth.ReasonUnauthenticated:
		event.Action = audit.EventTypeAuthFailed
	case auth.ReasonOwnershipRequired:
		event.Action = audit.EventTypeOwnershipDenied
	}
	if ident != nil {
		id := ident.ID
		event.IdentityID = &id
		if tenantID := contextkeys.TenantID(r.Context()); tenantID != "" {
			event.FirmID = &tenantID
		}
	}
	if err := e.recorder.Record(r.Context(), event); err != nil {
		e.log.WithError(err).Warn("failed to record denial")
	}
}
