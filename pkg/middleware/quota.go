package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/chambersapp/chambers/pkg/audit"
	"github.com/chambersapp/chambers/pkg/contextkeys"
	"github.com/chambersapp/chambers/pkg/firms"
	"github.com/chambersapp/chambers/pkg/httputil"
	"github.com/chambersapp/chambers/pkg/observability"
)

// QuotaChecker is the advisory quota interface exposed by pkg/firms.
type QuotaChecker interface {
	CheckCaseQuota(ctx context.Context, firmID string) error
	CheckEmployeeQuota(ctx context.Context, firmID string) error
}

// QuotaMiddleware rejects create requests for firms already at their plan
// limit, before the handler does any work. The check here is advisory;
// the create handlers still go through the transactional admission gate
// in pkg/firms, which is the authoritative decision under concurrency.
type QuotaMiddleware struct {
	checker  QuotaChecker
	metrics  *observability.Metrics
	recorder audit.Recorder
	log      *logrus.Logger
}

// NewQuotaMiddleware creates a new QuotaMiddleware
func NewQuotaMiddleware(checker QuotaChecker, metrics *observability.Metrics, recorder audit.Recorder, log *logrus.Logger) *QuotaMiddleware {
	return &QuotaMiddleware{checker: checker, metrics: metrics, recorder: recorder, log: log}
}

// EnforceCaseQuota rejects case creation for firms at their case limit.
//
// REQUIRES: Enforcer must run before this middleware. A missing tenant ID
// fails closed with a 500 rather than skipping the check.
func (m *QuotaMiddleware) EnforceCaseQuota(next http.Handler) http.Handler {
	return m.enforce("cases", m.checker.CheckCaseQuota, next)
}

// EnforceEmployeeQuota rejects employee provisioning at the seat limit.
func (m *QuotaMiddleware) EnforceEmployeeQuota(next http.Handler) http.Handler {
	return m.enforce("employees", m.checker.CheckEmployeeQuota, next)
}

func (m *QuotaMiddleware) enforce(resource string, check func(context.Context, string) error, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := contextkeys.TenantID(r.Context())
		if tenantID == "" {
			m.log.WithField("path", r.URL.Path).Error("quota middleware ran without a resolved tenant")
			httputil.WriteServerError(w, "internal server error")
			return
		}

		err := check(r.Context(), tenantID)
		if err == nil {
			m.metrics.QuotaChecksTotal.WithLabelValues(resource, "allow").Inc()
			next.ServeHTTP(w, r)
			return
		}

		if firms.IsQuotaExceeded(err) {
			qe := err.(*firms.QuotaExceededError)
			m.metrics.QuotaChecksTotal.WithLabelValues(resource, "deny").Inc()
			m.metrics.QuotaDenialsTotal.WithLabelValues(resource, string(qe.Plan)).Inc()
			m.recordDenial(r, tenantID, qe)
			httputil.WriteQuotaExceeded(w, "plan limit reached for "+resource, qe.Current, qe.Limit)
			return
		}

		// Infrastructure failure: surface as a server error, never as a
		// quota denial.
		m.metrics.QuotaChecksTotal.WithLabelValues(resource, "error").Inc()
		m.log.WithError(err).WithField("resource", resource).Error("quota check failed")
		httputil.WriteServerError(w, "could not evaluate plan limits")
	})
}

func (m *QuotaMiddleware) recordDenial(r *http.Request, tenantID string, qe *firms.QuotaExceededError) {
	event := &audit.Event{
		FirmID:    &tenantID,
		Action:    audit.EventTypeQuotaDenied,
		Path:      r.URL.Path,
		Reason:    qe.Error(),
		Allowed:   false,
		RequestID: contextkeys.RequestID(r.Context()),
		Details: map[string]any{
			"resource":    qe.Resource,
			"current":     qe.Current,
			"limit":       qe.Limit,
			"remote_addr": httputil.ClientIP(r),
		},
	}
	if err := m.recorder.Record(r.Context(), event); err != nil {
		m.log.WithError(err).Warn("failed to record quota denial")
	}
}
