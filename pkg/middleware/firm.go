package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/chambersapp/chambers/pkg/contextkeys"
	"github.com/chambersapp/chambers/pkg/firms"
	"github.com/chambersapp/chambers/pkg/httputil"
)

// FirmLoader loads firm rows, implemented by firms.PostgresService.
type FirmLoader interface {
	GetFirm(ctx context.Context, id string) (*firms.Firm, error)
}

// FirmContext loads the firm row for the resolved tenant into the
// request context. Handlers that need plan or settings read it via
// FirmFromContext.
//
// REQUIRES: Enforcer must run first to resolve the tenant ID.
func FirmContext(loader FirmLoader, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := contextkeys.TenantID(r.Context())
			if tenantID == "" {
				log.WithField("path", r.URL.Path).Error("firm middleware ran without a resolved tenant")
				httputil.WriteServerError(w, "internal server error")
				return
			}

			firm, err := loader.GetFirm(r.Context(), tenantID)
			if errors.Is(err, firms.ErrFirmNotFound) {
				// Tenant resolved but has no firm row; treat like an
				// orphaned account rather than a server fault.
				httputil.WriteForbidden(w, "account is not attached to an active firm")
				return
			}
			if err != nil {
				log.WithError(err).Error("failed to load firm")
				httputil.WriteServerError(w, "could not load firm")
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.FirmKey, firm)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FirmFromContext retrieves the firm stored by FirmContext, or nil.
func FirmFromContext(ctx context.Context) *firms.Firm {
	firm, _ := ctx.Value(contextkeys.FirmKey).(*firms.Firm)
	return firm
}
