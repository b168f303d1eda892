// Package guard implements the handler-layer resource authorization check.
//
// The edge enforcer only sees the URL shape, so row-level ownership and
// assignment must be re-checked here against the specific resource
// instance. Every resource-type handler goes through the one Authorize
// function rather than re-coding the owner/employee branching per
// endpoint.
package guard

import (
	"net/http"

	"github.com/chambersapp/chambers/pkg/auth"
)

// Resource carries the ownership fields the guard needs from a loaded
// resource row. FirmID is the owning tenant; AssignedTo and CreatedBy
// identify the employees attached to the row.
type Resource struct {
	FirmID     string
	AssignedTo *string
	CreatedBy  string
}

// Decision is the outcome of a resource authorization check. Status is
// the HTTP status the handler should return when Allowed is false.
type Decision struct {
	Allowed bool
	Status  int
	Reason  auth.Reason
}

func allow() Decision {
	return Decision{Allowed: true, Status: http.StatusOK}
}

func deny(status int, reason auth.Reason) Decision {
	return Decision{Allowed: false, Status: status, Reason: reason}
}

// Authorize checks whether ident may perform action on the given resource.
// tenantID is the identity's resolved tenant, already established by the
// edge enforcer.
//
// Tenant scope is checked before anything else, so no permission grant can
// ever reach across firms. Cross-tenant reads return 404 rather than 403
// to avoid confirming that the resource exists; mutations return 403.
func Authorize(ident *auth.Identity, tenantID string, res Resource, category auth.Category, action string) Decision {
	if ident == nil {
		return deny(http.StatusUnauthorized, auth.ReasonUnauthenticated)
	}

	if res.FirmID != tenantID {
		if isRead(action) {
			return deny(http.StatusNotFound, auth.ReasonCrossTenantAccess)
		}
		return deny(http.StatusForbidden, auth.ReasonCrossTenantAccess)
	}

	if ident.IsOwner() {
		return allow()
	}

	// Employees with the tenant-wide grant for this action may touch any
	// row in the firm. For reads that grant is viewAll; for mutations it
	// is the action itself.
	broad := action
	if isRead(action) {
		broad = auth.ActionViewAll
	}
	if ident.Permissions.Has(category, broad) {
		return allow()
	}

	// Without the tenant-wide grant, reads fall back to view plus a direct
	// relationship to the row. Mutations have no such fallback.
	if isRead(action) && ident.Permissions.Has(category, auth.ActionView) {
		if res.CreatedBy == ident.ID {
			return allow()
		}
		if res.AssignedTo != nil && *res.AssignedTo == ident.ID {
			return allow()
		}
	}

	return deny(http.StatusForbidden, auth.ReasonPermissionDenied)
}

// isRead reports whether an action only discloses the resource rather
// than changing it.
func isRead(action string) bool {
	switch action {
	case auth.ActionView, auth.ActionViewAll, auth.ActionDownload, auth.ActionExport:
		return true
	}
	return false
}
