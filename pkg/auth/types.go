package auth

import (
	"context"
	"time"

	"github.com/chambersapp/chambers/pkg/contextkeys"
)

// AccountType distinguishes tenant-root accounts from subordinate accounts.
type AccountType string

const (
	// AccountOwner is the tenant-root account type. Owners are implicitly
	// authorized for every in-tenant action that is not ownership-restricted.
	AccountOwner AccountType = "owner"
	// AccountEmployee is a subordinate account, authorized strictly per its
	// permission matrix and tenant scope.
	AccountEmployee AccountType = "employee"
)

// Role represents an employee's role within a firm
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleLawyer     Role = "lawyer"
	RoleParalegal  Role = "paralegal"
	RoleSecretary  Role = "secretary"
	RoleAccountant Role = "accountant"
)

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLawyer, RoleParalegal, RoleSecretary, RoleAccountant:
		return true
	}
	return false
}

// Category represents a permission category (a functional area of the app)
type Category string

const (
	CategoryCases        Category = "cases"
	CategoryClients      Category = "clients"
	CategoryAppointments Category = "appointments"
	CategoryDocuments    Category = "documents"
	CategoryFinancial    Category = "financial"
	CategoryEmployees    Category = "employees"
	CategoryReports      Category = "reports"
	CategoryFirmSettings Category = "firmSettings"
)

// Actions within permission categories. Not every action applies to every
// category; see CategoryActions for the canonical shape.
const (
	ActionView               = "view"
	ActionViewAll            = "viewAll"
	ActionCreate             = "create"
	ActionEdit               = "edit"
	ActionDelete             = "delete"
	ActionAssign             = "assign"
	ActionUpload             = "upload"
	ActionDownload           = "download"
	ActionExport             = "export"
	ActionManagePermissions  = "managePermissions"
	ActionManageSubscription = "manageSubscription"
	ActionManageIntegrations = "manageIntegrations"
)

// Reason is a machine-readable denial reason, surfaced in redirects and
// JSON error envelopes so clients can render a specific message.
type Reason string

const (
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonAccountDisabled   Reason = "account_disabled"
	ReasonOwnershipRequired Reason = "ownership_required"
	ReasonPermissionDenied  Reason = "permission_denied"
	ReasonCrossTenantAccess Reason = "cross_tenant_access"
	ReasonOrphanedTenant    Reason = "orphaned_tenant"
	ReasonQuotaExceeded     Reason = "quota_exceeded"
)

// Identity represents an authenticated account: a firm owner or an employee.
type Identity struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	AccountType AccountType      `json:"account_type"`
	OwnerID     *string          `json:"owner_id,omitempty"` // set iff AccountType == AccountEmployee
	Role        Role             `json:"role,omitempty"`
	Department  string           `json:"department,omitempty"`
	Permissions PermissionMatrix `json:"permissions"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// IsOwner reports whether the identity is a tenant-root account.
func (i *Identity) IsOwner() bool {
	return i.AccountType == AccountOwner
}

// IdentityFromContext retrieves the authenticated identity stored by the
// authorization enforcer, or nil if the request was not authenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	ident, _ := ctx.Value(contextkeys.IdentityKey).(*Identity)
	return ident
}
