package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthSession     EventType = "auth.session"
	EventTypeAuthToken       EventType = "auth.token"
	EventTypeAuthFailed      EventType = "auth.failed"
	EventTypeAuthTokenRevoke EventType = "auth.token_revoke"

	// Authorization events
	EventTypeAccessDenied    EventType = "authz.access_denied"
	EventTypeOwnershipDenied EventType = "authz.ownership_denied"
	EventTypeCrossTenant     EventType = "authz.cross_tenant"
	EventTypeQuotaDenied     EventType = "quota.denied"

	// Administration events
	EventTypeEmployeeCreate     EventType = "admin.employee_create"
	EventTypeEmployeeRoleChange EventType = "admin.employee_role_change"
	EventTypePermissionChange   EventType = "admin.permission_change"
	EventTypeEmployeeDeactivate EventType = "admin.employee_deactivate"
	EventTypePlanChange         EventType = "admin.plan_change"
)

// Event represents a single audit log entry. FirmID and IdentityID are
// pointers because unauthenticated denials have neither.
type Event struct {
	ID         int64          `json:"id"`
	FirmID     *string        `json:"firm_id,omitempty"`
	IdentityID *string        `json:"identity_id,omitempty"`
	Action     EventType      `json:"action"`
	Path       string         `json:"path,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Allowed    bool           `json:"allowed"`
	RequestID  string         `json:"request_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
