// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/chambersapp/chambers/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.IdentityKey, ident)
//   ident := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains *auth.Identity
	// Set by: middleware.Enforcer (pkg/middleware/enforcer.go) after authentication
	// Required by: All protected handlers, resource guard, quota middleware
	// Type: *auth.Identity
	IdentityKey Key = "identity"

	// FirmKey contains *firms.Firm
	// Set by: middleware.FirmContext (pkg/middleware/firm.go)
	// Required by: Firm-scoped handlers, quota middleware
	// Type: *firms.Firm
	FirmKey Key = "firm"

	// TenantIDKey contains the resolved tenant (firm) ID string
	// Set by: middleware.Enforcer after tenant resolution
	// Used by: Resource guard, quota admission, case handlers
	// Type: string
	TenantIDKey Key = "tenant_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"
)

// WithIdentity stores an authenticated identity in the context.
// The value type is left as interface{} so this package does not import
// pkg/auth; callers assert back to *auth.Identity via auth.IdentityFromContext.
func WithIdentity(ctx context.Context, ident interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, ident)
}

// WithTenantID stores the resolved tenant (firm) ID in the context.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// TenantID retrieves the resolved tenant ID, or "" if not set.
func TenantID(ctx context.Context) string {
	id, _ := ctx.Value(TenantIDKey).(string)
	return id
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID retrieves the request ID, or "" if not set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
