// Package auth provides identity, credential, and permission primitives for
// the Chambers multi-tenant authorization engine.
//
// # Identity Model
//
// Every account is an Identity with one of two account types:
//
//   - owner: the tenant root. A firm is identified by its owner's identity
//     ID. Owners are implicitly authorized for every in-tenant action that
//     is not ownership-restricted, regardless of their stored matrix.
//   - employee: a subordinate account carrying a non-nil owner reference
//     and a permission matrix. Employees are authorized strictly per that
//     matrix and their tenant scope.
//
// # Permission Matrix
//
// PermissionMatrix is a category -> action -> bool grant table. The
// canonical shape (CategoryActions) covers eight categories (cases,
// clients, appointments, documents, financial, employees, reports,
// firmSettings). DefaultMatrix resolves the canonical matrix for a role:
// it is a pure total function, and any value outside the role enum yields
// the all-false matrix (fail closed) rather than an error.
//
// Stored permission data may appear in legacy shapes (flat
// "category.action" maps or sets); NormalizePermissions converts all of
// them to the canonical nested matrix at load time so downstream checks
// only ever see one representation.
//
// # Credentials
//
// Two credential carriers exist:
//
//   - a server-managed session (SessionStore, redis-backed, sliding TTL)
//     referenced by the chambers_session cookie
//   - an opaque chmb_-prefixed API token (TokenStore, Postgres-backed,
//     stored as a SHA-256 hash)
//
// Resolver.ResolveIdentity tries the session first, then the bearer
// header, and normalizes both paths into the same Identity. It
// distinguishes "no valid credential" (ErrNoCredential) from
// infrastructure failures so the HTTP layer can answer 401 versus 5xx
// correctly.
//
// # Tenant Resolution
//
// ResolveTenant maps an identity to its firm ID. An employee whose owner
// reference is missing, deleted, deactivated, or not actually an owner
// resolves to ErrOrphanedTenant, which callers treat as an authorization
// failure rather than a crash.
package auth
