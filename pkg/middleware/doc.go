// Package middleware provides the HTTP authorization chain for Chambers.
//
// # Middleware Ordering Requirements
//
// The authorization middleware has strict ordering dependencies. Incorrect
// order causes checks to be silently skipped.
//
// REQUIRED ORDERING (outer to inner):
//  1. Enforcer - authenticates the request, resolves the tenant, and
//     checks the route-permission table. Sets identity and tenant ID in
//     the request context.
//  2. FirmContext - loads the firm row for the resolved tenant (only
//     needed by handlers that read plan or settings).
//  3. Quota middleware - EnforceCaseQuota / EnforceEmployeeQuota on
//     create endpoints. These are advisory pre-checks; the authoritative
//     admission gate is the transactional path in pkg/firms, which the
//     create handlers call.
//
// Example (correct):
//
//	router.Use(enforcer.Handler)
//	router.Handle("/api/v1/cases/create",
//	    quota.EnforceCaseQuota(createCaseHandler)).Methods("POST")
//
// If quota middleware runs before the Enforcer, no tenant ID is in the
// context and the quota check fails closed with a 500 rather than being
// skipped.
package middleware
