// Package routes provides the static route-permission registry and matcher
// used by the edge authorization enforcer.
//
// Each registry entry maps a URL pattern to the permission required to
// reach it: a category, an action, and an owner-only flag. Patterns are
// made of literal path segments plus at most one {wildcard} segment, which
// matches exactly one non-empty segment, never several.
//
// Patterns are compiled once when the registry is built, never per
// request. NewRegistry rejects tables where two patterns could match the
// same concrete path, so coverage is guaranteed unambiguous at startup.
//
// A path with no matching entry requires authentication only; the enforcer
// treats "no match" as "no additional permission required", not as a
// denial.
package routes
