// Package observability provides logging, Prometheus metrics, health
// probes and graceful shutdown for the Chambers services.
//
// Metrics follow the chambers_* naming convention. Authorization
// decisions and quota admissions are first-class metrics here because
// they are the subsystem operators page on: a spike in denials or in
// 5xx classification failures is the earliest signal that a tenant is
// misconfigured or a dependency is down.
package observability
