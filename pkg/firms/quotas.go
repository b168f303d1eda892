package firms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CheckCaseQuota checks whether the firm can create another case. The
// plan and count are both read live at check time; the result is advisory
// for UI purposes, AdmitCase is the authoritative gate.
func (s *PostgresService) CheckCaseQuota(ctx context.Context, firmID string) error {
	return s.checkQuota(ctx, s.db, firmID, "cases",
		`SELECT COUNT(*) FROM cases WHERE firm_id = $1`)
}

// CheckEmployeeQuota checks whether the firm can add another employee.
func (s *PostgresService) CheckEmployeeQuota(ctx context.Context, firmID string) error {
	return s.checkQuota(ctx, s.db, firmID, "employees",
		`SELECT COUNT(*) FROM identities WHERE owner_id = $1 AND account_type = 'employee' AND is_active = true`)
}

// AdmitCase runs insert inside a transaction that holds the firm row
// locked across the quota count, so concurrent creates for the same firm
// serialize and cannot overshoot the plan limit. Returns a
// QuotaExceededError when the firm is at its case limit.
func (s *PostgresService) AdmitCase(ctx context.Context, firmID string, insert func(tx *sql.Tx) error) error {
	return s.admit(ctx, firmID, "cases",
		`SELECT COUNT(*) FROM cases WHERE firm_id = $1`,
		func(q FirmQuotas) int64 { return q.MaxCases },
		insert)
}

// AdmitEmployee is AdmitCase for employee seats.
func (s *PostgresService) AdmitEmployee(ctx context.Context, firmID string, insert func(tx *sql.Tx) error) error {
	return s.admit(ctx, firmID, "employees",
		`SELECT COUNT(*) FROM identities WHERE owner_id = $1 AND account_type = 'employee' AND is_active = true`,
		func(q FirmQuotas) int64 { return q.MaxEmployees },
		insert)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// firmLimit reads the firm's current plan and derives the limit for one
// resource kind. forUpdate locks the firm row for the rest of the
// transaction, which is what serializes concurrent admissions.
func firmLimit(ctx context.Context, q querier, firmID string, limitOf func(FirmQuotas) int64, forUpdate bool) (PlanTier, int64, error) {
	query := `SELECT plan FROM firms WHERE id = $1 AND is_active = true`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var plan PlanTier
	err := q.QueryRowContext(ctx, query, firmID).Scan(&plan)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrFirmNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to get firm plan: %w", err)
	}
	return plan, limitOf(DefaultQuotas(plan)), nil
}

func (s *PostgresService) checkQuota(ctx context.Context, q querier, firmID, resource, countQuery string) error {
	plan, limit, err := firmLimit(ctx, q, firmID, limitFor(resource), false)
	if err != nil {
		return err
	}

	var count int64
	if err := q.QueryRowContext(ctx, countQuery, firmID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count %s: %w", resource, err)
	}

	if !withinLimit(count, limit) {
		return &QuotaExceededError{Resource: resource, Plan: plan, Current: count, Limit: limit}
	}
	return nil
}

func limitFor(resource string) func(FirmQuotas) int64 {
	switch resource {
	case "employees":
		return func(q FirmQuotas) int64 { return q.MaxEmployees }
	case "clients":
		return func(q FirmQuotas) int64 { return q.MaxClients }
	default:
		return func(q FirmQuotas) int64 { return q.MaxCases }
	}
}

func (s *PostgresService) admit(ctx context.Context, firmID, resource, countQuery string, limitOf func(FirmQuotas) int64, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin admission transaction: %w", err)
	}
	defer tx.Rollback()

	plan, limit, err := firmLimit(ctx, tx, firmID, limitOf, true)
	if err != nil {
		return err
	}

	var count int64
	if err := tx.QueryRowContext(ctx, countQuery, firmID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count %s: %w", resource, err)
	}

	if !withinLimit(count, limit) {
		return &QuotaExceededError{Resource: resource, Plan: plan, Current: count, Limit: limit}
	}

	if err := insert(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit admission transaction: %w", err)
	}
	return nil
}
