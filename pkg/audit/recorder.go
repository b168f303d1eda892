// Package audit records authorization and administration events to the
// audit trail. Denials at the edge enforcer and quota gate land here, so
// a firm owner can answer "who tried what, and why was it refused".
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Recorder is the interface for writing audit events.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// NopRecorder discards all events. Used in tests and when auditing is
// disabled in configuration.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, event *Event) error { return nil }

// PostgresRecorder persists audit events to the audit_logs table.
// Recording failures are logged but never propagated: an audit outage
// must not turn into request failures.
type PostgresRecorder struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewPostgresRecorder creates a PostgresRecorder.
func NewPostgresRecorder(db *sql.DB, log *logrus.Logger) *PostgresRecorder {
	return &PostgresRecorder{db: db, log: log}
}

// Record writes one event.
func (r *PostgresRecorder) Record(ctx context.Context, event *Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var detailsJSON []byte
	if event.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (firm_id, identity_id, action, path, reason, allowed, request_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		event.FirmID, event.IdentityID, event.Action, event.Path, event.Reason,
		event.Allowed, event.RequestID, detailsJSON, event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		r.log.WithError(err).WithField("action", event.Action).Warn("failed to record audit event")
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// ListFilter narrows a ListEvents query. Zero values mean "no filter".
type ListFilter struct {
	FirmID     string
	IdentityID string
	Action     EventType
	Since      time.Time
	Limit      int
}

// ListEvents returns events matching the filter, newest first.
func (r *PostgresRecorder) ListEvents(ctx context.Context, filter ListFilter) ([]*Event, error) {
	query := `
		SELECT id, firm_id, identity_id, action, path, reason, allowed, request_id, details, created_at
		FROM audit_logs
		WHERE ($1 = '' OR firm_id = $1::uuid)
		  AND ($2 = '' OR identity_id = $2::uuid)
		  AND ($3 = '' OR action = $3)
		  AND created_at >= $4
		ORDER BY created_at DESC
		LIMIT $5
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, query,
		filter.FirmID, filter.IdentityID, string(filter.Action), filter.Since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event := &Event{}
		var firmID, identityID sql.NullString
		var detailsJSON []byte
		if err := rows.Scan(
			&event.ID, &firmID, &identityID, &event.Action, &event.Path,
			&event.Reason, &event.Allowed, &event.RequestID, &detailsJSON, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if firmID.Valid {
			event.FirmID = &firmID.String
		}
		if identityID.Valid {
			event.IdentityID = &identityID.String
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &event.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteOlderThan prunes events past the retention window. Returns the
// number of rows removed.
func (r *PostgresRecorder) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit events: %w", err)
	}
	return result.RowsAffected()
}
