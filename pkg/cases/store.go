package cases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrCaseNotFound is returned when no case exists for the given ID.
var ErrCaseNotFound = errors.New("cases: case not found")

// ErrAssigneeNotInFirm is returned when a case is assigned to an identity
// outside the firm or to a deactivated account.
var ErrAssigneeNotInFirm = errors.New("cases: assignee is not an active member of the firm")

// PostgresStore persists cases in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const caseColumns = `id, firm_id, title, description, status, assigned_to, created_by, created_at, updated_at`

// GetCase loads a case by ID alone, deliberately unscoped: the resource
// guard compares the row's firm to the caller's tenant and decides how a
// cross-tenant hit is reported, so the store must not hide the row first.
func (s *PostgresStore) GetCase(ctx context.Context, id string) (*Case, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
	return scanCase(row)
}

// ListCases returns every case in the firm, newest first. Callers with
// only the view grant should use ListVisibleCases instead.
func (s *PostgresStore) ListCases(ctx context.Context, firmID string) ([]*Case, error) {
	return s.list(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE firm_id = $1 ORDER BY created_at DESC`,
		firmID)
}

// ListVisibleCases returns the firm's cases created by or assigned to the
// given identity, for employees without the viewAll grant.
func (s *PostgresStore) ListVisibleCases(ctx context.Context, firmID, identityID string) ([]*Case, error) {
	return s.list(ctx,
		`SELECT `+caseColumns+` FROM cases
		 WHERE firm_id = $1 AND (created_by = $2 OR assigned_to = $2)
		 ORDER BY created_at DESC`,
		firmID, identityID)
}

// CreateTx inserts a case inside an admission transaction. The caller
// obtains tx from the firm quota gate, which holds the firm row locked.
func (s *PostgresStore) CreateTx(tx *sql.Tx, c *Case) error {
	err := tx.QueryRow(
		`INSERT INTO cases (id, firm_id, title, description, status, assigned_to, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		c.ID, c.FirmID, c.Title, c.Description, c.Status, c.AssignedTo, c.CreatedBy,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert case: %w", err)
	}
	return nil
}

// UpdateCase writes the mutable fields back. The firm scope in the WHERE
// clause is a second line of defense behind the guard.
func (s *PostgresStore) UpdateCase(ctx context.Context, c *Case) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE cases SET title = $1, description = $2, status = $3, updated_at = NOW()
		 WHERE id = $4 AND firm_id = $5`,
		c.Title, c.Description, c.Status, c.ID, c.FirmID)
	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}
	return requireRow(result)
}

// AssignCase sets or clears the assignee. A non-nil assignee must be an
// active member of the firm.
func (s *PostgresStore) AssignCase(ctx context.Context, firmID, caseID string, assignedTo *string) error {
	if assignedTo != nil {
		ok, err := s.identityInFirm(ctx, firmID, *assignedTo)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAssigneeNotInFirm
		}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE cases SET assigned_to = $1, updated_at = NOW() WHERE id = $2 AND firm_id = $3`,
		assignedTo, caseID, firmID)
	if err != nil {
		return fmt.Errorf("failed to assign case: %w", err)
	}
	return requireRow(result)
}

// DeleteCase removes a case within its firm.
func (s *PostgresStore) DeleteCase(ctx context.Context, firmID, caseID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cases WHERE id = $1 AND firm_id = $2`, caseID, firmID)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	return requireRow(result)
}

// identityInFirm reports whether the identity is the firm owner or one of
// its active employees.
func (s *PostgresStore) identityInFirm(ctx context.Context, firmID, identityID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM identities
			WHERE id = $1 AND is_active = true AND (id = $2 OR owner_id = $2)
		)`, identityID, firmID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check firm membership: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...interface{}) ([]*Case, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var result []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row rowScanner) (*Case, error) {
	var c Case
	var description, assignedTo sql.NullString
	err := row.Scan(&c.ID, &c.FirmID, &c.Title, &description, &c.Status,
		&assignedTo, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan case: %w", err)
	}
	c.Description = description.String
	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.String
	}
	return &c, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrCaseNotFound
	}
	return nil
}
