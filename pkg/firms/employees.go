package firms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chambersapp/chambers/pkg/auth"
)

// ErrEmployeeNotFound is returned when no employee with the given ID
// belongs to the firm.
var ErrEmployeeNotFound = errors.New("firms: employee not found in firm")

// ErrInvalidRole is returned when a role outside the canonical enum is
// submitted for an employee.
var ErrInvalidRole = errors.New("invalid role")

// AddEmployeeRequest represents request to provision an employee account
type AddEmployeeRequest struct {
	Email      string    `json:"email"`
	Role       auth.Role `json:"role"`
	Department string    `json:"department,omitempty"`
}

// AddEmployee provisions an employee identity under the firm, seeded with
// the canonical permission matrix for its role. Admission goes through the
// transactional employee quota gate, so a firm at its seat limit gets a
// QuotaExceededError and no row is written.
func (s *PostgresService) AddEmployee(ctx context.Context, firmID string, req AddEmployeeRequest) (*auth.Identity, error) {
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidRole, req.Role)
	}

	ident := &auth.Identity{
		ID:          uuid.NewString(),
		Email:       req.Email,
		AccountType: auth.AccountEmployee,
		OwnerID:     &firmID,
		Role:        req.Role,
		Department:  req.Department,
		Permissions: auth.DefaultMatrix(req.Role, auth.AccountEmployee),
		IsActive:    true,
	}

	permissionsJSON, err := json.Marshal(ident.Permissions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal permissions: %w", err)
	}

	err = s.AdmitEmployee(ctx, firmID, func(tx *sql.Tx) error {
		query := `
			INSERT INTO identities (id, email, account_type, owner_id, role, department, permissions, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query, ident.ID, ident.Email, ident.AccountType,
			firmID, ident.Role, ident.Department, permissionsJSON, ident.IsActive).
			Scan(&ident.CreatedAt, &ident.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create employee: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ident, nil
}

// ListEmployees lists the firm's employee identities.
func (s *PostgresService) ListEmployees(ctx context.Context, firmID string) ([]*auth.Identity, error) {
	query := `SELECT ` + identityColumns + `
		FROM identities
		WHERE owner_id = $1 AND account_type = 'employee'
		ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, firmID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*auth.Identity
	for rows.Next() {
		ident, err := s.scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, ident)
	}
	return employees, rows.Err()
}

// UpdateEmployeeRole changes an employee's role and resets its permission
// matrix to the new role's canonical default. Manual overrides on the old
// matrix are intentionally discarded; the role defines the ceiling. Only
// the named identity is touched, sibling employees keep their matrices.
func (s *PostgresService) UpdateEmployeeRole(ctx context.Context, firmID, employeeID string, role auth.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidRole, role)
	}

	permissionsJSON, err := json.Marshal(auth.DefaultMatrix(role, auth.AccountEmployee))
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		UPDATE identities
		SET role = $1, permissions = $2, updated_at = NOW()
		WHERE id = $3 AND owner_id = $4 AND account_type = 'employee'
	`
	result, err := s.db.ExecContext(ctx, query, role, permissionsJSON, employeeID, firmID)
	if err != nil {
		return fmt.Errorf("failed to update employee role: %w", err)
	}
	return requireEmployeeRow(result)
}

// UpdateEmployeePermissions replaces an employee's permission matrix with
// a manual override. Entries outside the canonical shape are dropped by
// normalization before storage.
func (s *PostgresService) UpdateEmployeePermissions(ctx context.Context, firmID, employeeID string, matrix auth.PermissionMatrix) error {
	raw, err := json.Marshal(matrix)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}
	permissionsJSON, err := json.Marshal(auth.NormalizePermissions(raw))
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		UPDATE identities
		SET permissions = $1, updated_at = NOW()
		WHERE id = $2 AND owner_id = $3 AND account_type = 'employee'
	`
	result, err := s.db.ExecContext(ctx, query, permissionsJSON, employeeID, firmID)
	if err != nil {
		return fmt.Errorf("failed to update employee permissions: %w", err)
	}
	return requireEmployeeRow(result)
}

// DeactivateEmployee disables an employee account, freeing its seat for
// the employee quota. The row is kept for audit history.
func (s *PostgresService) DeactivateEmployee(ctx context.Context, firmID, employeeID string) error {
	query := `
		UPDATE identities
		SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND account_type = 'employee'
	`
	result, err := s.db.ExecContext(ctx, query, employeeID, firmID)
	if err != nil {
		return fmt.Errorf("failed to deactivate employee: %w", err)
	}
	return requireEmployeeRow(result)
}

func requireEmployeeRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}
