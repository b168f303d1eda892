package firms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chambersapp/chambers/pkg/auth"
)

// ErrFirmNotFound is returned when no firm row exists for the given ID.
var ErrFirmNotFound = errors.New("firms: firm not found")

// PostgresService implements firm, identity and quota persistence using
// PostgreSQL. It also satisfies auth.IdentityStore, so the credential
// resolver and tenant resolver load identities through the same service.
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// DB exposes the underlying handle for collaborators that share the
// connection pool, such as the case store.
func (s *PostgresService) DB() *sql.DB {
	return s.db
}

// CreateFirm creates a firm row for an owner identity. The firm ID is the
// owner's identity ID.
func (s *PostgresService) CreateFirm(ctx context.Context, firm *Firm) error {
	if firm.Plan == "" {
		firm.Plan = PlanFree
	}
	firm.IsActive = true

	settingsJSON, err := json.Marshal(firm.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		INSERT INTO firms (id, name, plan, settings, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query, firm.ID, firm.Name, firm.Plan, settingsJSON, firm.IsActive).
		Scan(&firm.CreatedAt, &firm.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create firm: %w", err)
	}
	return nil
}

// GetFirm retrieves a firm by ID.
func (s *PostgresService) GetFirm(ctx context.Context, id string) (*Firm, error) {
	query := `
		SELECT id, name, plan, settings, is_active, created_at, updated_at
		FROM firms
		WHERE id = $1
	`
	firm := &Firm{}
	var settingsJSON []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&firm.ID, &firm.Name, &firm.Plan, &settingsJSON,
		&firm.IsActive, &firm.CreatedAt, &firm.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFirmNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get firm: %w", err)
	}

	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &firm.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	return firm, nil
}

// UpdatePlan moves a firm to a new plan tier. Quota limits are derived
// from the plan at admission time, so there is no separate limits row to
// update; the next admission check picks the new limits up automatically.
func (s *PostgresService) UpdatePlan(ctx context.Context, firmID string, plan PlanTier) error {
	query := `UPDATE firms SET plan = $1, updated_at = NOW() WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, plan, firmID)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFirmNotFound
	}
	return nil
}

// UpdateSettings replaces a firm's settings document.
func (s *PostgresService) UpdateSettings(ctx context.Context, firmID string, settings map[string]any) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `UPDATE firms SET settings = $1, updated_at = NOW() WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, settingsJSON, firmID)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFirmNotFound
	}
	return nil
}

const identityColumns = `id, email, account_type, owner_id, role, department, permissions, is_active, created_at, updated_at`

// GetIdentity retrieves an identity by ID, normalizing the stored
// permission representation into the canonical nested matrix. Implements
// auth.IdentityStore.
func (s *PostgresService) GetIdentity(ctx context.Context, id string) (*auth.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return s.scanIdentity(s.db.QueryRowContext(ctx, query, id))
}

// GetIdentityByEmail retrieves an identity by email, for sign-in.
func (s *PostgresService) GetIdentityByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return s.scanIdentity(s.db.QueryRowContext(ctx, query, email))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *PostgresService) scanIdentity(row rowScanner) (*auth.Identity, error) {
	ident := &auth.Identity{}
	var permissionsJSON []byte
	var ownerID sql.NullString
	var role, department sql.NullString

	err := row.Scan(
		&ident.ID, &ident.Email, &ident.AccountType, &ownerID,
		&role, &department, &permissionsJSON, &ident.IsActive,
		&ident.CreatedAt, &ident.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	if ownerID.Valid {
		ident.OwnerID = &ownerID.String
	}
	ident.Role = auth.Role(role.String)
	ident.Department = department.String
	ident.Permissions = auth.NormalizePermissions(permissionsJSON)
	return ident, nil
}

// GetUsage computes live usage counts for a firm. The counts are scoped
// to the tenant and recomputed on every call; admission decisions use the
// transactional path in quotas.go instead.
func (s *PostgresService) GetUsage(ctx context.Context, firmID string) (*FirmUsage, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM cases WHERE firm_id = $1),
			(SELECT COUNT(*) FROM identities WHERE owner_id = $1 AND account_type = 'employee' AND is_active = true),
			(SELECT COUNT(*) FROM clients WHERE firm_id = $1),
			NOW()
	`
	usage := &FirmUsage{FirmID: firmID}
	err := s.db.QueryRowContext(ctx, query, firmID).Scan(
		&usage.CasesCount, &usage.EmployeeCount, &usage.ClientsCount, &usage.ComputedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	return usage, nil
}
