package firms

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema migrations for identities, firms and
// the tenant-scoped resource tables.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create identities table",
			SQL: `
				CREATE TABLE IF NOT EXISTS identities (
					id UUID PRIMARY KEY,
					email VARCHAR(255) NOT NULL UNIQUE,
					account_type VARCHAR(20) NOT NULL,
					owner_id UUID REFERENCES identities(id) ON DELETE CASCADE,
					role VARCHAR(50),
					department VARCHAR(255),
					permissions JSONB NOT NULL DEFAULT '{}',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CHECK (account_type IN ('owner', 'employee')),
					CHECK (account_type = 'owner' OR owner_id IS NOT NULL)
				);

				CREATE INDEX idx_identities_owner_id ON identities(owner_id);
				CREATE INDEX idx_identities_email ON identities(email);
			`,
		},
		{
			Version:     2,
			Description: "Create firms table",
			SQL: `
				CREATE TABLE IF NOT EXISTS firms (
					id UUID PRIMARY KEY REFERENCES identities(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					plan VARCHAR(50) NOT NULL DEFAULT 'free',
					settings JSONB NOT NULL DEFAULT '{}',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     3,
			Description: "Create cases table",
			SQL: `
				CREATE TABLE IF NOT EXISTS cases (
					id UUID PRIMARY KEY,
					firm_id UUID NOT NULL REFERENCES firms(id) ON DELETE CASCADE,
					title VARCHAR(500) NOT NULL,
					description TEXT,
					status VARCHAR(50) NOT NULL DEFAULT 'open',
					assigned_to UUID REFERENCES identities(id) ON DELETE SET NULL,
					created_by UUID NOT NULL REFERENCES identities(id),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_cases_firm_id ON cases(firm_id);
				CREATE INDEX idx_cases_assigned_to ON cases(assigned_to);
				CREATE INDEX idx_cases_created_by ON cases(created_by);
			`,
		},
		{
			Version:     4,
			Description: "Create clients table",
			SQL: `
				CREATE TABLE IF NOT EXISTS clients (
					id UUID PRIMARY KEY,
					firm_id UUID NOT NULL REFERENCES firms(id) ON DELETE CASCADE,
					name VARCHAR(500) NOT NULL,
					email VARCHAR(255),
					phone VARCHAR(50),
					created_by UUID NOT NULL REFERENCES identities(id),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_clients_firm_id ON clients(firm_id);
			`,
		},
		{
			Version:     5,
			Description: "Create api_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_tokens (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					identity_id UUID NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
					token_hash VARCHAR(64) NOT NULL UNIQUE,
					token_prefix VARCHAR(16) NOT NULL,
					name VARCHAR(255),
					last_used_at TIMESTAMP,
					expires_at TIMESTAMP,
					revoked_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_api_tokens_identity_id ON api_tokens(identity_id);
				CREATE INDEX idx_api_tokens_token_hash ON api_tokens(token_hash);
			`,
		},
		{
			Version:     6,
			Description: "Create audit_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_logs (
					id BIGSERIAL PRIMARY KEY,
					firm_id UUID,
					identity_id UUID,
					action VARCHAR(255) NOT NULL,
					path VARCHAR(1000),
					reason VARCHAR(100),
					allowed BOOLEAN NOT NULL,
					request_id VARCHAR(64),
					details JSONB,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_audit_logs_firm_id ON audit_logs(firm_id);
				CREATE INDEX idx_audit_logs_identity_id ON audit_logs(identity_id);
				CREATE INDEX idx_audit_logs_created_at ON audit_logs(created_at);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chambers_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM chambers_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chambers_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
