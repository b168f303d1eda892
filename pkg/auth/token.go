package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TokenPrefix identifies Chambers API tokens
	TokenPrefix = "chmb_"
	// TokenLength is the total length of random bytes (32 bytes = 256 bits)
	TokenLength = 32
)

// ErrInvalidToken is returned for tokens that are malformed, unknown,
// revoked, or expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// TokenGenerator generates and hashes API tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token.
// Format: chmb_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encodedToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encodedToken

	// Only the SHA256 hash is ever stored.
	hash := sha256.Sum256([]byte(fullToken))
	hashStr := hex.EncodeToString(hash[:])

	// First 8 chars after the prefix, for display and support lookups.
	prefix := TokenPrefix
	if len(encodedToken) >= 8 {
		prefix = TokenPrefix + encodedToken[:8]
	}

	return fullToken, hashStr, prefix, nil
}

// HashToken computes the SHA256 hash of a token for lookup
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("token is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}

	return nil
}

// APIToken represents a stored API token record. The plaintext token is
// returned exactly once at creation time and never stored.
type APIToken struct {
	ID          string     `json:"id"`
	IdentityID  string     `json:"identity_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// TokenStore manages API token lifecycle in Postgres.
type TokenStore struct {
	db        *sql.DB
	generator *TokenGenerator
}

// NewTokenStore creates a new token store
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{
		db:        db,
		generator: NewTokenGenerator(),
	}
}

// CreateToken mints a token for an identity and stores its hash. The
// plaintext token is returned once and cannot be recovered afterwards.
func (ts *TokenStore) CreateToken(ctx context.Context, identityID, name string, expiresAt *time.Time) (*APIToken, string, error) {
	token, tokenHash, tokenPrefix, err := ts.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	rec := &APIToken{
		IdentityID:  identityID,
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Name:        name,
		ExpiresAt:   expiresAt,
	}

	query := `
		INSERT INTO api_tokens (identity_id, token_hash, token_prefix, name, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err = ts.db.QueryRowContext(ctx, query, identityID, tokenHash, tokenPrefix, name, expiresAt).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store token: %w", err)
	}

	return rec, token, nil
}

// Lookup resolves a presented token to an identity ID. Unknown, revoked,
// and expired tokens all return ErrInvalidToken; only infrastructure
// failures surface as other errors.
func (ts *TokenStore) Lookup(ctx context.Context, token string) (string, error) {
	if err := ts.generator.ValidateTokenFormat(token); err != nil {
		return "", ErrInvalidToken
	}

	tokenHash := ts.generator.HashToken(token)

	query := `
		SELECT id, identity_id
		FROM api_tokens
		WHERE token_hash = $1
		  AND revoked_at IS NULL
		  AND (expires_at IS NULL OR expires_at > NOW())
	`
	var tokenID, identityID string
	err := ts.db.QueryRowContext(ctx, query, tokenHash).Scan(&tokenID, &identityID)
	if err == sql.ErrNoRows {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("token lookup: %w", err)
	}

	// Best-effort usage timestamp; a failure here must not fail the request.
	_, _ = ts.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = NOW() WHERE id = $1`, tokenID)

	return identityID, nil
}

// Revoke marks a token revoked.
func (ts *TokenStore) Revoke(ctx context.Context, tokenID string) error {
	result, err := ts.db.ExecContext(ctx,
		`UPDATE api_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, tokenID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrInvalidToken
	}
	return nil
}

// ListTokens lists all tokens for an identity, newest first.
func (ts *TokenStore) ListTokens(ctx context.Context, identityID string) ([]*APIToken, error) {
	query := `
		SELECT id, identity_id, token_prefix, name, expires_at, last_used_at, created_at, revoked_at
		FROM api_tokens
		WHERE identity_id = $1
		ORDER BY created_at DESC
	`
	rows, err := ts.db.QueryContext(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*APIToken
	for rows.Next() {
		t := &APIToken{}
		if err := rows.Scan(&t.ID, &t.IdentityID, &t.TokenPrefix, &t.Name,
			&t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt, &t.RevokedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// DeleteExpired removes tokens past their expiry. Run periodically.
func (ts *TokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := ts.db.ExecContext(ctx,
		`DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
