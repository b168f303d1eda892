package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SessionCookie is the name of the server-managed session cookie.
const SessionCookie = "chambers_session"

// ErrInvalidSession is returned for sessions that are unknown or expired.
var ErrInvalidSession = errors.New("auth: invalid or expired session")

// sessionKeyPrefix namespaces session keys in redis.
const sessionKeyPrefix = "session:"

type sessionRecord struct {
	IdentityID string    `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionStore manages server-side sessions in redis. Sessions carry only
// the identity ID; claims are always loaded fresh from the identity store
// so permission and plan changes take effect on the next request.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a new session store with the given TTL.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create opens a session for an identity and returns the session ID.
func (ss *SessionStore) Create(ctx context.Context, identityID string) (string, error) {
	sessionID := uuid.NewString()

	payload, err := json.Marshal(sessionRecord{
		IdentityID: identityID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := ss.client.Set(ctx, sessionKeyPrefix+sessionID, payload, ss.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return sessionID, nil
}

// Lookup resolves a session ID to an identity ID and refreshes the TTL
// (sliding expiry). Unknown and expired sessions return ErrInvalidSession.
func (ss *SessionStore) Lookup(ctx context.Context, sessionID string) (string, error) {
	payload, err := ss.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return "", ErrInvalidSession
	}
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return "", ErrInvalidSession
	}

	// Sliding expiry; a failure here is not fatal to the request.
	_ = ss.client.Expire(ctx, sessionKeyPrefix+sessionID, ss.ttl).Err()

	return rec.IdentityID, nil
}

// Destroy removes a session.
func (ss *SessionStore) Destroy(ctx context.Context, sessionID string) error {
	if err := ss.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
