package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chambersapp/chambers/pkg/observability"
)

// ErrNoCredential is returned when a request carries no resolvable
// credential: no session cookie and no bearer token, or only credentials
// that are invalid or expired.
var ErrNoCredential = errors.New("auth: no credential presented")

const (
	defaultResolveTimeout = 3 * time.Second
	defaultCacheSize      = 4096
	defaultCacheTTL       = 30 * time.Second
)

// Resolver resolves the identity behind a request from exactly one of two
// carriers: the server-managed session cookie, then the Authorization
// bearer header. The first successful resolution wins. Both carriers
// produce the same normalized Identity, so downstream code never sees the
// two credential paths.
type Resolver struct {
	sessions *SessionStore
	tokens   *TokenStore
	store    IdentityStore
	timeout  time.Duration

	// cache maps token hash -> identity for the bearer path. The TTL is
	// short so deactivations and permission edits propagate quickly.
	cache *expirable.LRU[string, *Identity]

	metrics *observability.Metrics
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolveTimeout bounds identity/session lookups per request.
func WithResolveTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// WithTokenCache sets the bearer-token cache size and TTL.
func WithTokenCache(size int, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.cache = expirable.NewLRU[string, *Identity](size, nil, ttl)
	}
}

// WithMetrics records credential resolution attempts and token cache
// activity on m.
func WithMetrics(m *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a new identity resolver.
func NewResolver(sessions *SessionStore, tokens *TokenStore, store IdentityStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		sessions: sessions,
		tokens:   tokens,
		store:    store,
		timeout:  defaultResolveTimeout,
		cache:    expirable.NewLRU[string, *Identity](defaultCacheSize, nil, defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveIdentity authenticates a request. It returns ErrNoCredential when
// no valid credential is presented; any other error is an infrastructure
// failure (store unavailable, dependency timeout) that callers must surface
// as a server error, never as an authorization failure.
func (r *Resolver) ResolveIdentity(ctx context.Context, req *http.Request) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Session credential first.
	if cookie, err := req.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		identityID, err := r.sessions.Lookup(ctx, cookie.Value)
		switch {
		case err == nil:
			r.countAttempt("session", "success")
			return r.loadIdentity(ctx, identityID)
		case errors.Is(err, ErrInvalidSession):
			r.countAttempt("session", "invalid")
			// Fall through to the bearer credential.
		default:
			r.countAttempt("session", "error")
			return nil, fmt.Errorf("resolve identity: %w", err)
		}
	}

	// Bearer token second.
	token := bearerToken(req)
	if token == "" {
		return nil, ErrNoCredential
	}

	cacheKey := NewTokenGenerator().HashToken(token)
	if ident, ok := r.cache.Get(cacheKey); ok {
		if r.metrics != nil {
			r.metrics.TokenCacheHitsTotal.Inc()
		}
		r.countAttempt("bearer", "success")
		return ident, nil
	}
	if r.metrics != nil {
		r.metrics.TokenCacheMissTotal.Inc()
	}

	identityID, err := r.tokens.Lookup(ctx, token)
	if errors.Is(err, ErrInvalidToken) {
		r.countAttempt("bearer", "invalid")
		return nil, ErrNoCredential
	}
	if err != nil {
		r.countAttempt("bearer", "error")
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	ident, err := r.loadIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	r.countAttempt("bearer", "success")
	r.cache.Add(cacheKey, ident)
	return ident, nil
}

func (r *Resolver) countAttempt(carrier, outcome string) {
	if r.metrics != nil {
		r.metrics.AuthAttemptsTotal.WithLabelValues(carrier, outcome).Inc()
	}
}

func (r *Resolver) loadIdentity(ctx context.Context, identityID string) (*Identity, error) {
	ident, err := r.store.GetIdentity(ctx, identityID)
	if errors.Is(err, ErrIdentityNotFound) {
		// Credential refers to a deleted identity; treat as unauthenticated.
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return ident, nil
}

// bearerToken extracts the bearer token from the Authorization header, or
// "" when the header is absent or not a bearer credential.
func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
