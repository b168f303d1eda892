package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionStore(client, ttl), mr
}

func TestSessionStore_CreateAndLookup(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, "ident-1")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	identityID, err := store.Lookup(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "ident-1", identityID)
}

func TestSessionStore_Lookup_Unknown(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)

	_, err := store.Lookup(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionStore_Lookup_Expired(t *testing.T) {
	store, mr := newTestSessionStore(t, time.Minute)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, "ident-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Lookup(ctx, sessionID)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionStore_Lookup_SlidingExpiry(t *testing.T) {
	store, mr := newTestSessionStore(t, time.Minute)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, "ident-1")
	require.NoError(t, err)

	// Each lookup refreshes the TTL, so repeated activity keeps the
	// session alive past the original deadline.
	mr.FastForward(40 * time.Second)
	_, err = store.Lookup(ctx, sessionID)
	require.NoError(t, err)

	mr.FastForward(40 * time.Second)
	_, err = store.Lookup(ctx, sessionID)
	assert.NoError(t, err)
}

func TestSessionStore_Destroy(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, "ident-1")
	require.NoError(t, err)

	require.NoError(t, store.Destroy(ctx, sessionID))

	_, err = store.Lookup(ctx, sessionID)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionStore_Lookup_InfrastructureFailure(t *testing.T) {
	store, mr := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, "ident-1")
	require.NoError(t, err)

	mr.Close()

	_, err = store.Lookup(ctx, sessionID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSession,
		"redis being down must not read as an expired session")
}
