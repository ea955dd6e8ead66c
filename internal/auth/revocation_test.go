package auth

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/observability"
)

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	revoked, err := store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "tok", time.Time{}))
	require.NoError(t, store.Revoke(ctx, "tok", time.Time{}))

	revoked, err = store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryRevocationStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Revoke(ctx, "tok-"+strconv.Itoa(i), time.Time{})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = store.IsRevoked(ctx, "tok-"+strconv.Itoa(i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, store.Len())
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestRedisRevocationStore(t *testing.T) {
	ctx := context.Background()
	srv, client := newMiniredis(t)
	store := NewRedisRevocationStore(client, "")

	revoked, err := store.IsRevoked(ctx, "raw-session-token")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "raw-session-token", time.Now().Add(time.Hour)))

	revoked, err = store.IsRevoked(ctx, "raw-session-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	key := store.key("raw-session-token")
	assert.True(t, srv.Exists(key))
	assert.NotContains(t, key, "raw-session-token", "raw token must not be stored as the key")
	ttl := srv.TTL(key)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	srv.FastForward(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "raw-session-token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevocationStore_UnknownExpiryIsPermanent(t *testing.T) {
	ctx := context.Background()
	srv, client := newMiniredis(t)
	store := NewRedisRevocationStore(client, "test:")

	require.NoError(t, store.Revoke(ctx, "tok", time.Time{}))
	assert.Equal(t, time.Duration(0), srv.TTL(store.key("tok")))
}

func TestRedisRevocationStore_ExpiredTokenKeepsMinimumTTL(t *testing.T) {
	ctx := context.Background()
	srv, client := newMiniredis(t)
	store := NewRedisRevocationStore(client, "test:")

	require.NoError(t, store.Revoke(ctx, "tok", time.Now().Add(-time.Hour)))
	assert.Equal(t, minRedisRevocationTTL, srv.TTL(store.key("tok")))
}

func TestRedisRevocationStore_Unavailable(t *testing.T) {
	srv, client := newMiniredis(t)
	store := NewRedisRevocationStore(client, "")
	srv.Close()

	_, err := store.IsRevoked(context.Background(), "tok")
	assert.Error(t, err)
}

func TestRevocationManager_LogsTruncatedPrefix(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := observability.NewMetrics()
	store := NewMemoryRevocationStore()
	mgr := NewRevocationManager(store, zap.New(core), metrics)

	issued, err := NewTokenManager("secret", time.Hour).GenerateToken("u-1", "a@x.com", domain.RoleUser)
	require.NoError(t, err)

	require.NoError(t, mgr.Revoke(context.Background(), issued.Value))

	revoked, err := mgr.IsRevoked(context.Background(), issued.Value)
	require.NoError(t, err)
	assert.True(t, revoked)

	entries := logs.FilterMessage("token revoked").All()
	require.Len(t, entries, 1)
	prefix := entries[0].ContextMap()["token_prefix"].(string)
	assert.Equal(t, issued.Value[:20]+"...", prefix)
	assert.NotContains(t, prefix, issued.Value[20:])
}

func TestTokenPrefix_Short(t *testing.T) {
	assert.Equal(t, "abc...", TokenPrefix("abc"))
}
