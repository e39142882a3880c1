package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisRevocations(t *testing.T) (*RedisRevocations, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRevocations(client, ""), mr
}

func TestRedisRevoke(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisRevocations(t)

	revoked, err := store.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, revoked)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, store.Revoke(ctx, "tok-1", exp))
	require.NoError(t, store.Revoke(ctx, "tok-1", exp))

	revoked, err = store.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestRedisEntryExpiresWithToken(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisRevocations(t)

	require.NoError(t, store.Revoke(ctx, "tok-1", time.Now().Add(time.Hour)))

	mr.FastForward(time.Hour + time.Minute)

	// the entry is gone, which is fine: the token itself is past expiry and
	// signature validation rejects it
	revoked, err := store.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRedisRevokeAlreadyExpiredTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisRevocations(t)

	require.NoError(t, store.Revoke(ctx, "tok-1", time.Now().Add(-time.Minute)))

	revoked, err := store.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisRevocations(t)
	mr.Close()

	_, err := store.IsRevoked(ctx, "tok-1")
	require.ErrorIs(t, err, ErrRevocationStore)

	err = store.Revoke(ctx, "tok-1", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrRevocationStore)
}
