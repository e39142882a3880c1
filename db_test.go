package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemDBRevocation(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()

	revoked, err := m.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, revoked)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, m.Revoke(ctx, "tok-1", exp))
	// revoking an already-revoked token is a no-op, not an error
	require.NoError(t, m.Revoke(ctx, "tok-1", exp))

	revoked, err = m.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, revoked)

	// lookup is exact-string, no normalization
	revoked, err = m.IsRevoked(ctx, "TOK-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemDBPurgeExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	now := time.Now()

	require.NoError(t, m.Revoke(ctx, "old", now.Add(-time.Minute)))
	require.NoError(t, m.Revoke(ctx, "fresh", now.Add(time.Hour)))

	n, err := m.PurgeExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	revoked, err := m.IsRevoked(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, revoked)
	revoked, err = m.IsRevoked(ctx, "old")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemDBConcurrentLookups(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB()
	require.NoError(t, m.Revoke(ctx, "tok", time.Now().Add(time.Hour)))

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 1000; j++ {
				if _, err := m.IsRevoked(ctx, "tok"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	go func() {
		defer func() { done <- struct{}{} }()
		for j := 0; j < 100; j++ {
			_ = m.Revoke(ctx, "tok", time.Now().Add(time.Hour))
		}
	}()
	for i := 0; i < 9; i++ {
		<-done
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.close()

	u, err := s.CreateUser(ctx, "Ann", "ann@x.com", "hash", 30)
	require.NoError(t, err)
	require.NotZero(t, u.ID)

	// unique email
	_, err = s.CreateUser(ctx, "Ann2", "ann@x.com", "hash", 31)
	require.Error(t, err)

	got, err := s.GetUserByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Ann", got.Name)

	missing, err := s.GetUserByEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	require.Nil(t, missing)

	_, err = s.CreateUser(ctx, "Bob", "bob@x.com", "hash", 40)
	require.NoError(t, err)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	pts, err := s.IncrementPoints(ctx, "bob@x.com")
	require.NoError(t, err)
	require.EqualValues(t, 1, pts)

	top, err := s.TopScorer(ctx)
	require.NoError(t, err)
	require.Equal(t, "Bob", top.Name)

	avg, err := s.AveragePoints(ctx)
	require.NoError(t, err)
	require.InDelta(t, 0.5, avg, 1e-9)

	require.NoError(t, s.UpdateUser(ctx, "ann@x.com", "Annie", "annie@x.com", "hash2", 31))
	require.ErrorIs(t, s.UpdateUser(ctx, "gone@x.com", "X", "x@x.com", "h", 20), ErrUserNotFound)

	require.NoError(t, s.DeleteUser(ctx, "annie@x.com"))
	require.ErrorIs(t, s.DeleteUser(ctx, "annie@x.com"), ErrUserNotFound)
}

func TestSQLiteRevocation(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.close()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Revoke(ctx, "tok-1", exp))
	require.NoError(t, s.Revoke(ctx, "tok-1", exp))

	revoked, err := s.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "tok-2")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "stale", time.Now().Add(-time.Minute)))
	n, err := s.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
