package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_SECRET")
}

func TestNewDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "8080", c.Port)
	require.Equal(t, "postgres", c.DBAdapter)
	require.Equal(t, "db", c.RevocationAdapter)
	require.NotEmpty(t, c.PostgresDSN)
	require.Equal(t, time.Hour, c.PruneInterval)
}

func TestNewRejectsUnknownAdapters(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_ADAPTER", "mongodb")
	_, err := New()
	require.Error(t, err)

	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("REVOCATION_ADAPTER", "memcached")
	_, err = New()
	require.Error(t, err)
}

func TestNewRejectsBadPruneInterval(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("PRUNE_INTERVAL", "often")
	_, err := New()
	require.Error(t, err)
}
