package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *TokenSigner {
	t.Helper()
	s, err := NewTokenSigner("test-secret")
	require.NoError(t, err)
	return s
}

func TestNewTokenSignerRejectsEmptySecret(t *testing.T) {
	_, err := NewTokenSigner("")
	require.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := newTestSigner(t)

	tok, err := s.Sign("Ann", "ann@x.com", accessTokenTTL)
	require.NoError(t, err)

	claims, err := s.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "Ann", claims.Name)
	require.Equal(t, "ann@x.com", claims.Email)
}

func TestVerifyTamperedTokenIsBadSignature(t *testing.T) {
	s := newTestSigner(t)

	tok, err := s.Sign("Ann", "ann@x.com", accessTokenTTL)
	require.NoError(t, err)

	// flip a byte in the signature segment; must never read as expired
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = s.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenBadSignature)
	require.NotErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyExpiredToken(t *testing.T) {
	s := newTestSigner(t)

	issued := time.Now()
	s.now = func() time.Time { return issued }
	tok, err := s.Sign("Ann", "ann@x.com", accessTokenTTL)
	require.NoError(t, err)

	// still valid just before the expiry instant
	s.now = func() time.Time { return issued.Add(accessTokenTTL - time.Second) }
	_, err = s.Verify(tok)
	require.NoError(t, err)

	// rejected just after, even though never revoked
	s.now = func() time.Time { return issued.Add(accessTokenTTL + time.Second) }
	_, err = s.Verify(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyMalformedToken(t *testing.T) {
	s := newTestSigner(t)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := s.Verify(tok)
		require.ErrorIs(t, err, ErrTokenMalformed, "token %q", tok)
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	s := newTestSigner(t)
	other, err := NewTokenSigner("another-secret")
	require.NoError(t, err)

	tok, err := other.Sign("Ann", "ann@x.com", accessTokenTTL)
	require.NoError(t, err)

	_, err = s.Verify(tok)
	require.ErrorIs(t, err, ErrTokenBadSignature)
}

func TestDecodeUnverifiedReadsExpiryWithoutSignature(t *testing.T) {
	s := newTestSigner(t)

	issued := time.Now().Truncate(time.Second)
	s.now = func() time.Time { return issued }
	tok, err := s.Sign("Ann", "ann@x.com", accessTokenTTL)
	require.NoError(t, err)

	// break the signature; decode must still read the claims
	parts := strings.Split(tok, ".")
	broken := parts[0] + "." + parts[1] + "." + "AAAA"

	claims, err := s.DecodeUnverified(broken)
	require.NoError(t, err)
	require.Equal(t, "ann@x.com", claims.Email)
	require.NotNil(t, claims.ExpiresAt)
	require.Equal(t, issued.Add(accessTokenTTL).Unix(), claims.ExpiresAt.Unix())
}

func TestIssuePairDiffersByExpiryOnly(t *testing.T) {
	s := newTestSigner(t)

	issued := time.Now().Truncate(time.Second)
	s.now = func() time.Time { return issued }
	pair, err := s.IssuePair("Ann", "ann@x.com")
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	access, err := s.Verify(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := s.Verify(pair.RefreshToken)
	require.NoError(t, err)

	require.Equal(t, access.Name, refresh.Name)
	require.Equal(t, access.Email, refresh.Email)
	require.Equal(t, issued.Add(accessTokenTTL).Unix(), access.ExpiresAt.Unix())
	require.Equal(t, issued.Add(refreshTokenTTL).Unix(), refresh.ExpiresAt.Unix())
}

func TestExchange(t *testing.T) {
	s := newTestSigner(t)

	issued := time.Now()
	s.now = func() time.Time { return issued }
	pair, err := s.IssuePair("Ann", "ann@x.com")
	require.NoError(t, err)

	// succeeds for the full refresh window
	s.now = func() time.Time { return issued.Add(refreshTokenTTL - time.Second) }
	access, err := s.Exchange(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := s.Verify(access)
	require.NoError(t, err)
	require.Equal(t, "Ann", claims.Name)
	require.Equal(t, "ann@x.com", claims.Email)
	require.NotEqual(t, pair.AccessToken, access)

	// fails with Expired immediately after
	s.now = func() time.Time { return issued.Add(refreshTokenTTL + time.Second) }
	_, err = s.Exchange(pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("hunter22boo")
	require.NoError(t, err)
	require.True(t, comparePassword(hash, "hunter22boo"))
	require.False(t, comparePassword(hash, "hunter22bob"))
}
