package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 24 * time.Hour
)

// TokenSigner owns the signing secret and the token lifecycle: minting,
// verified parsing, and the narrow unverified decode used at revocation time.
// The secret is loaded once at startup and never mutated afterwards.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

func NewTokenSigner(secret string) (*TokenSigner, error) {
	if secret == "" {
		return nil, errors.New("signing secret must not be empty")
	}
	return &TokenSigner{secret: []byte(secret), now: time.Now}, nil
}

// Sign mints a token carrying the claims with expiry now+ttl.
func (s *TokenSigner) Sign(name, email string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature and expiry and returns the claims. Failures are
// distinguishable: ErrTokenMalformed, ErrTokenBadSignature, ErrTokenExpired.
func (s *TokenSigner) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrTokenBadSignature, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// DecodeUnverified extracts claims without checking the signature. It exists
// solely to read the expiry off a token the caller already trusts as the
// bearer's own (logout, account deletion). Never an authorization check.
func (s *TokenSigner) DecodeUnverified(tokenStr string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	return &claims, nil
}

// IssuePair mints the access/refresh pair for an identity. Both carry the same
// claims; only the TTL differs.
func (s *TokenSigner) IssuePair(name, email string) (*TokenPair, error) {
	access, err := s.Sign(name, email, accessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Sign(name, email, refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	tokensIssued.WithLabelValues("access").Inc()
	tokensIssued.WithLabelValues("refresh").Inc()
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Exchange validates a refresh token and mints a fresh access token. It runs
// signature and expiry checks only; the revocation denylist tracks access
// tokens and is deliberately not consulted here. No refresh rotation.
func (s *TokenSigner) Exchange(refreshToken string) (string, error) {
	claims, err := s.Verify(refreshToken)
	if err != nil {
		return "", err
	}
	access, err := s.Sign(claims.Name, claims.Email, accessTokenTTL)
	if err != nil {
		return "", err
	}
	tokensIssued.WithLabelValues("access").Inc()
	return access, nil
}

func hashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	return string(b), err
}

func comparePassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}
