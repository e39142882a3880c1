package main

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents a registered account. Email is the identity key throughout;
// tokens carry no numeric subject.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Age       int       `json:"age"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Claims is the identity payload embedded in every token. Access and refresh
// tokens share the shape and differ only in the TTL applied at minting time.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenPair is the result of issuance: a short-lived access token and a
// longer-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RevokedToken is a denylist entry. Token is the exact string that was
// presented; ExpiresAt is copied from the token's own expiry, after which the
// record is redundant with signature-expiry rejection and safe to purge.
type RevokedToken struct {
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
