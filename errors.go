package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// Verification outcomes. The gate and the signer return these as distinct
// sentinels so callers can tell "log in again" from "refresh" from "rejected".
var (
	ErrNoToken           = errors.New("no bearer token presented")
	ErrTokenMalformed    = errors.New("token is malformed")
	ErrTokenBadSignature = errors.New("token signature mismatch")
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenRevoked      = errors.New("token has been revoked")
	ErrRevocationStore   = errors.New("revocation store unavailable")
	ErrUserExists        = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
)

// APIError represents a structured API error response
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

// writeError writes a structured error response
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIError{Code: code, Message: message})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// writeAuthFailure maps a verification outcome to its response class:
// missing or revoked tokens are 401 (present new credentials), malformed or
// mis-signed tokens are 403, expired is 403 with its own code so clients know
// to refresh instead of re-login. Store failures are 5xx, never an auth
// rejection.
func writeAuthFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoToken):
		writeError(w, http.StatusUnauthorized, "NO_TOKEN", "No token provided")
	case errors.Is(err, ErrTokenRevoked):
		writeError(w, http.StatusUnauthorized, "TOKEN_REVOKED", "Token has been revoked")
	case errors.Is(err, ErrTokenExpired):
		writeError(w, http.StatusForbidden, "TOKEN_EXPIRED", "Token has expired")
	case errors.Is(err, ErrTokenMalformed), errors.Is(err, ErrTokenBadSignature):
		writeError(w, http.StatusForbidden, "INVALID_TOKEN", "Invalid token")
	case errors.Is(err, ErrRevocationStore):
		writeError(w, http.StatusServiceUnavailable, "REVOCATION_UNAVAILABLE", "Unable to verify token revocation")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
