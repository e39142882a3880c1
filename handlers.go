package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Age      int    `json:"age" validate:"required,gte=18,lte=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (a *App) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	existing, err := a.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to look up user")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "USER_EXISTS", "User with this email already exists")
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process password")
		return
	}
	user, err := a.Store.CreateUser(r.Context(), req.Name, req.Email, hashed, req.Age)
	if err != nil {
		writeError(w, http.StatusConflict, "USER_EXISTS", "User with this email already exists")
		return
	}
	pair, err := a.Signer.IssuePair(user.Name, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue tokens")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user": map[string]interface{}{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	user, err := a.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to look up user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}
	if !comparePassword(user.Password, req.Password) {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid password")
		return
	}
	pair, err := a.Signer.IssuePair(user.Name, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// HandleRefresh exchanges a refresh token, presented as a bearer credential,
// for a fresh access token. Signature and expiry only; the denylist is not
// consulted and no new refresh token is minted.
func (a *App) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeAuthFailure(w, err)
		return
	}
	access, err := a.Signer.Exchange(token)
	if err != nil {
		writeAuthFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

// revokePresented denylists the access token the caller authenticated with.
// The token already passed the gate, so the unverified decode is only used to
// copy its expiry onto the revocation record. Fail closed: if the insert
// cannot be confirmed the caller is told so instead of getting a fake success.
func (a *App) revokePresented(w http.ResponseWriter, r *http.Request, trigger string) bool {
	token, err := bearerToken(r)
	if err != nil {
		writeAuthFailure(w, err)
		return false
	}
	claims, err := a.Signer.DecodeUnverified(token)
	if err != nil || claims.ExpiresAt == nil {
		writeError(w, http.StatusForbidden, "INVALID_TOKEN", "Invalid token")
		return false
	}
	if err := a.Revocations.Revoke(r.Context(), token, claims.ExpiresAt.Time); err != nil {
		a.Log.Error("revocation insert failed", zap.String("trigger", trigger), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "REVOCATION_UNAVAILABLE", "Could not revoke token")
		return false
	}
	revocationsTotal.WithLabelValues(trigger).Inc()
	return true
}

func (a *App) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !a.revokePresented(w, r, "logout") {
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// HandleValidate reports the authenticated identity behind the presented
// token. The gate has already run; this just echoes what it accepted.
func (a *App) HandleValidate(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeAuthFailure(w, ErrNoToken)
		return
	}
	resp := map[string]interface{}{
		"name":  claims.Name,
		"email": claims.Email,
	}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *App) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeAuthFailure(w, ErrNoToken)
		return
	}
	user, err := a.Store.GetUserByEmail(r.Context(), claims.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to look up user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

func (a *App) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeAuthFailure(w, ErrNoToken)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	hashed, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process password")
		return
	}
	err = a.Store.UpdateUser(r.Context(), claims.Email, req.Name, req.Email, hashed, req.Age)
	switch {
	case errors.Is(err, ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	case errors.Is(err, ErrUserExists):
		writeError(w, http.StatusConflict, "USER_EXISTS", "Email already in use")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update user")
		return
	}
	// Outstanding tokens keep the old email; they are not invalidated here.
	writeSuccess(w, http.StatusOK, map[string]string{"message": "User updated successfully"})
}

// HandleDeleteAccount deletes the caller's account and, as a session
// termination side effect, denylists the access token it was presented with.
func (a *App) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeAuthFailure(w, ErrNoToken)
		return
	}
	err := a.Store.DeleteUser(r.Context(), claims.Email)
	if errors.Is(err, ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete user")
		return
	}
	if !a.revokePresented(w, r, "account_deletion") {
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

func (a *App) HandleIncrementPoint(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeAuthFailure(w, ErrNoToken)
		return
	}
	points, err := a.Store.IncrementPoints(r.Context(), claims.Email)
	if errors.Is(err, ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to increment points")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Point incremented successfully",
		"points":  points,
	})
}

func (a *App) HandleTopScore(w http.ResponseWriter, r *http.Request) {
	top, err := a.Store.TopScorer(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query top score")
		return
	}
	if top == nil {
		writeError(w, http.StatusNotFound, "NO_USERS", "No users found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"topUser": top.Name,
		"points":  top.Points,
	})
}

func (a *App) HandleAveragePoint(w http.ResponseWriter, r *http.Request) {
	avg, err := a.Store.AveragePoints(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query average")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"averagePoint": avg,
	})
}
