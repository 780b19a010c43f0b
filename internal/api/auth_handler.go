package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"parkease-api/internal/apperr"
	"parkease-api/internal/auth"
	"parkease-api/internal/model"
	"parkease-api/internal/store"
)

const refreshCookie = "refresh_token"

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	// emails are stored lowercase so uniqueness is case-insensitive
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Email == "" || body.Password == "" || body.Name == "" {
		a.fail(w, apperr.New(apperr.Validation, "email, password and name are required"))
		return
	}
	if len(body.Password) < 8 {
		a.fail(w, apperr.New(apperr.Validation, "password must be at least 8 characters"))
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		a.fail(w, err)
		return
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        body.Email,
		Name:         body.Name,
		PasswordHash: hash,
	}
	created, err := a.gate.Ensure(r.Context(), u)
	if err != nil {
		a.fail(w, err)
		return
	}
	if created.ID != u.ID {
		// identity already registered; don't reveal more than that
		a.fail(w, apperr.New(apperr.Conflict, "registration failed"))
		return
	}

	tok, err := auth.MakeToken(created.ID, a.secret)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"userId": created.ID,
		"token":  tok,
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		a.fail(w, err)
		return
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Email == "" || body.Password == "" {
		a.fail(w, apperr.New(apperr.Validation, "email and password are required"))
		return
	}

	u, err := a.store.UserByEmail(r.Context(), body.Email)
	if err != nil || !auth.CheckPassword(u.PasswordHash, body.Password) {
		// same shape for unknown user and wrong password
		a.fail(w, apperr.New(apperr.Unauthenticated, "invalid credentials"))
		return
	}

	tok, err := auth.MakeToken(u.ID, a.secret)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := a.issueRefreshCookie(w, r, u.ID); err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"userId": u.ID,
		"name":   u.Name,
		"role":   u.Role,
		"token":  tok,
	})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookie)
	if err != nil || c.Value == "" {
		a.fail(w, apperr.New(apperr.Unauthenticated, "missing refresh token"))
		return
	}

	rt, err := a.store.RefreshTokenByHash(r.Context(), auth.HashRefreshToken(c.Value))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.fail(w, apperr.New(apperr.Unauthenticated, "invalid refresh token"))
			return
		}
		a.fail(w, err)
		return
	}
	if rt.Revoked || time.Now().After(rt.ExpiresAt) {
		// reuse of a rotated token means possible theft, cut everything
		if rt.Revoked {
			_ = a.store.RevokeAllRefreshTokens(r.Context(), rt.UserID)
		}
		a.fail(w, apperr.New(apperr.Unauthenticated, "refresh token expired"))
		return
	}

	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		a.fail(w, err)
		return
	}
	newID := uuid.New().String()
	expiry := time.Now().Add(auth.RefreshTokenTTL)
	if err := a.store.RotateRefreshToken(r.Context(), rt.ID, newID, rt.UserID, hash, expiry); err != nil {
		a.fail(w, err)
		return
	}
	a.setRefreshCookie(w, r, raw, expiry)

	tok, err := auth.MakeToken(rt.UserID, a.secret)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"token": tok})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(refreshCookie); err == nil && c.Value != "" {
		if rt, err := a.store.RefreshTokenByHash(r.Context(), auth.HashRefreshToken(c.Value)); err == nil {
			_ = a.store.RevokeAllRefreshTokens(r.Context(), rt.UserID)
		}
	}
	a.setRefreshCookie(w, r, "", time.Unix(0, 0))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) issueRefreshCookie(w http.ResponseWriter, r *http.Request, userID string) error {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return err
	}
	expiry := time.Now().Add(auth.RefreshTokenTTL)
	if _, err := a.store.CreateRefreshToken(r.Context(), userID, hash, expiry); err != nil {
		return err
	}
	a.setRefreshCookie(w, r, raw, expiry)
	return nil
}

func (a *API) setRefreshCookie(w http.ResponseWriter, r *http.Request, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    value,
		Path:     "/auth",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}
