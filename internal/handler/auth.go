package handler

import (
	"log/slog"
	"net/http"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/service"
)

// AuthHandler serves signup, login and password resets.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Signup handles POST /api/v1/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.svc.Signup(r.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	}, requestMeta(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, requestMeta(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac := auth.MustAuthFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), ac, requestMeta(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

// RequestPasswordReset handles POST /api/v1/auth/password-reset.
// It answers 202 whether or not the email is known.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	token, err := h.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusAccepted, dto.PasswordResetResponse{
		Message:    "If the email exists, a reset link has been sent",
		ResetToken: token,
	})
}

// ConfirmPasswordReset handles POST /api/v1/auth/password-reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.ConfirmPasswordReset(r.Context(), req.Token, req.Password, requestMeta(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
