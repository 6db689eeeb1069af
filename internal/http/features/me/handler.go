package me

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tendant/social-idm/internal/http/features/common"
	"github.com/tendant/social-idm/internal/http/middleware"
	"github.com/tendant/social-idm/internal/httputil"
	"github.com/tendant/social-idm/pkg/account"
)

// ProfileService reads and renames accounts.
type ProfileService interface {
	GetProfile(ctx context.Context, accountID int64) (*account.Snapshot, error)
	UpdateNickname(ctx context.Context, accountID int64, nickname string) (*account.Snapshot, error)
}

// DeactivationService deletes accounts.
type DeactivationService interface {
	Deactivate(ctx context.Context, accountID int64) error
}

// SessionRevoker revokes the caller's refresh token.
type SessionRevoker interface {
	Logout(ctx context.Context, refreshToken string) error
}

// Handler handles user profile endpoints.
type Handler struct {
	logger       *slog.Logger
	profiles     ProfileService
	deactivation DeactivationService
	sessions     SessionRevoker
	cookies      httputil.CookieConfig
}

// NewHandler creates a new me handler.
func NewHandler(
	logger *slog.Logger,
	profiles ProfileService,
	deactivation DeactivationService,
	sessions SessionRevoker,
	cookies httputil.CookieConfig,
) *Handler {
	return &Handler{
		logger:       logger,
		profiles:     profiles,
		deactivation: deactivation,
		sessions:     sessions,
		cookies:      cookies,
	}
}

// UpdateRequest represents a profile update request.
type UpdateRequest struct {
	Nickname *string `json:"nickname"`
}

// DeleteRequest carries the refresh token of mobile clients.
type DeleteRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// GetMe returns the current user's profile.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	snap, err := h.profiles.GetProfile(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if snap == nil {
		h.logger.WarnContext(r.Context(), "profile not found", "account_id", accountID)
		httputil.Error(w, http.StatusNotFound, "account not found")
		return
	}

	httputil.JSON(w, http.StatusOK, common.NewAccountResponse(*snap))
}

// UpdateMe changes the current user's nickname.
// PATCH /v1/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		switch {
		case httputil.IsBodyTooLarge(err):
			httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			httputil.Error(w, http.StatusBadRequest, "nickname is required")
		default:
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
		}
		return
	}
	if req.Nickname == nil {
		httputil.Error(w, http.StatusBadRequest, "nickname is required")
		return
	}

	snap, err := h.profiles.UpdateNickname(r.Context(), accountID, *req.Nickname)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, common.NewAccountResponse(*snap))
}

// DeleteMe deactivates the current user's account and revokes the refresh
// token that came with the request.
// DELETE /v1/me
//
// For web clients: Reads refresh token from cookie, clears cookies.
// For mobile clients: Reads token from the optional request body.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var refreshToken string
	if httputil.IsMobileClient(r) {
		var req DeleteRequest
		if err := httputil.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		refreshToken = req.RefreshToken
	} else {
		refreshToken, _ = httputil.GetRefreshTokenFromCookie(r)
	}

	// Revoke first so a failed revocation leaves the account in place to retry.
	if refreshToken != "" {
		if err := h.sessions.Logout(r.Context(), refreshToken); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	if err := h.deactivation.Deactivate(r.Context(), accountID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if !httputil.IsMobileClient(r) {
		httputil.ClearAuthCookies(w, h.cookies)
	}
	w.WriteHeader(http.StatusNoContent)
}
