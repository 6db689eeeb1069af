package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tendant/social-idm/internal/http/features/common"
	"github.com/tendant/social-idm/internal/http/middleware"
	"github.com/tendant/social-idm/internal/httputil"
	"github.com/tendant/social-idm/pkg/domain"
)

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
}

// LogoutService revokes refresh tokens.
type LogoutService interface {
	Logout(ctx context.Context, refreshToken string) error
}

// Handler handles session endpoints.
type Handler struct {
	logger   *slog.Logger
	tokens   TokenRefresher
	logout   LogoutService
	delivery common.TokenDelivery
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, tokens TokenRefresher, logout LogoutService, delivery common.TokenDelivery) *Handler {
	return &Handler{
		logger:   logger,
		tokens:   tokens,
		logout:   logout,
		delivery: delivery,
	}
}

// RefreshRequest represents a token refresh request (for mobile clients).
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest represents a logout request (for mobile clients).
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh refreshes an access token.
// POST /v1/auth/refresh
//
// For web clients: Reads refresh token from cookie, sets new cookies.
// For mobile clients: Reads/returns tokens in request/response body.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string

	if httputil.IsMobileClient(r) {
		var req RefreshRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		refreshToken = req.RefreshToken
	} else {
		var ok bool
		refreshToken, ok = httputil.GetRefreshTokenFromCookie(r)
		if !ok {
			httputil.Error(w, http.StatusUnauthorized, "refresh token not found")
			return
		}
	}

	if refreshToken == "" {
		httputil.Error(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	tokens, err := h.tokens.Refresh(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrTokenRevoked) {
			// Clear cookies on invalid token for web clients
			if !httputil.IsMobileClient(r) {
				httputil.ClearAuthCookies(w, h.delivery.Cookies)
			}
		} else {
			h.logger.ErrorContext(r.Context(), "refresh failed", "error", err,
				"request_id", middleware.GetRequestID(r.Context()))
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, h.delivery.Deliver(w, r, *tokens))
}

// Logout revokes the refresh token.
// POST /v1/auth/logout
// Requires authentication
//
// For web clients: Reads refresh token from cookie, clears cookies.
// For mobile clients: Reads token from request body.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var refreshToken string

	if httputil.IsMobileClient(r) {
		var req LogoutRequest
		if err := httputil.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		refreshToken = req.RefreshToken
	} else {
		refreshToken, _ = httputil.GetRefreshTokenFromCookie(r)
	}

	// Unusable tokens are ignored by the service.
	if refreshToken != "" {
		if err := h.logout.Logout(r.Context(), refreshToken); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	if !httputil.IsMobileClient(r) {
		httputil.ClearAuthCookies(w, h.delivery.Cookies)
	}

	if accountID, ok := middleware.GetAccountID(r.Context()); ok {
		h.logger.InfoContext(r.Context(), "logged out", "account_id", accountID)
	}
	w.WriteHeader(http.StatusNoContent)
}
