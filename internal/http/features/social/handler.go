package social

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/social-idm/internal/http/features/common"
	"github.com/tendant/social-idm/internal/httputil"
	"github.com/tendant/social-idm/pkg/account"
	"github.com/tendant/social-idm/pkg/domain"
)

// LoginService signs users in with a social provider.
type LoginService interface {
	LoginOrRegister(ctx context.Context, req account.LoginRequest) (*account.AuthResult, error)
}

// AuthorizationURLBuilder builds a provider's authorization URL for the code
// flow.
type AuthorizationURLBuilder interface {
	AuthCodeURL(state, codeChallenge string) (string, error)
}

// Handler handles social login endpoints.
type Handler struct {
	logger     *slog.Logger
	login      LoginService
	authorizer map[string]AuthorizationURLBuilder
	delivery   common.TokenDelivery
}

// NewHandler creates a new social login handler. authorizers may be nil when
// no provider supports the code flow.
func NewHandler(logger *slog.Logger, login LoginService, authorizers map[string]AuthorizationURLBuilder, delivery common.TokenDelivery) *Handler {
	byName := make(map[string]AuthorizationURLBuilder, len(authorizers))
	for name, builder := range authorizers {
		byName[providerKey(name)] = builder
	}
	return &Handler{
		logger:     logger,
		login:      login,
		authorizer: byName,
		delivery:   delivery,
	}
}

// providerKey matches provider names the way the verifier registry does.
func providerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LoginRequest is the social login request body. Either IDToken or Code is
// required.
type LoginRequest struct {
	Provider     string `json:"provider"`
	IDToken      string `json:"id_token"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	Nickname     string `json:"nickname"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	common.TokenResponse
	IsNewUser bool                   `json:"is_new_user"`
	Account   common.AccountResponse `json:"account"`
}

// AuthorizeResponse carries the provider authorization URL.
type AuthorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// Login signs in with a social token, registering the account on first use.
// POST /v1/auth/social/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		if httputil.IsBodyTooLarge(err) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Provider == "" {
		httputil.Error(w, http.StatusBadRequest, "provider is required")
		return
	}
	if req.IDToken == "" && req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "id_token or code is required")
		return
	}

	result, err := h.login.LoginOrRegister(r.Context(), account.LoginRequest{
		Provider:           req.Provider,
		IDToken:            req.IDToken,
		Code:               req.Code,
		CodeVerifier:       req.CodeVerifier,
		NicknameSuggestion: req.Nickname,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, LoginResponse{
		TokenResponse: h.delivery.Deliver(w, r, result.Tokens),
		IsNewUser:     result.IsNewUser,
		Account:       common.NewAccountResponse(result.Account),
	})
}

// Authorize returns the provider's authorization URL for the code flow. The
// client generates state and the PKCE verifier and keeps both.
// GET /v1/auth/social/{provider}/authorize?state=...&code_challenge=...
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	builder, ok := h.authorizer[providerKey(chi.URLParam(r, "provider"))]
	if !ok {
		httputil.WriteError(w, domain.ErrUnsupportedProvider)
		return
	}

	state := r.URL.Query().Get("state")
	challenge := r.URL.Query().Get("code_challenge")
	if state == "" || challenge == "" {
		httputil.Error(w, http.StatusBadRequest, "state and code_challenge are required")
		return
	}

	url, err := builder.AuthCodeURL(state, challenge)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, AuthorizeResponse{AuthorizationURL: url})
}
