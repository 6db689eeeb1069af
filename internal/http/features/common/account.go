package common

import (
	"net/http"
	"time"

	"github.com/tendant/social-idm/internal/httputil"
	"github.com/tendant/social-idm/pkg/account"
	"github.com/tendant/social-idm/pkg/domain"
)

// SocialLinkResponse is a linked provider identity.
type SocialLinkResponse struct {
	Provider string `json:"provider"`
	SocialID string `json:"social_id"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID          int64                `json:"id"`
	Email       string               `json:"email"`
	Nickname    string               `json:"nickname"`
	SocialLinks []SocialLinkResponse `json:"social_links"`
	CreatedAt   time.Time            `json:"created_at"`
	LastLoginAt *time.Time           `json:"last_login_at,omitempty"`
}

// NewAccountResponse converts a snapshot into its JSON form.
func NewAccountResponse(s account.Snapshot) AccountResponse {
	links := make([]SocialLinkResponse, len(s.SocialLinks))
	for i, l := range s.SocialLinks {
		links[i] = SocialLinkResponse{Provider: l.Provider, SocialID: l.SocialID}
	}
	return AccountResponse{
		ID:          s.ID,
		Email:       s.Email,
		Nickname:    s.Nickname,
		SocialLinks: links,
		CreatedAt:   s.CreatedAt,
		LastLoginAt: s.LastLoginAt,
	}
}

// TokenResponse carries session tokens. Web clients get the tokens as
// cookies, so both token fields are left empty for them.
type TokenResponse struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenDelivery writes tokens as cookies (web) or in the body (mobile).
type TokenDelivery struct {
	Cookies    httputil.CookieConfig
	RefreshTTL time.Duration
}

// Deliver sets cookies for web clients and returns the token part of the
// response body.
func (d TokenDelivery) Deliver(w http.ResponseWriter, r *http.Request, tokens domain.TokenPair) TokenResponse {
	resp := TokenResponse{
		TokenType: tokens.TokenType,
		ExpiresIn: tokens.ExpiresIn,
		ExpiresAt: tokens.ExpiresAt,
	}
	if httputil.IsMobileClient(r) {
		resp.AccessToken = tokens.AccessToken
		resp.RefreshToken = tokens.RefreshToken
		return resp
	}
	httputil.SetAuthCookies(w, tokens, d.RefreshTTL, d.Cookies)
	return resp
}
