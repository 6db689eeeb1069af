package domain

import "time"

// VerifiedClaim is the identity a social verifier vouches for. It is consumed
// once per login attempt and never persisted.
type VerifiedClaim struct {
	SocialID string
	Email    string
	Nickname string
}

// TokenPair represents the access and refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}
