package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tendant/social-idm/pkg/domain"
)

const (
	// Default token lifetimes
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrJWTSecretMissing = errors.New("jwt secret is required")

// RevocationList records refresh tokens that must no longer be honoured.
// Entries only need to live until the token would have expired anyway.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenConfig holds token issuance configuration.
type TokenConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	JWTSecret       []byte
	Issuer          string
}

// TokenClaims are carried by both access and refresh tokens; TokenType tells
// them apart.
type TokenClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

// AccountID parses the subject as an account id.
func (c *TokenClaims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidToken
	}
	return id, nil
}

// TokenService issues, refreshes and revokes HS256 session tokens.
type TokenService struct {
	config      TokenConfig
	revocations RevocationList
	now         func() time.Time
}

// NewTokenService creates a new token service.
func NewTokenService(config TokenConfig, revocations RevocationList) (*TokenService, error) {
	if len(config.JWTSecret) == 0 {
		return nil, ErrJWTSecretMissing
	}
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if revocations == nil {
		// Tests only; servers pass a persistent list.
		revocations = NewMemoryRevocationList()
	}
	return &TokenService{
		config:      config,
		revocations: revocations,
		now:         time.Now,
	}, nil
}

// AccessTokenTTL returns the access token TTL.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// RefreshTokenTTL returns the refresh token TTL.
func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.config.RefreshTokenTTL
}

// IssueForUser issues a fresh access/refresh pair for a persisted account.
func (s *TokenService) IssueForUser(ctx context.Context, accountID int64) (*domain.TokenPair, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("%w: cannot issue tokens for an unsaved account", domain.ErrAccountNotFound)
	}

	now := s.now()
	subject := strconv.FormatInt(accountID, 10)

	refreshToken, err := s.sign(subject, tokenTypeRefresh, now, s.config.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.sign(subject, tokenTypeAccess, now, s.config.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	tokensIssued.Inc()
	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt:    now.Add(s.config.AccessTokenTTL),
	}, nil
}

// Refresh issues a new access token for a valid, unrevoked refresh token.
// The refresh token itself is returned unchanged.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: revocation lookup: %v", domain.ErrStorageFault, err)
	}
	if revoked {
		return nil, domain.ErrTokenRevoked
	}

	now := s.now()
	accessToken, err := s.sign(claims.Subject, tokenTypeAccess, now, s.config.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt:    now.Add(s.config.AccessTokenTTL),
	}, nil
}

// Blacklist revokes a refresh token. Tokens that are malformed, expired or
// not ours are ignored since they are already unusable.
func (s *TokenService) Blacklist(ctx context.Context, refreshToken string) error {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		slog.Debug("ignoring unusable refresh token on logout", "error", err)
		return nil
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("%w: revoke refresh token: %v", domain.ErrStorageFault, err)
	}
	tokensRevoked.Inc()
	return nil
}

// ValidateAccessToken validates an access token and returns the claims.
func (s *TokenService) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	return s.parse(tokenString, tokenTypeAccess)
}

func (s *TokenService) sign(subject, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
		},
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.JWTSecret)
}

func (s *TokenService) parse(tokenString, tokenType string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.config.JWTSecret, nil
	}, opts...)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
