package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/tendant/social-idm/pkg/domain"
)

const (
	googleAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL  = "https://oauth2.googleapis.com/token"
	googleJWKSURL   = "https://www.googleapis.com/oauth2/v3/certs"
	googleIssuer    = "https://accounts.google.com"
	googleIssuerAlt = "accounts.google.com"

	// DefaultVerifyTimeout bounds a single verification including key fetches.
	DefaultVerifyTimeout = 5 * time.Second

	// googleClockSkew is tolerated on the expiry check.
	googleClockSkew = 5 * time.Second
)

var (
	ErrGoogleClientIDMissing = errors.New("google client id is required")
	ErrCodeExchangeDisabled  = fmt.Errorf("%w: authorization code flow is not configured", domain.ErrValidation)
)

// GoogleConfig holds Google OAuth configuration.
type GoogleConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURI     string
	MobileClientIDs []string
	Timeout         time.Duration
}

// GoogleVerifier verifies Google ID tokens against Google's published keys
// and, when a client secret is configured, redeems authorization codes.
type GoogleVerifier struct {
	config     GoogleConfig
	verifier   *oidc.IDTokenVerifier
	oauth      *oauth2.Config
	httpClient *http.Client
	audiences  []string
	now        func() time.Time
}

// NewGoogleVerifier creates a verifier that fetches signing keys from Google.
// Keys are fetched lazily so construction does not touch the network.
func NewGoogleVerifier(ctx context.Context, config GoogleConfig) (*GoogleVerifier, error) {
	if strings.TrimSpace(config.ClientID) == "" {
		return nil, ErrGoogleClientIDMissing
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultVerifyTimeout
	}
	client := &http.Client{Timeout: config.Timeout}
	keySet := oidc.NewRemoteKeySet(oidc.ClientContext(context.WithoutCancel(ctx), client), googleJWKSURL)
	v, err := NewGoogleVerifierWithKeySet(config, keySet)
	if err != nil {
		return nil, err
	}
	v.httpClient = client
	return v, nil
}

// NewGoogleVerifierWithKeySet creates a verifier backed by keySet.
func NewGoogleVerifierWithKeySet(config GoogleConfig, keySet oidc.KeySet) (*GoogleVerifier, error) {
	if strings.TrimSpace(config.ClientID) == "" {
		return nil, ErrGoogleClientIDMissing
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultVerifyTimeout
	}

	v := &GoogleVerifier{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		now:        time.Now,
	}
	v.audiences = append(v.audiences, config.ClientID)
	for _, id := range config.MobileClientIDs {
		if id = strings.TrimSpace(id); id != "" {
			v.audiences = append(v.audiences, id)
		}
	}

	// Issuer and audience are checked by hand: Google uses two issuer
	// spellings and mobile apps present their own client ids.
	v.verifier = oidc.NewVerifier(googleIssuer, keySet, &oidc.Config{
		SkipClientIDCheck: true,
		SkipIssuerCheck:   true,
		Now: func() time.Time {
			return v.now().Add(-googleClockSkew)
		},
	})

	if config.ClientSecret != "" {
		v.oauth = &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: googleTokenURL,
			},
			Scopes: []string{oidc.ScopeOpenID, "profile", "email"},
		}
	}
	return v, nil
}

// Provider returns "google".
func (v *GoogleVerifier) Provider() string {
	return domain.ProviderGoogle
}

// Verify validates a Google ID token. Signature, expiry, issuer or audience
// failures and missing subject or email yield domain.ErrTokenInvalid; key
// fetch failures and timeouts yield domain.ErrUpstreamUnavailable.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*domain.VerifiedClaim, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	claim, err := v.verify(ctx, strings.TrimSpace(token))
	observeVerification(domain.ProviderGoogle, "id_token", start, err)
	return claim, err
}

// ExchangeCode redeems a PKCE authorization code and verifies the returned
// ID token.
func (v *GoogleVerifier) ExchangeCode(ctx context.Context, code, codeVerifier string) (*domain.VerifiedClaim, error) {
	if v.oauth == nil {
		return nil, ErrCodeExchangeDisabled
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: empty authorization code", domain.ErrTokenInvalid)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	claim, err := v.exchange(ctx, code, codeVerifier)
	observeVerification(domain.ProviderGoogle, "code", start, err)
	return claim, err
}

// AuthCodeURL builds the authorization URL with an S256 PKCE challenge.
func (v *GoogleVerifier) AuthCodeURL(state, codeChallenge string) (string, error) {
	if v.oauth == nil {
		return "", ErrCodeExchangeDisabled
	}
	return v.oauth.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

func (v *GoogleVerifier) exchange(ctx context.Context, code, codeVerifier string) (*domain.VerifiedClaim, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)

	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}
	tok, err := v.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			return nil, fmt.Errorf("%w: code exchange rejected: %s", domain.ErrTokenInvalid, retrieveErr.ErrorCode)
		}
		return nil, classifyVerifyError(ctx, err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: google did not return id_token", domain.ErrTokenInvalid)
	}
	return v.verify(ctx, rawIDToken)
}

func (v *GoogleVerifier) verify(ctx context.Context, raw string) (*domain.VerifiedClaim, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty id token", domain.ErrTokenInvalid)
	}

	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, classifyVerifyError(ctx, err)
	}

	if idToken.Issuer != googleIssuer && idToken.Issuer != googleIssuerAlt {
		return nil, fmt.Errorf("%w: unexpected issuer %q", domain.ErrTokenInvalid, idToken.Issuer)
	}
	if !slices.ContainsFunc(idToken.Audience, func(aud string) bool {
		return slices.Contains(v.audiences, aud)
	}) {
		return nil, fmt.Errorf("%w: audience mismatch", domain.ErrTokenInvalid)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: claims: %v", domain.ErrTokenInvalid, err)
	}

	link, err := domain.ParseSocialLink(domain.ProviderGoogle, claims["sub"])
	if err != nil {
		return nil, fmt.Errorf("%w: subject: %v", domain.ErrTokenInvalid, err)
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: missing email claim", domain.ErrTokenInvalid)
	}
	// An unverified address must not link to an account that owns it.
	if emailUnverified(claims["email_verified"]) {
		return nil, fmt.Errorf("%w: email not verified by google", domain.ErrTokenInvalid)
	}
	name, _ := claims["name"].(string)

	slog.Debug("google id token verified",
		"issuer", idToken.Issuer,
		"audience", idToken.Audience,
		"expiry_unix", idToken.Expiry.Unix(),
	)

	return &domain.VerifiedClaim{
		SocialID: link.SocialID(),
		Email:    email,
		Nickname: strings.TrimSpace(name),
	}, nil
}

// emailUnverified reports whether Google explicitly marked the address as
// unverified. Google sends the flag as a bool, or as a string in some older
// tokens.
func emailUnverified(v any) bool {
	switch flag := v.(type) {
	case bool:
		return !flag
	case string:
		return strings.EqualFold(flag, "false")
	default:
		return false
	}
}

// classifyVerifyError separates "the provider could not be reached" from
// "the provider says no".
func classifyVerifyError(ctx context.Context, err error) error {
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	case strings.Contains(err.Error(), "fetching keys"):
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	var expired *oidc.TokenExpiredError
	if errors.As(err, &expired) {
		return fmt.Errorf("%w: token expired at %s", domain.ErrTokenInvalid, expired.Expiry.UTC().Format(time.RFC3339))
	}
	return fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
}
