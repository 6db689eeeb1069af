package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tendant/social-idm/pkg/domain"
)

// SocialTokenVerifier checks a provider credential and returns the identity
// the provider vouches for. Implementations only return identity facts; they
// never create, link or look up accounts.
type SocialTokenVerifier interface {
	// Provider returns the lower-case provider name used for registry lookup.
	Provider() string

	// Verify validates a provider-issued identity token.
	Verify(ctx context.Context, token string) (*domain.VerifiedClaim, error)
}

// CodeExchanger is implemented by verifiers that can also redeem an OAuth
// authorization code (PKCE) for an identity token.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*domain.VerifiedClaim, error)
}

// VerifierRegistry holds the configured verifiers keyed by provider name.
type VerifierRegistry struct {
	verifiers map[string]SocialTokenVerifier
}

// NewVerifierRegistry registers the given verifiers. A later verifier for the
// same provider replaces an earlier one.
func NewVerifierRegistry(list ...SocialTokenVerifier) *VerifierRegistry {
	m := make(map[string]SocialTokenVerifier, len(list))
	for _, v := range list {
		m[strings.ToLower(v.Provider())] = v
	}
	return &VerifierRegistry{verifiers: m}
}

// Get returns the verifier for provider. Lookup is case-insensitive; an
// unknown name fails with domain.ErrUnsupportedProvider.
func (r *VerifierRegistry) Get(provider string) (SocialTokenVerifier, error) {
	v, ok := r.verifiers[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
	return v, nil
}

// Providers returns the registered provider names in sorted order.
func (r *VerifierRegistry) Providers() []string {
	names := make([]string, 0, len(r.verifiers))
	for name := range r.verifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
