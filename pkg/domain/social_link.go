package domain

import "fmt"

// IdentityProvider constants
const (
	ProviderGoogle = "google"
)

// supportedProviders is the allow-list for social links.
var supportedProviders = map[string]bool{
	ProviderGoogle: true,
}

// IsSupportedProvider reports whether provider is on the allow-list.
func IsSupportedProvider(provider string) bool {
	return supportedProviders[provider]
}

// SocialLink binds an account to a provider-scoped subject id.
type SocialLink struct {
	provider string
	socialID string
}

// NewSocialLink validates the provider first, then the social id.
func NewSocialLink(provider, socialID string) (SocialLink, error) {
	if !IsSupportedProvider(provider) {
		return SocialLink{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	if socialID == "" {
		return SocialLink{}, ErrSocialIDEmpty
	}
	return SocialLink{provider: provider, socialID: socialID}, nil
}

// ParseSocialLink builds a link from loosely typed input such as decoded JSON
// claims. Non-string values fail with ErrTypeMismatch; a nil social id is
// treated as empty.
func ParseSocialLink(provider, socialID any) (SocialLink, error) {
	p, ok := provider.(string)
	if !ok {
		return SocialLink{}, ErrProviderNotText
	}
	if socialID == nil {
		return NewSocialLink(p, "")
	}
	id, ok := socialID.(string)
	if !ok {
		return SocialLink{}, ErrSocialIDNotText
	}
	return NewSocialLink(p, id)
}

// Provider returns the provider name.
func (l SocialLink) Provider() string {
	return l.provider
}

// SocialID returns the provider-scoped subject id.
func (l SocialLink) SocialID() string {
	return l.socialID
}

func (l SocialLink) String() string {
	return l.provider + ":" + l.socialID
}
