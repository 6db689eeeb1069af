package account

import (
	"time"

	"github.com/tendant/social-idm/pkg/domain"
)

// SocialLinkSnapshot is a plain copy of a linked provider identity.
type SocialLinkSnapshot struct {
	Provider string
	SocialID string
}

// Snapshot is a read-only copy of an account taken at the end of a workflow.
// It carries no behaviour and is safe to hand to the presentation layer.
type Snapshot struct {
	ID          int64
	Email       string
	Nickname    string
	SocialLinks []SocialLinkSnapshot
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

// NewSnapshot copies the state of a.
func NewSnapshot(a *domain.Account) Snapshot {
	links := a.SocialLinks()
	out := make([]SocialLinkSnapshot, len(links))
	for i, l := range links {
		out[i] = SocialLinkSnapshot{Provider: l.Provider(), SocialID: l.SocialID()}
	}
	return Snapshot{
		ID:          a.ID(),
		Email:       a.Email().Address(),
		Nickname:    a.Nickname().Name(),
		SocialLinks: out,
		CreatedAt:   a.CreatedAt(),
		LastLoginAt: a.LastLoginAt(),
	}
}
