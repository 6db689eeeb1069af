package domain

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// NewAccountID is the identity of an account that has not been persisted.
const NewAccountID int64 = 0

// NicknameAvailable reports whether nickname is free for accountID, treating
// the account's own current nickname as free.
type NicknameAvailable func(ctx context.Context, nickname Nickname, accountID int64) (bool, error)

// Account is the aggregate root for one user's identity, nickname and linked
// social providers. It is mutated in place during a single workflow and
// compared by identity only.
type Account struct {
	id          int64
	email       Email
	nickname    Nickname
	socialLinks []SocialLink
	createdAt   time.Time
	lastLoginAt *time.Time
}

// NewAccount creates an unsaved account for a first social login.
func NewAccount(email Email, nickname Nickname, link SocialLink, now time.Time) *Account {
	return &Account{
		id:          NewAccountID,
		email:       email,
		nickname:    nickname,
		socialLinks: []SocialLink{link},
		createdAt:   now,
		lastLoginAt: &now,
	}
}

// RestoreAccount rebuilds an account from persisted state. Duplicate links
// are dropped, keeping the first occurrence.
func RestoreAccount(id int64, email Email, nickname Nickname, links []SocialLink, createdAt time.Time, lastLoginAt *time.Time) *Account {
	a := &Account{
		id:          id,
		email:       email,
		nickname:    nickname,
		createdAt:   createdAt,
		lastLoginAt: lastLoginAt,
	}
	for _, l := range links {
		a.AddSocialLink(l)
	}
	return a
}

// AddSocialLink appends link unless an equal link is already present.
func (a *Account) AddSocialLink(link SocialLink) {
	if a.HasSocialLink(link) {
		return
	}
	a.socialLinks = append(a.socialLinks, link)
}

// HasSocialLink reports whether link is attached to the account.
func (a *Account) HasSocialLink(link SocialLink) bool {
	return slices.Contains(a.socialLinks, link)
}

// UpdateNickname changes the nickname after asking available whether the new
// name is free. Setting the current nickname again is a no-op and does not
// consult available.
func (a *Account) UpdateNickname(ctx context.Context, nickname Nickname, available NicknameAvailable) error {
	if a.nickname == nickname {
		return nil
	}
	ok, err := available(ctx, nickname, a.id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNicknameTaken, nickname.Name())
	}
	a.nickname = nickname
	return nil
}

// RecordLogin sets the last login time.
func (a *Account) RecordLogin(at time.Time) {
	a.lastLoginAt = &at
}

// Equal reports whether a and other are the same account. Only identity is
// compared.
func (a *Account) Equal(other *Account) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}

// ID returns the account identity, NewAccountID until persisted.
func (a *Account) ID() int64 { return a.id }

// IsNew reports whether the account has not been persisted yet.
func (a *Account) IsNew() bool { return a.id == NewAccountID }

func (a *Account) Email() Email { return a.email }

func (a *Account) Nickname() Nickname { return a.nickname }

// SocialLinks returns a copy of the linked providers in insertion order.
func (a *Account) SocialLinks() []SocialLink {
	return slices.Clone(a.socialLinks)
}

func (a *Account) CreatedAt() time.Time { return a.createdAt }

// LastLoginAt returns nil if the account never logged in.
func (a *Account) LastLoginAt() *time.Time {
	if a.lastLoginAt == nil {
		return nil
	}
	t := *a.lastLoginAt
	return &t
}
