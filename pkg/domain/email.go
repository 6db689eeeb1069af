package domain

import (
	"regexp"
	"strings"
)

// MaxEmailLength is the RFC 5321 path limit.
const MaxEmailLength = 254

// Practical address grammar: the domain needs at least one dot and no label
// may start or end with a hyphen.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// Email is a validated, normalized email address.
type Email struct {
	address string
}

// NewEmail validates and normalizes an address.
func NewEmail(address string) (Email, error) {
	normalized := NormalizeEmail(address)
	if normalized == "" {
		return Email{}, ErrInvalidEmail
	}
	if len(normalized) > MaxEmailLength {
		return Email{}, ErrInvalidEmail
	}
	if !emailRegex.MatchString(normalized) {
		return Email{}, ErrInvalidEmail
	}
	return Email{address: normalized}, nil
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Address returns the normalized address.
func (e Email) Address() string {
	return e.address
}

// LocalPart returns the portion before "@".
func (e Email) LocalPart() string {
	local, _, _ := strings.Cut(e.address, "@")
	return local
}

// IsZero reports whether e was never constructed.
func (e Email) IsZero() bool {
	return e.address == ""
}

func (e Email) String() string {
	return e.address
}
