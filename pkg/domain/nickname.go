package domain

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Nickname length bounds, in characters.
const (
	NicknameMinLength = 2
	NicknameMaxLength = 15
)

// Nickname is a validated display name.
type Nickname struct {
	name string
}

// NewNickname validates a display name. Length is counted in characters of
// the NFC form, so a decomposed accent counts once. The name is kept as given.
func NewNickname(name string) (Nickname, error) {
	if name == "" {
		return Nickname{}, ErrNicknameEmpty
	}
	length := utf8.RuneCountInString(norm.NFC.String(name))
	if length < NicknameMinLength || length > NicknameMaxLength {
		return Nickname{}, ErrNicknameLength
	}
	return Nickname{name: name}, nil
}

// Name returns the display name.
func (n Nickname) Name() string {
	return n.name
}

func (n Nickname) String() string {
	return n.name
}
