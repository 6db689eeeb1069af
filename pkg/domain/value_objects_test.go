package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewEmail(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "valid email", address: "test@example.com", want: "test@example.com"},
		{name: "valid email with subdomain", address: "test@mail.example.com", want: "test@mail.example.com"},
		{name: "valid email with plus", address: "test+tag@example.com", want: "test+tag@example.com"},
		{name: "normalized", address: "  Test@Example.COM ", want: "test@example.com"},
		{name: "max length", address: strings.Repeat("a", 248) + "@b.com", want: strings.Repeat("a", 248) + "@b.com"},
		{name: "empty email", address: "", wantErr: true},
		{name: "whitespace only", address: "   ", wantErr: true},
		{name: "invalid - no @", address: "testexample.com", wantErr: true},
		{name: "invalid - no dot in domain", address: "test@examplecom", wantErr: true},
		{name: "invalid - no local part", address: "@example.com", wantErr: true},
		{name: "invalid - no domain", address: "test@", wantErr: true},
		{name: "invalid - domain starts with dot", address: "test@.com", wantErr: true},
		{name: "invalid - two @", address: "a@b@c.com", wantErr: true},
		{name: "too long", address: strings.Repeat("a", 249) + "@b.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := NewEmail(tt.address)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEmail) {
					t.Fatalf("NewEmail(%q) error = %v, want ErrInvalidEmail", tt.address, err)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("error should be a validation error")
				}
				if !email.IsZero() {
					t.Errorf("failed construction must return the zero Email")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEmail(%q) unexpected error: %v", tt.address, err)
			}
			if email.Address() != tt.want {
				t.Errorf("Address() = %q, want %q", email.Address(), tt.want)
			}
		})
	}
}

func TestEmail_Equality(t *testing.T) {
	a1, _ := NewEmail("a@b.com")
	a2, _ := NewEmail("a@b.com")
	c, _ := NewEmail("c@b.com")

	if a1 != a2 {
		t.Error("emails with the same address should be equal")
	}
	if a1 == c {
		t.Error("emails with different addresses should differ")
	}

	set := map[Email]bool{a1: true}
	if !set[a2] {
		t.Error("equal emails should hash to the same map key")
	}
}

func TestEmail_LocalPart(t *testing.T) {
	email, err := NewEmail("movie.fan@example.com")
	if err != nil {
		t.Fatalf("NewEmail: %v", err)
	}
	if got := email.LocalPart(); got != "movie.fan" {
		t.Errorf("LocalPart() = %q, want %q", got, "movie.fan")
	}
	if email.String() != "movie.fan@example.com" {
		t.Errorf("String() = %q", email.String())
	}
}

func TestNewNickname(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "hangul", input: "테스트닉"},
		{name: "hangul with digits", input: "닉네임123"},
		{name: "latin", input: "Nick123"},
		{name: "min length", input: "ab"},
		{name: "max length", input: strings.Repeat("a", 15)},
		{name: "max length multibyte", input: strings.Repeat("가", 15)},
		{name: "decomposed accents count once", input: strings.Repeat("e\u0301", 15)},
		{name: "empty", input: "", wantErr: ErrNicknameEmpty},
		{name: "single character", input: "닉", wantErr: ErrNicknameLength},
		{name: "single ascii", input: "a", wantErr: ErrNicknameLength},
		{name: "too long", input: strings.Repeat("a", 16), wantErr: ErrNicknameLength},
		{name: "too long multibyte", input: strings.Repeat("가", 16), wantErr: ErrNicknameLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nick, err := NewNickname(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewNickname(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("error should be a validation error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewNickname(%q) unexpected error: %v", tt.input, err)
			}
			if nick.Name() != tt.input {
				t.Errorf("Name() = %q, want %q", nick.Name(), tt.input)
			}
		})
	}
}

func TestNewNickname_EveryValidLength(t *testing.T) {
	for n := 0; n <= 20; n++ {
		input := strings.Repeat("x", n)
		_, err := NewNickname(input)
		valid := n >= NicknameMinLength && n <= NicknameMaxLength
		if valid && err != nil {
			t.Errorf("length %d: unexpected error %v", n, err)
		}
		if !valid && err == nil {
			t.Errorf("length %d: expected error", n)
		}
	}
}

func TestNickname_Equality(t *testing.T) {
	n1, _ := NewNickname("같은닉네임")
	n2, _ := NewNickname("같은닉네임")
	n3, _ := NewNickname("다른닉네임")

	if n1 != n2 {
		t.Error("nicknames with the same name should be equal")
	}
	if n1 == n3 {
		t.Error("nicknames with different names should differ")
	}
}

func TestNewSocialLink(t *testing.T) {
	link, err := NewSocialLink("google", "user123")
	if err != nil {
		t.Fatalf("NewSocialLink: %v", err)
	}
	if link.Provider() != "google" {
		t.Errorf("Provider() = %q, want %q", link.Provider(), "google")
	}
	if link.SocialID() != "user123" {
		t.Errorf("SocialID() = %q, want %q", link.SocialID(), "user123")
	}
}

func TestParseSocialLink_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider any
		socialID any
		wantErr  error
	}{
		{name: "unsupported provider", provider: "facebook", socialID: "user123", wantErr: ErrUnsupportedProvider},
		{name: "unsupported provider with empty id", provider: "facebook", socialID: "", wantErr: ErrUnsupportedProvider},
		{name: "empty social id", provider: "google", socialID: "", wantErr: ErrSocialIDEmpty},
		{name: "nil social id", provider: "google", socialID: nil, wantErr: ErrSocialIDEmpty},
		{name: "provider not a string", provider: 123, socialID: "user123", wantErr: ErrTypeMismatch},
		{name: "social id not a string", provider: "google", socialID: 123, wantErr: ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSocialLink(tt.provider, tt.socialID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseSocialLink(%v, %v) error = %v, want %v", tt.provider, tt.socialID, err, tt.wantErr)
			}
		})
	}
}

func TestParseSocialLink_TypeMismatchIsNotValidation(t *testing.T) {
	_, err := ParseSocialLink("google", 42)
	if errors.Is(err, ErrValidation) {
		t.Error("type mismatch must be a distinct category from validation")
	}
}

func TestSocialLink_Equality(t *testing.T) {
	l1, _ := NewSocialLink("google", "user123")
	l2, _ := NewSocialLink("google", "user123")
	l3, _ := NewSocialLink("google", "user456")

	if l1 != l2 {
		t.Error("links with the same provider and id should be equal")
	}
	if l1 == l3 {
		t.Error("links with different ids should differ")
	}
}
