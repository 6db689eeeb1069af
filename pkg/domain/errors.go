package domain

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors below wrap one of these so callers can
// branch with errors.Is on the category alone.
var (
	ErrValidation          = errors.New("validation failed")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrUnsupportedProvider = errors.New("unsupported social provider")
	ErrTokenInvalid        = errors.New("invalid social token")
	ErrUpstreamUnavailable = errors.New("identity provider unavailable")
	ErrNicknameTaken       = errors.New("nickname already in use")
	ErrAlreadyExists       = errors.New("account already exists")
	ErrAccountNotFound     = errors.New("account not found")
	ErrStorageFault        = errors.New("storage fault")
)

// Validation errors
var (
	ErrInvalidEmail    = fmt.Errorf("%w: invalid email address", ErrValidation)
	ErrNicknameEmpty   = fmt.Errorf("%w: nickname must not be empty", ErrValidation)
	ErrNicknameLength  = fmt.Errorf("%w: nickname must be between %d and %d characters", ErrValidation, NicknameMinLength, NicknameMaxLength)
	ErrSocialIDEmpty   = fmt.Errorf("%w: social id must not be empty", ErrValidation)
	ErrProviderNotText = fmt.Errorf("%w: provider name must be a string", ErrTypeMismatch)
	ErrSocialIDNotText = fmt.Errorf("%w: social id must be a string", ErrTypeMismatch)
)

// Storage conflicts. Each names the unique constraint that fired.
var (
	ErrEmailTaken      = fmt.Errorf("%w: email already registered", ErrAlreadyExists)
	ErrSocialLinkTaken = fmt.Errorf("%w: social account already linked", ErrAlreadyExists)
)

// Session errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)
