package account

import (
	"errors"

	"github.com/tendant/social-idm/pkg/domain"
)

// ErrorKind names the category of err for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, domain.ErrUnsupportedProvider):
		return "unsupported_provider"
	case errors.Is(err, domain.ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, domain.ErrNicknameTaken):
		return "nickname_taken"
	case errors.Is(err, domain.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrStorageFault):
		return "storage_fault"
	default:
		return "internal"
	}
}

// isFault reports whether err is an unexpected failure on our side rather
// than a rejected request.
func isFault(err error) bool {
	switch ErrorKind(err) {
	case "storage_fault", "internal":
		return true
	}
	return false
}
