package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tendant/social-idm/pkg/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes an error message as JSON.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// StatusForError maps a domain error to its HTTP status and a stable code.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedProvider):
		return http.StatusBadRequest, "unsupported_provider"
	case errors.Is(err, domain.ErrTypeMismatch):
		return http.StatusBadRequest, "type_mismatch"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenRevoked):
		return http.StatusUnauthorized, "token_invalid"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrNicknameTaken):
		return http.StatusConflict, "nickname_taken"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// WriteError writes err using StatusForError. Internal details of 5xx
// errors are not exposed.
func WriteError(w http.ResponseWriter, err error) {
	status, code := StatusForError(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		message = "internal server error"
	case http.StatusServiceUnavailable:
		message = "identity provider unavailable"
	case http.StatusUnauthorized:
		message = "invalid or expired token"
	}
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// IsBodyTooLarge reports whether err came from http.MaxBytesReader.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
