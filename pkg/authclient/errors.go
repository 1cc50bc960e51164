package authclient

import (
	"fmt"
	"net/http"

	"github.com/Abraxas-365/lingua/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("AUTHCLIENT")

var (
	CodeInvalidSsoState = ErrRegistry.Register("INVALID_SSO_STATE", errx.TypeValidation, http.StatusBadRequest, "SSO state does not match the pending login")
	CodeStorageFailed   = ErrRegistry.Register("STORAGE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to persist session state")
	CodeRequestFailed   = ErrRegistry.Register("REQUEST_FAILED", errx.TypeExternal, http.StatusBadGateway, "Request to the auth server failed")
	CodeInvalidResponse = ErrRegistry.Register("INVALID_RESPONSE", errx.TypeExternal, http.StatusBadGateway, "Auth server sent an unexpected response")
)

func ErrInvalidSsoState() *errx.Error { return ErrRegistry.New(CodeInvalidSsoState) }

// APIError is a failed response of the auth server.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Params    []any
	Details   map[string]any
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth server: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap exposes the server code as an *errx.Error, so errx.CodeOf and
// errx.HasCode work on client errors too.
func (e *APIError) Unwrap() error {
	return &errx.Error{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.Status,
		Params:     e.Params,
		Details:    e.Details,
	}
}

// Param returns the i-th positional parameter as a string, or "".
func (e *APIError) Param(i int) string {
	if i < 0 || i >= len(e.Params) {
		return ""
	}
	if s, ok := e.Params[i].(string); ok {
		return s
	}
	return fmt.Sprint(e.Params[i])
}
