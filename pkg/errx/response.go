package errx

import "errors"

// Response is the JSON body rendered for a failed request.
type Response struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Params    []any          `json:"params,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// ToResponse converts err into a status code and body. Errors without a code
// are reported as an opaque internal error.
func ToResponse(err error) (int, Response) {
	var e *Error
	if errors.As(err, &e) {
		status := e.HTTPStatus
		if status == 0 {
			status = e.Type.HTTPStatus()
		}
		return status, Response{
			Code:    e.Code,
			Message: e.Message,
			Params:  e.Params,
			Details: e.Details,
		}
	}

	return 500, Response{
		Code:    "unexpected_error_occurred",
		Message: "An unexpected error occurred",
	}
}
