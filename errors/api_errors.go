package errors

import "fmt"

// APIError is the JSON error body returned at the system boundary. Internal
// detail never leaks past the description string.
type APIError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Caller-visible error classes. Everything the service can fail with maps to
// one of these three.
const (
	InvalidRequest = "invalid_request" // malformed input, caller-fixable
	InvalidSession = "invalid_session" // unauthorized, expired or unknown session
	ServerError    = "server_error"    // infrastructure fault
)

func NewInvalidRequest(description string) *APIError {
	return &APIError{
		Code:        InvalidRequest,
		Description: description,
	}
}

func NewInvalidSession(description string) *APIError {
	return &APIError{
		Code:        InvalidSession,
		Description: description,
	}
}

func NewServerError(description string) *APIError {
	return &APIError{
		Code:        ServerError,
		Description: description,
	}
}
