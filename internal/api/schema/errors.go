package schema

var emptyMap = map[string]interface{}{}

var (
	ErrInternal = &Error{
		Type:    "generic.internal",
		Message: "An internal error occurred.",
		Details: emptyMap,
	}
	ErrNotFound = &Error{
		Type:    "generic.notFound",
		Message: "Resource not found.",
		Details: emptyMap,
	}
	ErrMethodNotAllowed = &Error{
		Type:    "generic.methodNotAllowed",
		Message: "Method not allowed.",
		Details: emptyMap,
	}
	ErrCancelled = &Error{
		Type:    "generic.cancelled",
		Message: "The request was cancelled before the backend answered.",
		Details: emptyMap,
	}
	ErrInvalidCredentials = &Error{
		Type:    "access.invalidCredentials",
		Message: "Invalid credentials",
		Details: emptyMap,
	}
)

// ErrorResponse represents the response structure sent by the console whenever errors occurred
type ErrorResponse struct {
	Status int      `json:"status"`
	Errors []*Error `json:"errors"`
}

// Error represents a single error present in the ErrorResponse
type Error struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

// Rejected builds the error forwarded to the console whenever the backend rejected an action.
// The message carries the backend's text verbatim.
func Rejected(message string) *Error {
	return &Error{
		Type:    "backend.rejected",
		Message: message,
		Details: emptyMap,
	}
}

// Unreachable builds the error forwarded to the console whenever the backend could not be reached
func Unreachable(message string) *Error {
	return &Error{
		Type:    "backend.unreachable",
		Message: message,
		Details: emptyMap,
	}
}

// Malformed builds the error forwarded to the console whenever the backend answered with an unexpected payload
func Malformed(message string, problems []*Error) *Error {
	return &Error{
		Type:    "backend.malformed",
		Message: message,
		Details: map[string]interface{}{
			"problems": problems,
		},
	}
}
