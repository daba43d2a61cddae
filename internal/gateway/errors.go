package gateway

import (
	"fmt"
	"github.com/skybi/reservation-console/internal/api/schema"
	"net/http"
	"strconv"
	"strings"
)

// TransportError is returned whenever the backend could not be reached at all
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (err *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", err.Method, err.Path, err.Err.Error())
}

func (err *TransportError) Unwrap() error {
	return err.Err
}

// StatusError is returned whenever the backend answered with a non-success status code.
// Reads report the numeric status only; mutations report the raw response body so that structured backend messages
// reach the user verbatim.
type StatusError struct {
	Method   string
	Path     string
	Status   int
	Body     string
	Mutating bool
}

func (err *StatusError) Error() string {
	if err.Mutating {
		if body := strings.TrimSpace(err.Body); body != "" {
			return body
		}
		return http.StatusText(err.Status)
	}
	return strconv.Itoa(err.Status)
}

// Unauthenticated reports whether the backend rejected the presented credential itself
func (err *StatusError) Unauthenticated() bool {
	return err.Status == http.StatusUnauthorized || err.Status == http.StatusForbidden
}

// DecodeError is returned whenever a successful response does not match the expected schema
type DecodeError struct {
	Method   string
	Path     string
	Problems []*schema.Error
}

func (err *DecodeError) Error() string {
	messages := make([]string, 0, len(err.Problems))
	for _, problem := range err.Problems {
		messages = append(messages, problem.Message)
	}
	return fmt.Sprintf("malformed response to %s %s: %s", err.Method, err.Path, strings.Join(messages, "; "))
}
