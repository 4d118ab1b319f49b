package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork    = errors.New("network failure")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("authentication failed")
	ErrMalformed  = errors.New("malformed response")
	ErrValidation = errors.New("validation error")
)

type AppError struct {
	Err     error  // one of the sentinels above
	Op      string // operation that failed, e.g. "country.search"
	Message string // human-readable error message
	Cause   error  // underlying error, if any
}

func (e *AppError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func Network(op string, cause error) *AppError {
	return &AppError{Err: ErrNetwork, Op: op, Message: fmt.Sprintf("request failed: %v", cause), Cause: cause}
}

func NotFound(op, what string) *AppError {
	return &AppError{Err: ErrNotFound, Op: op, Message: fmt.Sprintf("%s not found", what)}
}

func Auth(op, message string) *AppError {
	return &AppError{Err: ErrAuth, Op: op, Message: message}
}

func Malformed(op string, cause error) *AppError {
	return &AppError{Err: ErrMalformed, Op: op, Message: fmt.Sprintf("unexpected payload: %v", cause), Cause: cause}
}

func Validation(op, message string) *AppError {
	return &AppError{Err: ErrValidation, Op: op, Message: message}
}

// StatusCoder is implemented by transport errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// Classify converts a raw gateway error into an *AppError. Errors that are
// already classified are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch code := sc.StatusCode(); {
		case code == http.StatusNotFound:
			return &AppError{Err: ErrNotFound, Op: op, Message: "no matching records", Cause: err}
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return &AppError{Err: ErrAuth, Op: op, Message: "not authorized", Cause: err}
		case code == http.StatusBadRequest:
			return &AppError{Err: ErrValidation, Op: op, Message: "rejected by upstream", Cause: err}
		}
		return Network(op, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return Malformed(op, err)
	}

	// Timeouts and cancellations land here too.
	return Network(op, err)
}

// HTTPStatus maps an error kind to the status the local HTTP surface returns.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrMalformed):
		return http.StatusBadGateway
	case errors.Is(err, ErrNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Kind returns a short machine-readable name for the error kind.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuth):
		return "auth_failure"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrMalformed):
		return "malformed_response"
	case errors.Is(err, ErrNetwork):
		return "network_failure"
	}
	return "internal_error"
}
