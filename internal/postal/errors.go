package postal

import "fmt"

// These mirror domain error codes without importing the handler layer.
const (
	codeInvalid  = "invalid"
	codeNotFound = "not_found"
	codeInternal = "internal"
)

// LookupError is a postal lookup failure carrying a domain error code.
type LookupError struct {
	Code    string
	Message string
	Err     error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *LookupError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *LookupError) ErrorMessage() string {
	return e.Message
}

// Is matches on code and message so wrapped remote failures still compare
// equal to their sentinel.
func (e *LookupError) Is(target error) bool {
	t, ok := target.(*LookupError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func newLookupError(code, message string) *LookupError {
	return &LookupError{Code: code, Message: message}
}

var (
	ErrInvalidCode = newLookupError(codeInvalid, "Postal code must be 6 characters")
	ErrNotFound    = newLookupError(codeNotFound, "Postal code not found")
	ErrUnavailable = newLookupError(codeInternal, "postal service unavailable")
)

func unavailable(err error) *LookupError {
	return &LookupError{Code: ErrUnavailable.Code, Message: ErrUnavailable.Message, Err: err}
}
