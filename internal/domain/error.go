package domain

import (
	"errors"
	"fmt"
)

// Application error codes. Handlers translate them to HTTP status codes.
const (
	ECONFLICT     = "conflict"         // 409
	EINTERNAL     = "internal"         // 500, details hidden from the customer
	EINVALID      = "invalid"          // 400
	ENOTFOUND     = "not_found"        // 404
	EUNAUTHORIZED = "unauthorized"     // 401
	EFORBIDDEN    = "forbidden"        // 403
	ENOTIMPL      = "not_implemented"  // 501
	ERATELIMIT    = "rate_limit"       // 429
	ETOOLARGE     = "too_large"        // 413
	EPAYMENT      = "payment_required" // 402
	EGONE         = "gone"             // 410
)

// Customer facing messages for EINTERNAL errors. Order pipeline failures
// get their own wording, everything else the generic one.
const (
	GenericErrorMessage = "There was a problem processing your request."
	OrderErrorMessage   = "There was a problem processing your order."
)

// Error is an application error carrying a machine readable code, a
// message that is safe to show to customers and the failing operation.
type Error struct {
	Code string

	// Message is shown to the customer unless Code is EINTERNAL.
	Message string

	// Op names the operation, e.g. "order.finalize". Logged, never shown.
	Op string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two domain errors by code and message so package level
// sentinels still match after being re-created with an Op attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// ErrorCode returns the code of err, or EINTERNAL for errors that are not
// domain errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}

	return EINTERNAL
}

// ErrorMessage returns the customer facing message for err. Internal and
// unknown errors collapse to GenericErrorMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			if e.Message == OrderErrorMessage {
				return OrderErrorMessage
			}
			return GenericErrorMessage
		}
		return e.Message
	}

	var coded interface {
		ErrorCode() string
		ErrorMessage() string
	}
	if errors.As(err, &coded) && coded.ErrorCode() != EINTERNAL {
		return coded.ErrorMessage()
	}

	return GenericErrorMessage
}

// ErrorOp returns the operation recorded on err, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}

	return ""
}

// Errorf builds a domain error with a formatted message.
//
//	domain.Errorf(domain.EINVALID, "cart.add", "sku must be %d characters", SKULength)
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError attaches a code, operation and message to err. Nil stays nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// WithOp returns a copy of a sentinel domain error tagged with op. Other
// errors are returned unchanged.
func WithOp(err error, op string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Op = op
	return &cp
}

// IsCode reports whether err carries code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// =============================================================================
// Validation errors
// =============================================================================

// ValidationError collects field level input failures keyed by form field.
type ValidationError struct {
	Fields map[string]string
	Op     string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			if e.Op != "" {
				return fmt.Sprintf("%s: %s: %s", e.Op, field, msg)
			}
			return fmt.Sprintf("%s: %s", field, msg)
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: validation failed for %d fields", e.Op, len(e.Fields))
	}
	return fmt.Sprintf("validation failed for %d fields", len(e.Fields))
}

// ErrorCode lets handlers treat validation failures as EINVALID.
func (e *ValidationError) ErrorCode() string { return EINVALID }

// ErrorMessage is the summary shown next to the field map.
func (e *ValidationError) ErrorMessage() string { return "Please correct the highlighted fields." }

// NewValidationError creates a validation error for one field.
func NewValidationError(op, field, message string) error {
	return &ValidationError{
		Op:     op,
		Fields: map[string]string{field: message},
	}
}

// AddFieldError records a field failure on err, creating a ValidationError
// when err is nil or of another type. An existing message for the same
// field is kept so the first failure wins.
func AddFieldError(err error, field, message string) error {
	var ve *ValidationError
	if err != nil && errors.As(err, &ve) {
		if _, exists := ve.Fields[field]; !exists {
			ve.Fields[field] = message
		}
		return ve
	}

	return &ValidationError{
		Fields: map[string]string{field: message},
	}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetValidationFields returns the field map of a ValidationError, or nil.
func GetValidationFields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// =============================================================================
// Constructors
// =============================================================================

// NotFound creates a not found error for a resource.
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

func Unauthorized(op, message string) error {
	return &Error{Code: EUNAUTHORIZED, Op: op, Message: message}
}

func Forbidden(op, message string) error {
	return &Error{Code: EFORBIDDEN, Op: op, Message: message}
}

func Invalid(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

func Conflict(op, message string) error {
	return &Error{Code: ECONFLICT, Op: op, Message: message}
}

// Internal wraps an infrastructure or consistency failure. Customers only
// ever see GenericErrorMessage for it.
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// =============================================================================
// Consistency failures
// =============================================================================

// A write inside a transaction touched zero rows where exactly one (or at
// least one) was required. Each aborts the enclosing transaction.
var (
	ErrUnreserveFailed    = &Error{Code: EINTERNAL, Message: "Unreserve items failed"}
	ErrUpdateOrderFailed  = &Error{Code: EINTERNAL, Message: "Update order failed"}
	ErrUserUpdateFailed   = &Error{Code: EINTERNAL, Message: "User update failed"}
	ErrAddressInsert      = &Error{Code: EINTERNAL, Message: "Address insert failed"}
	ErrResetDefaultFailed = &Error{Code: EINTERNAL, Message: "Update isDefault to false failed"}
	ErrSetDefaultFailed   = &Error{Code: EINTERNAL, Message: "Update isDefault to true failed"}
)

// ErrOrderProcessing is what order creation, update and finalization
// failures surface as.
var ErrOrderProcessing = &Error{Code: EINTERNAL, Message: OrderErrorMessage}

// IsConsistencyFailure reports whether err is one of the zero-rows
// transaction failures above.
func IsConsistencyFailure(err error) bool {
	for _, target := range []error{
		ErrUnreserveFailed, ErrUpdateOrderFailed, ErrUserUpdateFailed,
		ErrAddressInsert, ErrResetDefaultFailed, ErrSetDefaultFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
