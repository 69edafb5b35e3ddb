package billing

import "fmt"

// These mirror domain error codes without importing the handler layer.
const (
	codeInvalid  = "invalid"
	codePayment  = "payment_required"
	codeNotFound = "not_found"
	codeConflict = "conflict"
	codeInternal = "internal"
)

// PaymentError is a payment provider failure carrying a domain error code.
type PaymentError struct {
	Code    string
	Message string
	Err     error // Original error from the provider SDK
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("billing: %s: %v", e.Message, e.Err)
	}
	return "billing: " + e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *PaymentError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *PaymentError) ErrorMessage() string {
	return e.Message
}

// Is matches on code and message so a wrapped SDK failure still compares
// equal to its sentinel.
func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func newPaymentError(code, message string) *PaymentError {
	return &PaymentError{Code: code, Message: message}
}

var (
	// ErrInvalidSignature is returned when a payment callback is not signed
	// by the provider.
	ErrInvalidSignature = newPaymentError(codePayment, "Payment verification failed")

	// ErrInvalidAmount is returned for zero or negative order amounts.
	ErrInvalidAmount = newPaymentError(codeInvalid, "Order amount must be positive")

	// ErrUnknownOrder is returned when paying a provider order that was
	// never created.
	ErrUnknownOrder = newPaymentError(codeNotFound, "Payment order not found")

	// ErrOrderAlreadyPaid is returned when paying a provider order twice.
	ErrOrderAlreadyPaid = newPaymentError(codeConflict, "Payment order is already paid")

	// ErrProviderUnavailable wraps transport and API failures.
	ErrProviderUnavailable = newPaymentError(codeInternal, "payment provider unavailable")

	// ErrMissingCredentials is returned when key id or secret is empty.
	ErrMissingCredentials = newPaymentError(codeInternal, "payment provider credentials are required")

	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = newPaymentError(codeInternal, "unknown payment provider")
)

func providerFailure(err error) *PaymentError {
	return &PaymentError{Code: ErrProviderUnavailable.Code, Message: ErrProviderUnavailable.Message, Err: err}
}
