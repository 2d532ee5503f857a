package domain

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected    = errors.New("payment provider rejected request")
	ErrSignatureInvalid    = errors.New("webhook signature invalid")
)

// ProviderError carries the message returned by the payment provider when it
// refuses a request.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return "payment provider: " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return ErrProviderRejected
}
