package cashregister

import "errors"

var (
	// ErrMissingFields is returned when amount, type, payment method or description is absent.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidAmount is returned for non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidType is returned for an unknown transaction type.
	ErrInvalidType = errors.New("invalid transaction type")

	// ErrInvalidPaymentMethod is returned for an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidDate is returned when transactionDate cannot be parsed.
	ErrInvalidDate = errors.New("invalid transaction date")
)

var validationErrors = []error{
	ErrMissingFields,
	ErrInvalidAmount,
	ErrInvalidType,
	ErrInvalidPaymentMethod,
	ErrInvalidDate,
}

// IsValidation reports whether err is a caller input error.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
