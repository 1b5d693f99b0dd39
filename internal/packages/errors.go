package packages

import "errors"

var (
	// ErrNotFound is returned when no package matches the id.
	ErrNotFound = errors.New("package not found")

	// ErrMissingFields is returned when name, sessions, price or services are absent.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidSessions is returned for a non-positive session count on the package or a line.
	ErrInvalidSessions = errors.New("session counts must be positive")

	// ErrInvalidPrice is returned for a negative total price.
	ErrInvalidPrice = errors.New("total price must be positive")

	// ErrInvalidDiscount is returned for a discount outside 0..100.
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100 percent")

	// ErrInvalidValidity is returned for a non-positive validity period.
	ErrInvalidValidity = errors.New("validity days must be positive")

	// ErrDuplicateService is returned when a service appears twice in one package.
	ErrDuplicateService = errors.New("service listed more than once")
)

var validationErrors = []error{
	ErrMissingFields,
	ErrInvalidSessions,
	ErrInvalidPrice,
	ErrInvalidDiscount,
	ErrInvalidValidity,
	ErrDuplicateService,
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
