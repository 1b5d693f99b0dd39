package directory

import "errors"

var (
	// ErrClientNotFound is returned when no client matches the lookup.
	ErrClientNotFound = errors.New("client not found")

	// ErrPersonnelNotFound is returned when no staff member matches the lookup.
	ErrPersonnelNotFound = errors.New("personnel not found")

	// ErrServiceNotFound is returned when no catalog entry matches the lookup.
	ErrServiceNotFound = errors.New("service not found")

	// ErrMissingFields is returned when a required name, email or type is blank.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidRole is returned for a staff role outside ADMINISTRATOR, COORDINATOR and PSYCHOLOGIST.
	ErrInvalidRole = errors.New("invalid personnel role")

	// ErrInvalidDuration is returned for a service duration outside 1..1440 minutes.
	ErrInvalidDuration = errors.New("duration must be between 1 and 1440 minutes")

	// ErrInvalidPrice is returned for a missing or non-positive service price.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrEmailTaken is returned when another client already uses the email address.
	ErrEmailTaken = errors.New("email address already in use")

	// ErrInUse is returned when a client or service is still referenced by other records.
	ErrInUse = errors.New("entry is still referenced by appointments or packages")
)

var validationErrors = []error{
	ErrMissingFields,
	ErrInvalidRole,
	ErrInvalidDuration,
	ErrInvalidPrice,
}

// IsNotFound reports whether err is any directory miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrPersonnelNotFound) ||
		errors.Is(err, ErrServiceNotFound)
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
