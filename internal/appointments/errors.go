package appointments

import "errors"

var (
	// ErrMissingFields is returned when a booking lacks a required reference or date.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidDate is returned when appointmentDate cannot be parsed.
	ErrInvalidDate = errors.New("invalid appointment date")

	// ErrInvalidDuration is returned for durations outside 1..MaxDurationMinutes.
	ErrInvalidDuration = errors.New("duration must be between 1 and 1440 minutes")

	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTransition is returned when the lifecycle forbids the status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict is returned when the practitioner already has a session in the window.
	ErrConflict = errors.New("time slot already booked")

	// ErrNotFound is returned when an appointment id does not resolve.
	ErrNotFound = errors.New("appointment not found")
)

var validationErrors = []error{
	ErrMissingFields,
	ErrInvalidDate,
	ErrInvalidDuration,
	ErrInvalidStatus,
	ErrInvalidTransition,
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

// validationMessage returns the sentinel text for a validation error.
func validationMessage(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
