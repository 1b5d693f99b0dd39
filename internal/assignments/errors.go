package assignments

import "errors"

var (
	// ErrNotFound is returned when an assignment id does not resolve.
	ErrNotFound = errors.New("assignment not found")

	// ErrMissingFields is returned when clientId, personnelId, title or type is absent.
	ErrMissingFields = errors.New("missing required fields")

	ErrInvalidType   = errors.New("invalid assignment type")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidDate   = errors.New("invalid due date")

	// ErrMissingPath is returned by downloads without a path.
	ErrMissingPath = errors.New("missing path parameter")
)

var validationErrors = []error{
	ErrMissingFields,
	ErrInvalidType,
	ErrInvalidStatus,
	ErrInvalidDate,
	ErrMissingPath,
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

func validationMessage(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
