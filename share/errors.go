package share

import (
	"errors"
	"fmt"
)

// Failure classes of the service. Callers match them with errors.Is; returned
// errors usually wrap one of these with the offending id.
var (
	ErrNotOwner        = errors.New("only the owner of the shared environment can do this")
	ErrForbidden       = errors.New("administrator privileges required")
	ErrNotFound        = errors.New("not found")
	ErrNotPending      = errors.New("suggestion has already been reviewed")
	ErrSelfSuggestion  = errors.New("owners cannot send suggestions to their own environment")
	ErrDuplicateReport = errors.New("you have already reported this environment")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
