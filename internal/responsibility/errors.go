package responsibility

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("responsibility not found")
	ErrMemberNotFound = errors.New("family member not found")
)

// ValidationError reports malformed input. It is returned before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
