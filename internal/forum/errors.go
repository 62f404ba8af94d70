package forum

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrForbidden         = errors.New("permission denied")
	ErrNotModerator      = errors.New("moderation powers required")
	ErrThreadClosed      = errors.New("thread is closed")
	ErrAlreadyReported   = errors.New("post already reported by this user")
	ErrReportUnavailable = errors.New("report is already handled or cannot be handled by you")
)

// ValidationError rejects a single input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
