package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidInput wraps every business-rule rejection of client input
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the caller may not act on a resource
	ErrForbidden = errors.New("you do not have permission to perform this action")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID uuid.UUID
	Role   string
}
