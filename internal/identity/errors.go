package identity

import (
	"fmt"
	"strings"
)

// AccessDeniedError is returned when a permission check fails. It carries
// both sides of the check so callers can log what was missing.
type AccessDeniedError struct {
	Granted   []string
	Requested []string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: requested [%s], granted [%s]",
		strings.Join(e.Requested, ", "), strings.Join(e.Granted, ", "))
}

// UnauthenticatedError is returned when an operation needs a principal id
// and the Identity has none.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string {
	return e.Message
}
