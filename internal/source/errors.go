package source

import "fmt"

// AppError is a client-facing error with a stable code and HTTP-like
// status semantics.
type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// ConflictError signals a uniqueness violation on create/patch, naming
// the source it happened on. Raw storage errors never reach the caller.
func ConflictError(source, detail string) *AppError {
	msg := fmt.Sprintf("unique conflict on [%s]", source)
	if detail != "" {
		msg = fmt.Sprintf("unique conflict on [%s]: %s", source, detail)
	}
	return &AppError{Code: "CONFLICT", Status: 409, Message: msg}
}

// NotFoundError signals a missing entity on get/find.
func NotFoundError(source, id string) *AppError {
	if id == "" {
		return &AppError{Code: "NOT_FOUND", Status: 404, Message: fmt.Sprintf("no match on [%s]", source)}
	}
	return &AppError{Code: "NOT_FOUND", Status: 404, Message: fmt.Sprintf("[%s] with id %s not found", source, id)}
}

// UnsupportedError signals that a capability was never wired for this
// source. It fails fast at call time so missing wiring is never a
// silent no-op.
func UnsupportedError(source, op string) *AppError {
	return &AppError{
		Code:    "UNSUPPORTED_OPERATION",
		Status:  501,
		Message: fmt.Sprintf("%s is not supported on [%s]", op, source),
	}
}

// ValidationError aggregates failed rule evaluations.
func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "validation failed",
		Details: details,
	}
}
