package services

import "github.com/dmitrijs2005/authkeeper/internal/common"

// ValidationError rejects a request field. Message is safe to show to the
// caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Is(target error) bool { return target == common.ErrorValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
