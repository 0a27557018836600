package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrValidation   ErrorCode = "VALIDATION_ERROR"

	// Trivia specific errors
	ErrGenerationFailure   ErrorCode = "GENERATION_FAILURE"
	ErrConflict            ErrorCode = "CONFLICT"
	ErrInvalidState        ErrorCode = "INVALID_STATE"
	ErrDuplicateSubmission ErrorCode = "DUPLICATE_SUBMISSION"
	ErrProvider            ErrorCode = "PROVIDER_ERROR"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode reports whether err wraps a DomainError carrying code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(ErrNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(ErrInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(ErrInternal, message, err)
}

func NewUnauthorizedError(message string) *DomainError {
	return NewError(ErrUnauthorized, message, nil)
}

func NewGenerationFailure(message string, err error) *DomainError {
	return NewError(ErrGenerationFailure, message, err)
}

func NewConflictError(message string) *DomainError {
	return NewError(ErrConflict, message, nil)
}

func NewInvalidStateError(message string) *DomainError {
	return NewError(ErrInvalidState, message, nil)
}

func NewDuplicateSubmissionError(sessionID int64, userID string) *DomainError {
	return NewError(ErrDuplicateSubmission,
		fmt.Sprintf("user %s already answered in session %d", userID, sessionID), nil)
}

func NewProviderError(provider string, err error) *DomainError {
	return NewError(ErrProvider, fmt.Sprintf("question model %s failed", provider), err)
}

func NewQuestionNotFoundError(questionID int64) *DomainError {
	return NewError(ErrNotFound, fmt.Sprintf("question not found with ID: %d", questionID), nil)
}

func NewSessionNotFoundError(sessionID int64) *DomainError {
	return NewError(ErrNotFound, fmt.Sprintf("session not found with ID: %d", sessionID), nil)
}

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned when request or record validation fails.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
