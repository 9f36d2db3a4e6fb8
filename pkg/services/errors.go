// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/exchange"
	"github.com/dukex/flowdesk/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrTemplateNil      = errors.New("template cannot be nil")
	ErrInvalidGraph     = errors.New("invalid template graph")

	// Not Found Errors (404 Not Found).
	ErrTemplateNotFound = persistence.ErrTemplateNotFound
	ErrSessionNotFound  = errors.New("session not found")

	// Business Logic Conflicts (409 Conflict).
	ErrTemplateExists  = errors.New("template already exists")
	ErrVersionConflict = persistence.ErrVersionConflict
	ErrReadOnlySession = errors.New("session is read-only")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrTemplateNil) ||
		errors.Is(err, ErrInvalidGraph) ||
		errors.Is(err, exchange.ErrInvalidDocument) ||
		errors.Is(err, exchange.ErrUnknownFormat) ||
		editor.IsInvalidInput(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		editor.IsNotFound(err)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrTemplateExists) ||
		errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrReadOnlySession)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
