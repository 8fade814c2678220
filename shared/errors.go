package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory classifies failures so the orchestration layer can
// decide what is retryable and what must be surfaced to the user.
type ErrorCategory string

const (
	ErrorCategoryInput          ErrorCategory = "input"
	ErrorCategoryLookup         ErrorCategory = "lookup"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategorySubmission     ErrorCategory = "submission"
	ErrorCategoryDatabase       ErrorCategory = "database"
	ErrorCategoryNotification   ErrorCategory = "notification"
)

// ServiceError is a failure value with enough context to log and to
// translate into user-facing text. Core functions return these instead
// of raw transport errors.
type ServiceError struct {
	Category  ErrorCategory `json:"category"`
	Code      string        `json:"code"`
	Message   string        `json:"message"`
	Operation string        `json:"operation"`
	Timestamp time.Time     `json:"timestamp"`
	Retryable bool          `json:"retryable"`
	Cause     error         `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:  category,
		Code:      code,
		Message:   message,
		Operation: operation,
		Timestamp: time.Now(),
		Retryable: retryable,
		Cause:     cause,
	}
}

// WrapError wraps an existing error with service error context
func WrapError(err error, category ErrorCategory, code, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	if serviceErr, ok := err.(*ServiceError); ok {
		serviceErr.Operation = operation
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), operation, retryable, err)
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category": e.Category,
		"error_code":     e.Code,
		"operation":      e.Operation,
		"retryable":      e.Retryable,
		"cause":          e.Cause,
	}).Error(e.Message)
}

// IsRetryableError checks if an error is retryable. Only network-class
// failures qualify; business rejections (bad credentials, invalid CRN,
// expired accounts) must never be retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if serviceErr, ok := err.(*ServiceError); ok {
		return serviceErr.IsRetryable()
	}

	errorMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout", "connection refused", "connection reset",
		"temporary failure", "service unavailable", "too many requests",
		"network", "dns", "socket", "eof",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errorMsg, pattern) {
			return true
		}
	}

	return false
}
