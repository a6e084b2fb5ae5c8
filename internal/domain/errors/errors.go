package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies how a caller should react to a failure.
type ErrorType string

const (
	// ErrorTypeValidation is client-correctable input; never reaches the coordinator.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConflict is an expected outcome of racing with other actors;
	// the caller should refresh state and re-decide.
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeTransport is a network/timeout failure whose outcome is unknown;
	// the caller must reconcile via a live-state read, never blind-retry a mutation.
	ErrorTypeTransport ErrorType = "transport"
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeForbidden ErrorType = "forbidden"
	ErrorTypeInternal  ErrorType = "internal"
)

// AppError is the structured error carried across every layer.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is lets callers match sentinel AppErrors by code via errors.Is.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors

func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		Retryable:  false,
		StatusCode: 403,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

func NewTransportError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeTransport,
		Code:       "TRANSPORT_FAILURE",
		Message:    message,
		Retryable:  true,
		StatusCode: 502,
	}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    message,
		Retryable:  true,
		StatusCode: 429,
	}
}

// Conflict errors of the admission/lifecycle state machine. These are expected
// outcomes of concurrent actors, not bugs.

func NewAuctionNotLiveError(status string) *AppError {
	return NewConflictError("AUCTION_NOT_LIVE",
		fmt.Sprintf("auction is not live (status: %s)", status))
}

func NewBidNotEditableError(status string) *AppError {
	return NewConflictError("BID_NOT_EDITABLE",
		fmt.Sprintf("bid cannot be modified in status: %s", status))
}

func NewDuplicateBidError() *AppError {
	return NewConflictError("DUPLICATE_BID",
		"bidder already has a live bid on this auction")
}

func NewInvalidStateTransitionError(from, to string) *AppError {
	return NewConflictError("INVALID_STATE_TRANSITION",
		fmt.Sprintf("cannot transition auction from %s to %s", from, to))
}

func NewDeadlinePassedError() *AppError {
	return NewConflictError("DEADLINE_PASSED",
		"project deadline has passed; submissions are closed")
}

// Predefined common errors
var (
	ErrAuctionNotFound = NewNotFoundError("auction")
	ErrBidNotFound     = NewNotFoundError("bid")
	ErrProjectNotFound = NewNotFoundError("project")
)

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsConflict reports whether the error is a state-dependent conflict the
// caller should resolve by refreshing live state.
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
