package rest

import (
	"errors"
	"fmt"
	"net/http"
)

// Platform error types carried in the "type" field of non-2xx responses.
const (
	ErrTypeUnknown               = "Unknown"
	ErrTypeNotFound              = "NotFound"
	ErrTypeInvalidSession        = "InvalidSession"
	ErrTypeInvalidCredentials    = "InvalidCredentials"
	ErrTypeMissingPermission     = "MissingPermission"
	ErrTypeMissingUserPermission = "MissingUserPermission"
	ErrTypeNotElevated           = "NotElevated"
	ErrTypeAlreadyInServer       = "AlreadyInServer"
	ErrTypeAlreadyFriends        = "AlreadyFriends"
	ErrTypeBlocked               = "Blocked"
	ErrTypeTooManyEmbeds         = "TooManyEmbeds"
	ErrTypeTooManyReplies        = "TooManyReplies"
	ErrTypeTooManyEmoji          = "TooManyEmoji"
	ErrTypeEmptyMessage          = "EmptyMessage"
	ErrTypeFailedValidation      = "FailedValidation"
	ErrTypeRateLimited           = "RateLimited"
	ErrTypeInternalError         = "InternalError"
)

// ErrUnauthorized matches any *Error with a 401 status, so callers can tell an expired or
// revoked session apart from other API failures:
//
//	if errors.Is(err, rest.ErrUnauthorized) { ... prompt for login ... }
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response from the platform API.
type Error struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	// Permission names the missing permission for MissingPermission and
	// MissingUserPermission errors.
	Permission string `json:"permission,omitempty"`
	// Message is the description some errors carry, such as the reason of a
	// FailedValidation, or the body of a response that wasn't JSON.
	Message string `json:"error,omitempty"`
	Method  string `json:"-"`
	Path       string `json:"-"`
}

func (e *Error) Error() string {
	switch e.Type {
	case ErrTypeMissingPermission:
		return fmt.Sprintf("stoat: %s %s failed (%d): missing permission %s", e.Method, e.Path, e.StatusCode, e.Permission)
	case ErrTypeMissingUserPermission:
		return fmt.Sprintf("stoat: %s %s failed (%d): other user missing permission %s", e.Method, e.Path, e.StatusCode, e.Permission)
	}
	if e.Message != "" {
		return fmt.Sprintf("stoat: %s %s failed (%d): %s: %s", e.Method, e.Path, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("stoat: %s %s failed (%d): %s", e.Method, e.Path, e.StatusCode, e.Type)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// IsErrorType reports whether err is an *Error with the given platform error type.
func IsErrorType(err error, errType string) bool {
	var restErr *Error
	if errors.As(err, &restErr) {
		return restErr.Type == errType
	}
	return false
}

func IsNotFound(err error) bool {
	var restErr *Error
	if errors.As(err, &restErr) {
		return restErr.StatusCode == http.StatusNotFound || restErr.Type == ErrTypeNotFound
	}
	return false
}

// ArgumentError is returned before any request is made when a caller supplied value breaks
// a precondition.
type ArgumentError struct {
	Op     string
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("stoat: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("stoat: %s %s for the %s request", e.Field, e.Reason, e.Op)
}
