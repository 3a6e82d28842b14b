package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an entity (event, passphrase) was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeDuplicateSecret indicates another currently usable passphrase in
	// the same event already holds the secret being inserted.
	ErrCodeDuplicateSecret ErrorCode = "duplicate_secret"
	// ErrCodeInvalidCredential indicates the presented secret does not match
	// any usable passphrase for the event. Deliberately uninformative: it is
	// surfaced identically for wrong, expired, and not-yet-valid secrets.
	ErrCodeInvalidCredential ErrorCode = "invalid_credential"
	// ErrCodeForbidden indicates a protected operation was attempted without
	// the required role.
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeParentNotUsable indicates a derivation targeted a missing or
	// expired parent passphrase.
	ErrCodeParentNotUsable ErrorCode = "parent_not_usable"
	// ErrCodeInvalidRoleDerivation indicates the requested role is not the
	// sharable counterpart of the parent passphrase's role.
	ErrCodeInvalidRoleDerivation ErrorCode = "invalid_role_derivation"
	// ErrCodeGrantNotHeld indicates a role drop targeted a grant the session
	// does not hold.
	ErrCodeGrantNotHeld ErrorCode = "grant_not_held"
	// ErrCodeInvalidSessionToken indicates the supplied token corresponds to
	// no live session. Distinct from "no token supplied" so the boundary can
	// prompt the client to clear corrupted local state.
	ErrCodeInvalidSessionToken ErrorCode = "invalid_session_token"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an infrastructure error (e.g. the backing
	// store is unavailable).
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// DuplicateSecret creates a new DuplicateSecret error.
func DuplicateSecret(message string) *AppError {
	return &AppError{Code: ErrCodeDuplicateSecret, Message: message}
}

// InvalidCredential creates a new InvalidCredential error.
func InvalidCredential(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidCredential, Message: message}
}

// Forbidden creates a new Forbidden error.
func Forbidden(message string) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: message}
}

// Forbiddenf creates a new Forbidden error with formatted message.
func Forbiddenf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// ParentNotUsable creates a new ParentNotUsable error.
func ParentNotUsable(message string) *AppError {
	return &AppError{Code: ErrCodeParentNotUsable, Message: message}
}

// InvalidRoleDerivation creates a new InvalidRoleDerivation error.
func InvalidRoleDerivation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidRoleDerivation, Message: message}
}

// GrantNotHeld creates a new GrantNotHeld error.
func GrantNotHeld(message string) *AppError {
	return &AppError{Code: ErrCodeGrantNotHeld, Message: message}
}

// InvalidSessionToken creates a new InvalidSessionToken error.
func InvalidSessionToken(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidSessionToken, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsDuplicateSecret checks if an error is a DuplicateSecret error.
func IsDuplicateSecret(err error) bool {
	return isCode(err, ErrCodeDuplicateSecret)
}

// IsInvalidCredential checks if an error is an InvalidCredential error.
func IsInvalidCredential(err error) bool {
	return isCode(err, ErrCodeInvalidCredential)
}

// IsForbidden checks if an error is a Forbidden error.
func IsForbidden(err error) bool {
	return isCode(err, ErrCodeForbidden)
}

// IsGrantNotHeld checks if an error is a GrantNotHeld error.
func IsGrantNotHeld(err error) bool {
	return isCode(err, ErrCodeGrantNotHeld)
}

// IsInvalidSessionToken checks if an error is an InvalidSessionToken error.
func IsInvalidSessionToken(err error) bool {
	return isCode(err, ErrCodeInvalidSessionToken)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
