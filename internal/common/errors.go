package common

import (
	"errors"
	"fmt"

	"infinite-experiment/plp/internal/constants"
)

// Kind classifies an AppError for the request boundary.
type Kind string

const (
	KindConfig     Kind = "config"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindConnection Kind = "connection"
	KindValidation Kind = "validation"
)

// AppError is the domain error carried from the connection boundary up to the handlers.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, code, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ConfigError reports a setup mistake: unknown types, missing settings.
func ConfigError(code, format string, args ...any) *AppError {
	return newError(KindConfig, code, format, args...)
}

// PermissionError reports an access denial.
func PermissionError(format string, args ...any) *AppError {
	return newError(KindPermission, constants.ErrCodeAccessDenied, format, args...)
}

func NotFoundError(format string, args ...any) *AppError {
	return newError(KindNotFound, constants.ErrCodeNotFound, format, args...)
}

// ConnectionError wraps a driver or transport failure with a reason code.
func ConnectionError(code string, err error) *AppError {
	return &AppError{Kind: KindConnection, Code: code, Message: constants.GetErrorMessage(code), Err: err}
}

// IsKind reports whether any AppError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Kind == kind
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// ValidationError reports input that was refused as a whole.
func ValidationError(format string, args ...any) *AppError {
	return newError(KindValidation, constants.ErrCodeValidation, format, args...)
}
