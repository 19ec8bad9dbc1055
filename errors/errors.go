// Package errors holds the error taxonomy shared by every layer of the relay.
// Each failure carries a Code so the gateway can map it without knowing
// which layer produced it.
package errors

import (
	stderrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_FAILED"
	CodeNameTaken     Code = "NAME_TAKEN"
	CodeUnknownSender Code = "UNKNOWN_SENDER"
	CodeNotFound      Code = "NOT_FOUND"
	CodeForbidden     Code = "FORBIDDEN"
	CodeStoreFault    Code = "STORE_FAULT"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Validation wraps a validator failure so the details survive in the message.
func Validation(cause error) error {
	return Wrap(CodeValidation, "validation failed", cause)
}

// StoreFault marks a persistence failure. Already classified errors are
// returned untouched.
func StoreFault(cause error) error {
	if cause == nil || CodeOf(cause) != "" {
		return cause
	}
	return Wrap(CodeStoreFault, "store fault", cause)
}

// CodeOf returns the code of the first AppError in the chain, or "" when
// the error was never classified.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
