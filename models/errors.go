package models

import (
	"errors"
	"fmt"
)

// Error codes, one per failure class the client distinguishes.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeAuth         = "AUTH_ERROR"
	CodeStore        = "STORE_ERROR"
	CodeDecode       = "DECODE_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUpload       = "UPLOAD_ERROR"
	CodeSubscription = "SUBSCRIPTION_ERROR"
)

// AppError is a classified application error. Message is safe to show to
// the user; Err carries the underlying cause, if any.
type AppError struct {
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

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewAuthError(message string) *AppError {
	return &AppError{Code: CodeAuth, Message: message}
}

func NewStoreError(err error) *AppError {
	return &AppError{Code: CodeStore, Message: "Something went wrong, please try again", Err: err}
}

func NewDecodeError(message string, err error) *AppError {
	return &AppError{Code: CodeDecode, Message: message, Err: err}
}

func NewNotFoundError(resource, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func NewUploadError(message string, err error) *AppError {
	if message == "" {
		message = "Upload failed"
	}
	return &AppError{Code: CodeUpload, Message: message, Err: err}
}

func NewSubscriptionError(err error) *AppError {
	return &AppError{Code: CodeSubscription, Message: "Failed to load posts", Err: err}
}

// CodeOf returns the AppError code for err, or empty when err is not
// an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}
