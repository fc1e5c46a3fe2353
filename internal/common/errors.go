package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Stable error codes. These are the user-facing failure surfaces; every
// pipeline abort carries exactly one of them.
const (
	CodeMissingCredential = "MISSING_CREDENTIAL"
	CodeMissingInput      = "MISSING_INPUT"
	CodeUnsupportedType   = "UNSUPPORTED_TYPE"
	CodePDFParse          = "PDF_PARSE_ERROR"
	CodeDocxParse         = "DOCX_PARSE_ERROR"
	CodeEncoding          = "ENCODING_ERROR"
	CodeCompletion        = "COMPLETION_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// NewAppError builds an AppError with an optional cause.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorCode extracts the stable code from err, or CodeInternal when err is
// not an AppError.
func ErrorCode(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error to the status code the HTTP layer should answer
// with.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case CodeMissingCredential:
		return http.StatusUnauthorized
	case CodeMissingInput, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnsupportedType:
		return http.StatusUnsupportedMediaType
	case CodePDFParse, CodeDocxParse, CodeEncoding:
		return http.StatusUnprocessableEntity
	case CodeCompletion:
		return http.StatusBadGateway
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
