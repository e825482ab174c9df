package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
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

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code of a wrapped AppError is kept.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// PublicMessage returns the message of the innermost AppError, which is the one
// written for the end user. Non-application errors yield a generic message.
func PublicMessage(err error) string {
	var msg string
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			msg = appErr.Message
		}
		err = stderrors.Unwrap(err)
	}
	if msg == "" {
		return "Internal server error"
	}
	return msg
}

// HTTPStatus maps an error to the status code a handler should answer with
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeUnsupportedFormat, CodeMissingFiles, CodeNoJoinKeys, CodeKeyNotFound,
		CodeDatasetNotSelected, CodeNothingToExport, CodeInvalidInput, CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUnavailable     = "UNAVAILABLE"

	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	CodeMissingFiles       = "MISSING_FILES"
	CodeNoJoinKeys         = "NO_JOIN_KEYS"
	CodeKeyNotFound        = "KEY_NOT_FOUND"
	CodeDatasetNotSelected = "DATASET_NOT_SELECTED"
	CodeNothingToExport    = "NOTHING_TO_EXPORT"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func Unavailable(message string) *AppError {
	return New(CodeUnavailable, message)
}

func UnsupportedFormat(filename string) *AppError {
	return &AppError{
		Code:    CodeUnsupportedFormat,
		Message: "Unsupported file type",
		Cause:   fmt.Errorf("unrecognized extension on %q", filename),
	}
}

func MissingFiles() *AppError {
	return New(CodeMissingFiles, "Both files are required")
}

func NoJoinKeys() *AppError {
	return New(CodeNoJoinKeys, "No join columns provided")
}

func KeyNotFound(key, dataset string) *AppError {
	return New(CodeKeyNotFound, fmt.Sprintf("Join column '%s' not found in %s", key, dataset))
}

func DatasetNotSelected() *AppError {
	return New(CodeDatasetNotSelected, "Dataset not available")
}

func NothingToExport() *AppError {
	return New(CodeNothingToExport, "No KPI data to export")
}
