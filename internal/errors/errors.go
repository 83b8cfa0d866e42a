package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// AppError carries a classification code through the call stack so the
// dispatcher and entry point can act on it (retry, report, exit) without
// string matching. User-facing errors additionally carry a message and
// suggestion safe to print to the operator.
type AppError struct {
	Code            Code
	Message         string
	InternalDetails string
	IsUserFacing    bool
	SuggestedAction string
	WrappedError    error
	StackTrace      string
}

func (e *AppError) Error() string {
	if e.WrappedError != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.WrappedError)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.WrappedError
}

func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StackTrace: string(debug.Stack()),
	}
}

func NewUserFacing(code Code, message string, suggestion string) *AppError {
	return &AppError{
		Code:            code,
		Message:         message,
		IsUserFacing:    true,
		SuggestedAction: suggestion,
		StackTrace:      string(debug.Stack()),
	}
}

// Wrap classifies err under code. An error that is already an AppError is
// returned unchanged so the first classification wins; callers that need to
// escalate a code (e.g. throttle exhaustion to SCAN_INCOMPLETE) construct a
// new error and set WrappedError themselves.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:         code,
		Message:      message,
		WrappedError: err,
		StackTrace:   string(debug.Stack()),
	}
}

func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetUserFacingMessage walks the chain for the first user-facing error and
// returns its message and suggestion. When none exists it returns a generic
// pair and false.
func GetUserFacingMessage(err error) (string, string, bool) {
	for next := err; next != nil; next = errors.Unwrap(next) {
		var appErr *AppError
		if !errors.As(next, &appErr) {
			break
		}
		if appErr.IsUserFacing {
			return appErr.Message, appErr.SuggestedAction, true
		}
		next = appErr
	}
	return "An unexpected error occurred.", "Check logs for more details.", false
}
