package custerror

import (
	"errors"
	"fmt"
)

const (
	CodeInvalidArgument    uint32 = 3
	CodeDeadlineExceeded   uint32 = 4
	CodeNotFound           uint32 = 5
	CodeAlreadyExists      uint32 = 6
	CodePermissionDenied   uint32 = 7
	CodeFailedPrecondition uint32 = 9
	CodeInternal           uint32 = 13
	CodeUnavailable        uint32 = 14
)

type CustomError struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

func (e *CustomError) Error() string {
	return e.Message
}

func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func NewError(code uint32, msg string) *CustomError {
	return &CustomError{Code: code, Message: msg}
}

var (
	ErrorInvalidArgument    = NewError(CodeInvalidArgument, "invalid argument")
	ErrorNotFound           = NewError(CodeNotFound, "not found")
	ErrorAlreadyExists      = NewError(CodeAlreadyExists, "already exists")
	ErrorPermissionDenied   = NewError(CodePermissionDenied, "permission denied")
	ErrorInternal           = NewError(CodeInternal, "internal error")
	ErrorUnavailable        = NewError(CodeUnavailable, "unavailable")
	ErrorDeadlineExceeded   = NewError(CodeDeadlineExceeded, "deadline exceeded")
	ErrorFailedPrecondition = NewError(CodeFailedPrecondition, "failed precondition")
)

// Device protocol failures.
var (
	ErrConnectionFailure   = NewError(CodeUnavailable, "shell connection failure")
	ErrCommandTimeout      = NewError(CodeDeadlineExceeded, "shell command timeout")
	ErrStreamUnavailable   = NewError(CodeUnavailable, "stream unavailable")
	ErrProvisioningFailure = NewError(CodeFailedPrecondition, "provisioning failure")
	ErrMalformedEvent      = NewError(CodeInvalidArgument, "malformed event payload")
)

func FormatInvalidArgument(format string, args ...interface{}) error {
	return NewError(CodeInvalidArgument, fmt.Sprintf(format, args...))
}

func FormatNotFound(format string, args ...interface{}) error {
	return NewError(CodeNotFound, fmt.Sprintf(format, args...))
}

func FormatAlreadyExists(format string, args ...interface{}) error {
	return NewError(CodeAlreadyExists, fmt.Sprintf(format, args...))
}

func FormatPermissionDenied(format string, args ...interface{}) error {
	return NewError(CodePermissionDenied, fmt.Sprintf(format, args...))
}

func FormatInternalError(format string, args ...interface{}) error {
	return NewError(CodeInternal, fmt.Sprintf(format, args...))
}

func FormatUnavailable(format string, args ...interface{}) error {
	return NewError(CodeUnavailable, fmt.Sprintf(format, args...))
}

func FormatFailedPrecondition(format string, args ...interface{}) error {
	return NewError(CodeFailedPrecondition, fmt.Sprintf(format, args...))
}

// Wrap keeps the sentinel reachable through errors.Is while adding context.
func Wrap(sentinel *CustomError, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

func Code(err error) uint32 {
	var custErr *CustomError
	if errors.As(err, &custErr) {
		return custErr.Code
	}
	return CodeInternal
}
