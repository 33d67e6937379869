package errors

import (
	"errors"
	"fmt"
)

// Code is the generic category a destination maps its backend errors into.
type Code int

const (
	CodeOK Code = iota
	CodeUnknown
	CodeInvalidArgument
	CodeNotFound
	CodeAlreadyExists
	CodePermissionDenied
	CodeResourceExhausted
	CodeFailedPrecondition
	CodeOutOfRange
	CodeUnimplemented
	CodeUnavailable
	CodeDataLoss
)

var codeNames = map[Code]string{
	CodeOK:                 "OK",
	CodeUnknown:            "UNKNOWN",
	CodeInvalidArgument:    "INVALID_ARGUMENT",
	CodeNotFound:           "NOT_FOUND",
	CodeAlreadyExists:      "ALREADY_EXISTS",
	CodePermissionDenied:   "PERMISSION_DENIED",
	CodeResourceExhausted:  "RESOURCE_EXHAUSTED",
	CodeFailedPrecondition: "FAILED_PRECONDITION",
	CodeOutOfRange:         "OUT_OF_RANGE",
	CodeUnimplemented:      "UNIMPLEMENTED",
	CodeUnavailable:        "UNAVAILABLE",
	CodeDataLoss:           "DATA_LOSS",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Status is the error detail a destination reports: a category plus a
// human-readable message. Cause, when set, is the backend error it was
// mapped from.
type Status struct {
	Code    Code
	Message string
	Cause   error
}

// NewStatus creates a Status error.
func NewStatus(code Code, message string) *Status {
	return &Status{Code: code, Message: message}
}

// Statusf creates a Status error with a formatted message.
func Statusf(code Code, format string, args ...interface{}) *Status {
	return &Status{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (s *Status) Error() string {
	return s.Code.String() + ": " + s.Message
}

func (s *Status) Unwrap() error {
	if s.Code == CodeUnimplemented && s.Cause == nil {
		return ErrUnsupported
	}
	return s.Cause
}

// CodeOf extracts the category of err. A nil error is CodeOK, an error with
// no Status in its chain is CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var s *Status
	if errors.As(err, &s) {
		return s.Code
	}
	if errors.Is(err, ErrUnsupported) {
		return CodeUnimplemented
	}
	if errors.Is(err, ErrPositionOverflow) {
		return CodeResourceExhausted
	}
	return CodeUnknown
}

// IsUnsupported reports whether err says a primitive is not implemented.
func IsUnsupported(err error) bool {
	return CodeOf(err) == CodeUnimplemented
}
