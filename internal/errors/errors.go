package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidInvocation indicates the CLI was called with the wrong arguments
	InvalidInvocation ErrorCode = "INVALID_INVOCATION"
	// RootNotFound indicates the search root does not exist
	RootNotFound ErrorCode = "ROOT_NOT_FOUND"
	// ArchiveOpenFailed indicates an archive could not be opened or its header parsed
	ArchiveOpenFailed ErrorCode = "ARCHIVE_OPEN_FAILED"
	// ArchiveReadFailed indicates an archive stream became unreadable mid-iteration
	ArchiveReadFailed ErrorCode = "ARCHIVE_READ_FAILED"
	// ListingFailed indicates a directory listing could not be read
	ListingFailed ErrorCode = "LISTING_FAILED"
	// ConfigInvalid indicates the configuration could not be loaded or validated
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// UnsupportedFormat indicates no reader is registered for an archive suffix
	UnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// ScanError represents a jarscan error with code, message and the path it concerns
type ScanError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
	cause   error     // Underlying error (not exported to JSON)
}

// NewScanError creates a new ScanError
func NewScanError(code ErrorCode, message string, path string, cause error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Path:    path,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *ScanError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error {
	return e.cause
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not a ScanError.
func CodeOf(err error) ErrorCode {
	var se *ScanError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether err wraps a ScanError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Recoverable reports whether scanning can continue after err.
// Archive and listing failures only affect a single file or directory.
func Recoverable(code ErrorCode) bool {
	switch code {
	case ArchiveOpenFailed, ArchiveReadFailed, ListingFailed, UnsupportedFormat:
		return true
	default:
		return false
	}
}
