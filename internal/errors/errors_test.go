package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewScanError(t *testing.T) {
	cause := errors.New("underlying error")

	err := NewScanError(ArchiveOpenFailed, "cannot open archive", "/tmp/a.jar", cause)

	if err.Code != ArchiveOpenFailed {
		t.Errorf("Code = %v, want %v", err.Code, ArchiveOpenFailed)
	}
	if err.Message != "cannot open archive" {
		t.Errorf("Message = %q, want %q", err.Message, "cannot open archive")
	}
	if err.Path != "/tmp/a.jar" {
		t.Errorf("Path = %q, want %q", err.Path, "/tmp/a.jar")
	}
}

func TestScanError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		path      string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause and path",
			code:      ArchiveReadFailed,
			message:   "entry stream truncated",
			path:      "/libs/x.jar",
			cause:     errors.New("unexpected EOF"),
			wantParts: []string{"ARCHIVE_READ_FAILED", "entry stream truncated", "/libs/x.jar", "unexpected EOF"},
		},
		{
			name:      "without cause",
			code:      RootNotFound,
			message:   "root does not exist",
			wantParts: []string{"ROOT_NOT_FOUND", "root does not exist"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewScanError(tt.code, tt.message, tt.path, tt.cause)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestScanError_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewScanError(ArchiveOpenFailed, "open", "a.jar", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}

	wrapped := fmt.Errorf("inspect: %w", err)
	if CodeOf(wrapped) != ArchiveOpenFailed {
		t.Errorf("CodeOf(wrapped) = %q, want %q", CodeOf(wrapped), ArchiveOpenFailed)
	}
	if !HasCode(wrapped, ArchiveOpenFailed) {
		t.Error("HasCode should see through wrapping")
	}
}

func TestCodeOf_PlainError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if HasCode(nil, InternalError) {
		t.Error("HasCode(nil) should be false")
	}
}

func TestRecoverable(t *testing.T) {
	recoverable := []ErrorCode{ArchiveOpenFailed, ArchiveReadFailed, ListingFailed, UnsupportedFormat}
	for _, c := range recoverable {
		if !Recoverable(c) {
			t.Errorf("Recoverable(%s) = false, want true", c)
		}
	}

	fatal := []ErrorCode{ConfigInvalid, InternalError}
	for _, c := range fatal {
		if Recoverable(c) {
			t.Errorf("Recoverable(%s) = true, want false", c)
		}
	}
}
