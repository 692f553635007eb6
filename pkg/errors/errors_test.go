package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidDescriptor, "no usable identity in locator: %s", "{}")

	if err.Code != ErrCodeInvalidDescriptor {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidDescriptor)
	}

	if err.Message != "no usable identity in locator: {}" {
		t.Errorf("Message = %v, want %v", err.Message, "no usable identity in locator: {}")
	}

	expected := "INVALID_DESCRIPTOR: no usable identity in locator: {}"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeFetch, cause, "fetch archive")

	if err.Code != ErrCodeFetch {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeFetch)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidLocator, "test"),
			code:     ErrCodeInvalidLocator,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidLocator, "test"),
			code:     ErrCodeNetwork,
			expected: false,
		},
		{
			name:     "outer code",
			err:      Wrap(ErrCodeFetch, New(ErrCodeInvalidArchive, "inner"), "outer"),
			code:     ErrCodeFetch,
			expected: true,
		},
		{
			name:     "inner code",
			err:      Wrap(ErrCodeFetch, New(ErrCodeInvalidArchive, "inner"), "outer"),
			code:     ErrCodeInvalidArchive,
			expected: true,
		},
		{
			name:     "through fmt wrapping",
			err:      fmt.Errorf("assemble: %w", New(ErrCodeLocationNotFound, "gone")),
			code:     ErrCodeLocationNotFound,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeProgramConflict, "x")); got != ErrCodeProgramConflict {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeProgramConflict)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"structured", New(ErrCodeNotFound, "archive not found"), "archive not found"},
		{"nested", Wrap(ErrCodeFetch, New(ErrCodeNetwork, "status 502"), "fetch x"), "fetch x: status 502"},
		{"plain cause", Wrap(ErrCodeFetch, errors.New("eof"), "fetch y"), "fetch y: eof"},
		{"plain", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
