package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeOutOfFrame, cause, "measure 3001.dat")

	if err.Code != ErrCodeOutOfFrame {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeOutOfFrame)
	}

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
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
			err:      New(ErrCodeNumberingInvariant, "test"),
			code:     ErrCodeNumberingInvariant,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeOutOfFrame,
			expected: false,
		},
		{
			name:     "wrapped with fmt",
			err:      fmt.Errorf("relayout: %w", New(ErrCodeOverlapUnresolvable, "page 3")),
			code:     ErrCodeOverlapUnresolvable,
			expected: true,
		},
		{
			name:     "parse error",
			err:      &ParseError{Line: 4, Reason: "bad color"},
			code:     ErrCodeParse,
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

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{File: "car.ldr", Line: 12, Reason: "expected 15 tokens"}
	want := "PARSE_ERROR: car.ldr:12: expected 15 tokens"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeCanceled, "import canceled")); got != "import canceled" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage() = %q", got)
	}
}
