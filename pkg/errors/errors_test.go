package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewAuthError(401, "invalid credentials for %s", "student")
	assert.Equal(t, "auth error (code 401): invalid credentials for student", err.Error())
}

func TestErrorMatchesAs(t *testing.T) {
	wrapped := fmt.Errorf("login failed: %w", NewAuthError(401, "bad password"))

	var typed *Error
	assert.True(t, errors.As(wrapped, &typed))
	assert.Equal(t, ErrorTypeAuth, typed.Type)
	assert.Equal(t, 401, typed.Code)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		retryable bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeServerError, true},
		{ErrorTypeAuth, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeParse, false},
		{ErrorTypeDownload, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.errorType))
		})
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		retryable  bool
	}{
		{"network error", 0, true},
		{"too many requests", 429, true},
		{"internal server error", 500, true},
		{"bad gateway", 502, true},
		{"service unavailable", 503, true},
		{"gateway timeout", 504, true},
		{"unauthorized", 401, false},
		{"forbidden", 403, false},
		{"not found", 404, false},
		{"bad request", 400, false},
		{"unlisted 5xx", 599, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryableStatusCode(tt.statusCode))
		})
	}
}
