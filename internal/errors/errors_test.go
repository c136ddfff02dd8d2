package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiptideError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("original error")

	// When: wrapping with RiptideError
	rerr := New(ErrCodeTenantNotFound, "tenant not found: acme", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, rerr)
	assert.Equal(t, originalErr, errors.Unwrap(rerr))
	assert.True(t, errors.Is(rerr, originalErr))
}

func TestRiptideError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "tenant error",
			code:     ErrCodeTenantNotFound,
			message:  "tenant acme has no partition",
			expected: "[ERR_201_TENANT_NOT_FOUND] tenant acme has no partition",
		},
		{
			name:     "empty query",
			code:     ErrCodeQueryEmpty,
			message:  "query cannot be empty",
			expected: "[ERR_404_QUERY_EMPTY] query cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestRiptideError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := New(ErrCodeSourceFailed, "keyword backend down", nil)
	err2 := New(ErrCodeSourceFailed, "vector backend down", nil)

	// Then: they match by code
	assert.True(t, errors.Is(err1, err2))
}

func TestRiptideError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	// Given: two errors with different codes
	err1 := New(ErrCodeSourceFailed, "backend down", nil)
	err2 := New(ErrCodeSourceTimeout, "backend slow", nil)

	// Then: they don't match
	assert.False(t, errors.Is(err1, err2))
}

func TestRiptideError_WithDetails_AddsContext(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeSourceFailed, "search failed", nil)

	// When: adding details
	err = err.WithDetail("source", "keyword")
	err = err.WithDetail("tenant", "acme")

	// Then: details are available
	assert.Equal(t, "keyword", err.Details["source"])
	assert.Equal(t, "acme", err.Details["tenant"])
}

func TestRiptideError_WithSuggestion_AddsSuggestion(t *testing.T) {
	// Given: a network error
	err := New(ErrCodeEmbedderOffline, "embedder not reachable", nil)

	// When: adding suggestion
	err = err.WithSuggestion("Check that the Ollama endpoint is running")

	// Then: suggestion is available
	assert.Equal(t, "Check that the Ollama endpoint is running", err.Suggestion)
}

func TestRiptideError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeTenantNotFound, CategoryStorage},
		{ErrCodePartitionLocked, CategoryStorage},
		{ErrCodeEmptyIndex, CategoryStorage},
		{ErrCodeNetworkTimeout, CategoryNetwork},
		{ErrCodeEmbedderOffline, CategoryNetwork},
		{ErrCodeQueryEmpty, CategoryValidation},
		{ErrCodeTopKInvalid, CategoryValidation},
		{ErrCodeTenantInvalid, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeSourceFailed, CategoryInternal},
		{ErrCodeEngineUnavailable, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestRiptideError_Retryable(t *testing.T) {
	tests := []struct {
		code      string
		retryable bool
	}{
		{ErrCodeNetworkTimeout, true},
		{ErrCodeSourceUnreachable, true},
		{ErrCodeEmbedderOffline, true},
		{ErrCodeSourceTimeout, true},
		{ErrCodeQueryEmpty, false},
		{ErrCodeTenantInvalid, false},
		{ErrCodeCorruptIndex, false},
		{ErrCodeSourceFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test", nil)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestRiptideError_FatalSeverity(t *testing.T) {
	// Corrupt index and disk full must abort the operation
	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "index corrupted", nil)))
	assert.True(t, IsFatal(New(ErrCodeDiskFull, "disk full", nil)))
	assert.False(t, IsFatal(New(ErrCodeQueryEmpty, "empty query", nil)))
	assert.False(t, IsFatal(nil))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWrap_PreservesMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeSourceUnreachable, cause)

	require.NotNil(t, err)
	assert.Equal(t, "connection refused", err.Message)
	assert.Equal(t, cause, err.Cause)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeQueryEmpty, GetCode(New(ErrCodeQueryEmpty, "empty", nil)))
	assert.Equal(t, "", GetCode(errors.New("plain error")))
}

func TestGetCategory(t *testing.T) {
	assert.Equal(t, CategoryValidation, GetCategory(New(ErrCodeQueryEmpty, "empty", nil)))
	assert.Equal(t, Category(""), GetCategory(errors.New("plain error")))
}

func TestConstructors_AssignExpectedCodes(t *testing.T) {
	assert.Equal(t, ErrCodeConfigInvalid, ConfigError("bad config", nil).Code)
	assert.Equal(t, ErrCodeCorruptIndex, StorageError("bad index", nil).Code)
	assert.Equal(t, ErrCodeInvalidInput, ValidationError("bad input", nil).Code)
	assert.Equal(t, ErrCodeSourceFailed, SourceError("source down", nil).Code)
	assert.Equal(t, ErrCodeSourceTimeout, SourceTimeoutError("source slow", nil).Code)
	assert.Equal(t, ErrCodeInternal, InternalError("boom", nil).Code)
}
