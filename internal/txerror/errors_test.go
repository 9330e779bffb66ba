package txerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "entity creation",
			err:      &EntityCreationError{Kind: "vendor", Label: "Tesco", Err: cause},
			expected: `failed to create vendor "Tesco": connection reset`,
		},
		{
			name:     "entity rename",
			err:      &EntityRenameError{Kind: "account", ID: "a1", Label: "Savings", Err: cause},
			expected: `failed to rename account a1 to "Savings": connection reset`,
		},
		{
			name:     "extraction with file",
			err:      &ExtractionError{File: "r.jpg", Err: cause},
			expected: "receipt extraction failed for r.jpg: connection reset",
		},
		{
			name:     "extraction without file",
			err:      &ExtractionError{Err: cause},
			expected: "receipt extraction failed: connection reset",
		},
		{
			name:     "submit",
			err:      &SubmitError{Stage: StageWrite, Err: cause},
			expected: "submit failed at write: connection reset",
		},
		{
			name:     "feed fetch",
			err:      &FeedFetchError{Page: 3, Err: cause},
			expected: "failed to fetch transactions page 3: connection reset",
		},
		{
			name:     "api error with message",
			err:      &APIError{Op: "create category", StatusCode: 400, Message: "name required"},
			expected: "create category: backend returned 400: name required",
		},
		{
			name:     "api error without message",
			err:      &APIError{Op: "list vendors", StatusCode: 503},
			expected: "list vendors: backend returned 503 Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSubmitErrorChain(t *testing.T) {
	apiErr := &APIError{Op: "create vendor", StatusCode: http.StatusUnauthorized}
	err := fmt.Errorf("add transaction: %w", &SubmitError{
		Stage: StageVendor,
		Err:   &EntityCreationError{Kind: "vendor", Label: "Tesco", Err: apiErr},
	})

	var submitErr *SubmitError
	require.True(t, errors.As(err, &submitErr))
	assert.Equal(t, StageVendor, submitErr.Stage)

	var creationErr *EntityCreationError
	require.True(t, errors.As(err, &creationErr))
	assert.Equal(t, "Tesco", creationErr.Label)

	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestAPIErrorIs(t *testing.T) {
	assert.True(t, errors.Is(&APIError{StatusCode: http.StatusUnauthorized}, ErrUnauthorized))
	assert.False(t, errors.Is(&APIError{StatusCode: http.StatusForbidden}, ErrUnauthorized))
	assert.False(t, errors.Is(&APIError{StatusCode: http.StatusUnauthorized}, ErrFormClosed))
}
