package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrorTypeConnection, "ignored"))
	})

	t.Run("preserves cause", func(t *testing.T) {
		err := Wrap(context.DeadlineExceeded, ErrorTypeTimeout, "request timed out")
		require.NotNil(t, err)
		assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
		assert.Equal(t, "timeout: request timed out: context deadline exceeded", err.Error())
	})

	t.Run("keeps stack of inner error", func(t *testing.T) {
		inner := New(ErrorTypeAPI, "inner")
		outer := Wrap(inner, ErrorTypeConnection, "outer")
		assert.Equal(t, inner.Stack, outer.Stack)
	})
}

func TestIsType(t *testing.T) {
	apiErr := NewAPIError("votes", 500, "boom")
	wrapped := fmt.Errorf("read votes: %w", Wrap(apiErr, ErrorTypeConnection, "request failed"))

	assert.True(t, IsType(wrapped, ErrorTypeAPI))
	assert.True(t, IsType(wrapped, ErrorTypeConnection))
	assert.False(t, IsType(wrapped, ErrorTypeConfig))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeAPI))
}

func TestStatusCode(t *testing.T) {
	code, ok := StatusCode(NewAPIError("images", 404, "missing"))
	assert.True(t, ok)
	assert.Equal(t, 404, code)

	_, ok = StatusCode(New(ErrorTypeResponseFormat, "bad body"))
	assert.False(t, ok)
}

func TestNewAPIError(t *testing.T) {
	err := NewAPIError("favourites", 401, `{"message":"unauthorized"}`)
	assert.Equal(t, ErrorTypeAPI, err.Type)
	assert.Equal(t, `{"message":"unauthorized"}`, err.Details["body"])
	assert.Equal(t, "favourites", err.Details["resource"])
	assert.Contains(t, err.Error(), "401")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", New(ErrorTypeTimeout, "t"), true},
		{"connection", New(ErrorTypeConnection, "c"), true},
		{"server error", NewAPIError("breeds", 503, ""), true},
		{"too many requests", NewAPIError("breeds", 429, ""), true},
		{"not found", NewAPIError("breeds", 404, ""), false},
		{"unsupported table", UnsupportedTable("dogs"), false},
		{"plain error", stderrors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
