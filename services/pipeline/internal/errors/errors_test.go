package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *DomainError
		want string
	}{
		{
			name: "message only",
			err:  &DomainError{Type: ErrTypeNotFound, Message: "column missing"},
			want: "NOT_FOUND: column missing",
		},
		{
			name: "with cause",
			err:  &DomainError{Type: ErrTypeInternal, Message: "write", Err: fmt.Errorf("disk full")},
			want: "INTERNAL: write: disk full",
		},
		{
			name: "with op",
			err:  &DomainError{Type: ErrTypeUnavailable, Op: "fetch", Message: "status 503"},
			want: "UNAVAILABLE [fetch]: status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestNew_CapturesStack(t *testing.T) {
	err := Internal("boom", nil)
	assert.NotEmpty(t, err.StackTrace())

	wrapped := Unavailable("upstream", fmt.Errorf("dial tcp: refused"))
	assert.NotEmpty(t, wrapped.StackTrace())
	assert.Equal(t, "dial tcp: refused", stderrors.Unwrap(wrapped).Error())
}

func TestWithOp(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WithOp("load", nil))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		err := WithOp("export", fmt.Errorf("permission denied"))
		require.Error(t, err)
		assert.Equal(t, ErrTypeInternal, TypeOf(err))
		assert.Equal(t, "export", OpOf(err))
	})

	t.Run("domain error keeps type and first op", func(t *testing.T) {
		inner := RateLimit("slow down", nil)
		err := WithOp("upload", inner)
		err = WithOp("run", err)
		assert.True(t, Is(err, ErrTypeRateLimit))
		assert.Equal(t, "upload", OpOf(err))
	})

	t.Run("wrapped domain error is found", func(t *testing.T) {
		err := fmt.Errorf("context: %w", Unauthorized("bad token", nil))
		assert.True(t, Is(WithOp("upload", err), ErrTypeUnauthorized))
	})
}

func TestTypeOf_NonDomain(t *testing.T) {
	assert.Equal(t, ErrTypeInternal, TypeOf(fmt.Errorf("x")))
	assert.False(t, Is(fmt.Errorf("x"), ErrTypeNotFound))
	assert.Equal(t, "", OpOf(fmt.Errorf("x")))
}
