package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "should vanish"))
	})

	t.Run("wrapped error preserves cause", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := Wrap(cause, CodeInternal, "failed to load facts")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.True(t, HasCode(err, CodeInternal))
	})

	t.Run("code survives further wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "case not found")
		outer := fmt.Errorf("run evaluation: %w", inner)
		assert.True(t, HasCode(outer, CodeNotFound))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad field")))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain error")))
}
