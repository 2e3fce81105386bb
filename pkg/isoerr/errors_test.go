package isoerr

import (
	"fmt"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatching(t *testing.T) {
	t.Run("format", func(t *testing.T) {
		err := fmt.Errorf("load: %w", NewFormatError("missing %s", "CD001"))
		require.True(t, IsFormat(err))
		assert.False(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "missing CD001")
	})

	t.Run("not found unwraps the os error", func(t *testing.T) {
		err := NewNotFoundError("/nope", os.ErrNotExist)
		require.True(t, IsNotFound(err))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("cancelled", func(t *testing.T) {
		err := NewCancelledError("file payloads")
		require.True(t, IsCancelled(err))
		var ce *CancelledError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "file payloads", ce.Stage)
	})

	t.Run("stack trace is attached", func(t *testing.T) {
		err := NewFormatError("short")
		assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")
	})
}
