package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("stores and retrieves request ID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithRequestID(ctx, "req-123")

		result := RequestIDFromContext(ctx)
		assert.Equal(t, "req-123", result)
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		ctx := context.Background()
		result := RequestIDFromContext(ctx)
		assert.Equal(t, "", result)
	})

	t.Run("later value overwrites earlier one", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithRequestID(ctx, "first")
		ctx = WithRequestID(ctx, "second")

		result := RequestIDFromContext(ctx)
		assert.Equal(t, "second", result)
	})
}
