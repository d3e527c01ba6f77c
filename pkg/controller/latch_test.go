package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTempLatch(t *testing.T) {
	ctx := context.Background()

	t.Run("armed before first observation", func(t *testing.T) {
		assert.True(t, NewTempLatch().Active())
	})

	t.Run("holds through the hysteresis band", func(t *testing.T) {
		l := NewTempLatch()
		assert.True(t, l.Observe(ctx, 25, 30, 20))
		// between limit and limit+hysteresis the state is held
		assert.True(t, l.Observe(ctx, 40, 30, 20))
		assert.True(t, l.Observe(ctx, 50, 30, 20))
		// only above limit+hysteresis does the override release
		assert.False(t, l.Observe(ctx, 51, 30, 20))
		// and it stays released inside the band on the way down
		assert.False(t, l.Observe(ctx, 40, 30, 20))
		assert.False(t, l.Observe(ctx, 31, 30, 20))
		// rearms at the limit
		assert.True(t, l.Observe(ctx, 30, 30, 20))
	})

	t.Run("releases when warm from the start", func(t *testing.T) {
		l := NewTempLatch()
		assert.False(t, l.Observe(ctx, 60, 30, 20))
	})
}
