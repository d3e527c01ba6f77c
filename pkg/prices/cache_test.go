package prices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spotswitch/spotswitch/pkg/clock"
	"github.com/spotswitch/spotswitch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayAt(t *testing.T, day, hour int) clock.LocalDate {
	t.Helper()
	return clock.FromEpoch(time.Date(2025, 1, day, hour, 5, 0, 0, time.UTC).Unix(), 0, false)
}

// fullDay builds 24 hourly records priced v except for overrides[hour].
func fullDay(day int, v float64, overrides map[int]float64) []types.PriceRecord {
	records := make([]types.PriceRecord, 0, 24)
	for h := 0; h < 24; h++ {
		price := v
		if o, ok := overrides[h]; ok {
			price = o
		}
		records = append(records, types.PriceRecord{
			SEKPerKWH: price,
			TimeStart: fmt.Sprintf("2025-01-%02dT%02d:00:00+01:00", day, h),
		})
	}
	return records
}

func TestCacheFetchTriggers(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyCacheNeedsToday", func(t *testing.T) {
		c := NewCache()
		assert.True(t, c.NeedsFetchToday(dayAt(t, 8, 10)))
	})

	t.Run("SameDayDoesNotRefetch", func(t *testing.T) {
		c := NewCache()
		now := dayAt(t, 8, 10)
		c.Apply(ctx, 0, now, fullDay(8, 0.10, nil))
		assert.False(t, c.NeedsFetchToday(dayAt(t, 8, 14)))
	})

	t.Run("DayChangeRefetches", func(t *testing.T) {
		c := NewCache()
		c.Apply(ctx, 0, dayAt(t, 8, 10), fullDay(8, 0.10, nil))
		assert.True(t, c.NeedsFetchToday(dayAt(t, 9, 0)))
	})

	t.Run("TomorrowGating", func(t *testing.T) {
		c := NewCache()
		now := dayAt(t, 8, 10)
		assert.False(t, c.NeedsFetchTomorrow(now, 15), "empty table never fetches tomorrow")

		c.Apply(ctx, 0, now, fullDay(8, 0.10, nil))
		assert.False(t, c.NeedsFetchTomorrow(dayAt(t, 8, 14), 15), "before cutoff hour")
		assert.True(t, c.NeedsFetchTomorrow(dayAt(t, 8, 15), 15), "at cutoff hour")

		c.Apply(ctx, TomorrowOffset, dayAt(t, 8, 15), fullDay(9, 0.20, nil))
		assert.False(t, c.NeedsFetchTomorrow(dayAt(t, 8, 16), 15), "tomorrow already held")
	})
}

func TestCacheApply(t *testing.T) {
	ctx := context.Background()
	now := dayAt(t, 8, 10)

	t.Run("AggregatesFromSameDayBatch", func(t *testing.T) {
		c := NewCache()
		c.Apply(ctx, 0, now, fullDay(8, 0.10, map[int]float64{3: 0.02, 18: 0.50}))

		agg, ok := c.Aggregates()
		require.True(t, ok)
		assert.Equal(t, 0.02, agg.Min)
		assert.Equal(t, 0.50, agg.Max)
		assert.InDelta(t, (0.10*22+0.02+0.50)/24, agg.Avg, 1e-9)
		assert.Equal(t, 24, c.Span())

		price, ok := c.PriceAt(3)
		require.True(t, ok)
		assert.Equal(t, 0.02, price)
	})

	t.Run("Idempotent", func(t *testing.T) {
		c := NewCache()
		batch := fullDay(8, 0.10, map[int]float64{7: 0.33})
		c.Apply(ctx, 0, now, batch)
		agg1, _ := c.Aggregates()

		c.Apply(ctx, 0, now, batch)
		agg2, _ := c.Aggregates()
		assert.Equal(t, agg1, agg2)
		assert.Equal(t, 24, c.Span())
		price, ok := c.PriceAt(7)
		require.True(t, ok)
		assert.Equal(t, 0.33, price)
	})

	t.Run("TomorrowDoesNotTouchAggregates", func(t *testing.T) {
		c := NewCache()
		c.Apply(ctx, 0, now, fullDay(8, 0.10, nil))
		agg1, _ := c.Aggregates()

		c.Apply(ctx, TomorrowOffset, dayAt(t, 8, 15), fullDay(9, 9.99, nil))
		agg2, ok := c.Aggregates()
		require.True(t, ok)
		assert.Equal(t, agg1, agg2)
		assert.Equal(t, 48, c.Span())

		price, ok := c.PriceAt(24)
		require.True(t, ok)
		assert.Equal(t, 9.99, price)
	})

	t.Run("SameDayApplyDiscardsTomorrow", func(t *testing.T) {
		c := NewCache()
		c.Apply(ctx, 0, now, fullDay(8, 0.10, nil))
		c.Apply(ctx, TomorrowOffset, dayAt(t, 8, 15), fullDay(9, 0.20, nil))
		require.Equal(t, 48, c.Span())

		// next day's same-day fetch replaces everything
		c.Apply(ctx, 0, dayAt(t, 9, 0), fullDay(9, 0.20, nil))
		assert.Equal(t, 24, c.Span())
	})

	t.Run("MalformedRecordsSkipped", func(t *testing.T) {
		c := NewCache()
		c.Apply(ctx, 0, now, []types.PriceRecord{
			{SEKPerKWH: 0.10, TimeStart: "2025-01-08T00:00:00+01:00"},
			{SEKPerKWH: 0.20, TimeStart: "bogus"},
		})
		assert.Equal(t, 1, c.Span())
		agg, ok := c.Aggregates()
		require.True(t, ok)
		assert.Equal(t, 0.10, agg.Min)
		assert.Equal(t, 0.10, agg.Max)
	})
}

func TestCacheFail(t *testing.T) {
	ctx := context.Background()

	t.Run("SameDayFailureDiscardsEverything", func(t *testing.T) {
		c := NewCache()
		now := dayAt(t, 8, 10)
		c.Apply(ctx, 0, now, fullDay(8, 0.10, nil))

		c.Fail(ctx, 0, now)
		assert.False(t, c.HasData())
		_, ok := c.Aggregates()
		assert.False(t, ok)

		// backoff holds for 1800s, then a fresh fetch is due
		assert.False(t, c.NeedsFetchToday(now))
		later := clock.FromEpoch(now.Epoch+retryBackoffSeconds+1, 0, false)
		assert.True(t, c.NeedsFetchToday(later))
	})

	t.Run("NextDayFailureKeepsToday", func(t *testing.T) {
		c := NewCache()
		now := dayAt(t, 8, 15)
		c.Apply(ctx, 0, now, fullDay(8, 0.10, nil))

		c.Fail(ctx, TomorrowOffset, now)
		assert.True(t, c.HasData())
		agg, ok := c.Aggregates()
		require.True(t, ok)
		assert.InDelta(t, 0.10, agg.Avg, 1e-9)

		// tomorrow retry blocked until the backoff elapses
		assert.False(t, c.NeedsFetchTomorrow(now, 15))
		later := clock.FromEpoch(now.Epoch+retryBackoffSeconds+1, 0, false)
		assert.True(t, c.NeedsFetchTomorrow(later, 15))
	})
}
