package prices

import (
	"context"
	"log/slog"

	"github.com/spotswitch/spotswitch/pkg/clock"
	"github.com/spotswitch/spotswitch/pkg/log"
	"github.com/spotswitch/spotswitch/pkg/types"
)

const (
	// HoursPerDay entries make up a complete same-day table; TomorrowOffset
	// tags next-day records into the upper half of the table.
	HoursPerDay    = 24
	TomorrowOffset = 24
	tableSize      = 48

	// retryBackoffSeconds is how long to wait before re-attempting a fetch
	// after the price API returned a failure status.
	retryBackoffSeconds = 1800
)

// Aggregates are derived from exactly one same-day batch of records and are
// never mixed with next-day entries.
type Aggregates struct {
	Sum float64
	Min float64
	Max float64
	Avg float64
}

// Cache holds the latest known hourly price table for today, optionally
// extended with tomorrow's hours at indices 24-47, plus the same-day
// aggregates and retry bookkeeping for failed fetches. It has a single
// mutator (the cycle agent) and needs no locking.
type Cache struct {
	table [tableSize]float64
	have  [tableSize]bool

	agg     Aggregates
	haveAgg bool

	// lastDay is the calendar day of the last successful same-day fetch.
	lastDay    *clock.LocalDate
	retryAfter int64
}

// NewCache returns an empty price cache.
func NewCache() *Cache {
	return &Cache{}
}

// retryAllowed reports whether the backoff from a past failure has elapsed.
func (c *Cache) retryAllowed(now clock.LocalDate) bool {
	return c.retryAfter < now.Epoch
}

// NeedsFetchToday reports whether a same-day fetch should be attempted: the
// day changed since the last successful fetch (or none succeeded yet, or the
// table is empty) and the retry backoff has elapsed.
func (c *Cache) NeedsFetchToday(now clock.LocalDate) bool {
	if !c.retryAllowed(now) {
		return false
	}
	return c.lastDay == nil || !c.lastDay.SameDay(now) || !c.HasData()
}

// NeedsFetchTomorrow reports whether a next-day fetch should be attempted:
// today's table is complete, nothing for tomorrow is held yet, the local hour
// has reached the cutoff and the retry backoff has elapsed.
func (c *Cache) NeedsFetchTomorrow(now clock.LocalDate, cutoffHour int) bool {
	if !c.retryAllowed(now) {
		return false
	}
	if now.Hour < cutoffHour {
		return false
	}
	return c.todayComplete() && !c.haveTomorrow()
}

func (c *Cache) todayComplete() bool {
	for h := 0; h < HoursPerDay; h++ {
		if !c.have[h] {
			return false
		}
	}
	return true
}

func (c *Cache) haveTomorrow() bool {
	for h := HoursPerDay; h < tableSize; h++ {
		if c.have[h] {
			return true
		}
	}
	return false
}

// Apply writes one fetched batch into the table at hour+offset. A same-day
// batch (offset 0) first discards the whole table so stale entries from a
// previous day can never survive, then recomputes the aggregates from exactly
// the records in this batch and remembers the fetch day. Applying the same
// batch twice is a no-op.
func (c *Cache) Apply(ctx context.Context, offset int, now clock.LocalDate, records []types.PriceRecord) {
	if offset == 0 {
		c.table = [tableSize]float64{}
		c.have = [tableSize]bool{}
		c.haveAgg = false
	}

	var agg Aggregates
	n := 0
	for _, rec := range records {
		hour, err := rec.Hour()
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping malformed price record", slog.Any("error", err))
			continue
		}
		idx := hour + offset
		if idx < 0 || idx >= tableSize {
			log.Ctx(ctx).WarnContext(ctx, "skipping out-of-range price record",
				slog.Int("hour", hour), slog.Int("offset", offset))
			continue
		}
		c.table[idx] = rec.SEKPerKWH
		c.have[idx] = true

		agg.Sum += rec.SEKPerKWH
		if n == 0 || rec.SEKPerKWH < agg.Min {
			agg.Min = rec.SEKPerKWH
		}
		if n == 0 || rec.SEKPerKWH > agg.Max {
			agg.Max = rec.SEKPerKWH
		}
		n++
	}

	if offset == 0 {
		if n > 0 {
			agg.Avg = agg.Sum / float64(n)
			c.agg = agg
			c.haveAgg = true
		}
		day := now
		c.lastDay = &day
	}
}

// Fail records a failed fetch: no retry before now+backoff. A failed same-day
// fetch discards the table and the last-day marker so a fresh fetch is
// attempted as soon as the backoff permits; a failed next-day fetch leaves
// today's data untouched.
func (c *Cache) Fail(ctx context.Context, offset int, now clock.LocalDate) {
	c.retryAfter = now.Epoch + retryBackoffSeconds
	if offset == 0 {
		c.table = [tableSize]float64{}
		c.have = [tableSize]bool{}
		c.haveAgg = false
		c.lastDay = nil
		log.Ctx(ctx).WarnContext(ctx, "no price information available, will retry",
			slog.Int64("retryAfter", c.retryAfter))
		return
	}
	log.Ctx(ctx).WarnContext(ctx, "today's prices still valid, will retry tomorrow's prices",
		slog.Int64("retryAfter", c.retryAfter))
}

// HasData reports whether any price entry is held.
func (c *Cache) HasData() bool {
	for _, ok := range c.have {
		if ok {
			return true
		}
	}
	return false
}

// Span is the populated table length: the highest populated index plus one.
// Lookahead wrap-around in the decision engine is taken modulo this value.
func (c *Cache) Span() int {
	for i := tableSize - 1; i >= 0; i-- {
		if c.have[i] {
			return i + 1
		}
	}
	return 0
}

// PriceAt returns the price at an hour index and whether it is populated.
func (c *Cache) PriceAt(hour int) (float64, bool) {
	if hour < 0 || hour >= tableSize || !c.have[hour] {
		return 0, false
	}
	return c.table[hour], true
}

// Aggregates returns the same-day min/max/avg/sum and whether they are known.
func (c *Cache) Aggregates() (Aggregates, bool) {
	return c.agg, c.haveAgg
}
