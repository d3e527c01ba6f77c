package controller

import (
	"context"
	"log/slog"

	"github.com/spotswitch/spotswitch/pkg/log"
)

// TempLatch tracks the low-internal-temperature override with hysteresis.
// The latch arms at or under the limit and only disarms once the temperature
// rises above limit+hysteresis, so the switch does not flap while the device
// warms up. Until the first observation the latch is treated as armed to
// fail safe toward a heated enclosure.
type TempLatch struct {
	active bool
}

// NewTempLatch returns an armed latch.
func NewTempLatch() *TempLatch {
	return &TempLatch{active: true}
}

// Observe feeds a temperature reading in whole degrees Celsius into the
// latch and returns whether the override is active.
func (l *TempLatch) Observe(ctx context.Context, tempC, limit, hysteresis int) bool {
	switch {
	case tempC <= limit:
		log.Ctx(ctx).WarnContext(ctx, "internal temperature is at or under the limit",
			slog.Int("tempC", tempC), slog.Int("limit", limit))
		l.active = true
	case tempC > limit+hysteresis:
		if l.active {
			log.Ctx(ctx).InfoContext(ctx, "internal temperature recovered, releasing override",
				slog.Int("tempC", tempC))
		}
		l.active = false
	}
	return l.active
}

// Active reports the latch state without feeding a new reading.
func (l *TempLatch) Active() bool {
	return l.active
}
