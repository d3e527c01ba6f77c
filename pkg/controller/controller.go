// Package controller holds the decision engine and the cycle agent that
// together decide whether the controlled switches should be on.
package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spotswitch/spotswitch/pkg/clock"
	"github.com/spotswitch/spotswitch/pkg/log"
	"github.com/spotswitch/spotswitch/pkg/prices"
	"github.com/spotswitch/spotswitch/pkg/types"
)

// Settings is the immutable configuration of the control loop.
type Settings struct {
	TimezoneOffsetHours int
	DaylightSaving      bool
	IntervalSeconds     int64

	SwitchID int
	Switches int

	AlwaysOnMaxPrice float64
	OnOffLimit       float64
	CheckNextXHours  int
	StopAtDataEnd    bool
	InvertSwitch     bool
	InUseLimit       float64
	NormallyOnHours  []types.HourWindow

	TomorrowPricesAfter int

	LowIntTempLimit int
	LowIntTempHyst  int

	Simulate      bool
	SwitchControl bool
	ColorControl  bool
	Colors        []string
}

// Validate ensures the configuration is usable.
func (s Settings) Validate() error {
	if s.IntervalSeconds <= 0 {
		return fmt.Errorf("update interval must be positive")
	}
	if s.Switches < 1 {
		return fmt.Errorf("at least one switch must be controlled")
	}
	if s.SwitchID < 0 {
		return fmt.Errorf("switch id must not be negative")
	}
	if s.OnOffLimit <= 0 {
		return fmt.Errorf("on-off-limit must be positive")
	}
	if s.CheckNextXHours < 0 {
		return fmt.Errorf("check-next-hours must not be negative")
	}
	if s.TomorrowPricesAfter < 0 || s.TomorrowPricesAfter > 23 {
		return fmt.Errorf("tomorrow-prices-after must be an hour 0-23")
	}
	for _, w := range s.NormallyOnHours {
		if err := w.Valid(); err != nil {
			return fmt.Errorf("invalid normally-on window: %w", err)
		}
	}
	if s.ColorControl && len(s.Colors) == 0 {
		return fmt.Errorf("color-mode requires at least one color")
	}
	return nil
}

// Decision is the outcome of one evaluation.
type Decision struct {
	On          bool
	Explanation string
}

// Controller evaluates the layered switching rules.
type Controller struct {
}

// NewController creates a new Controller.
func NewController() *Controller {
	return &Controller{}
}

// Decide maps the current local time, price table, aggregates and telemetry
// to a single verdict. It is pure given its inputs; the low-temperature latch
// is owned by the caller and passed in as a plain flag.
//
// Rules run in a fixed order: the baseline lookahead window check, then the
// normally-on hour windows, the always-on price floor, the in-use power
// override and the low-temperature safety override, each of which can only
// turn the verdict on. Inversion is applied last.
func (c *Controller) Decide(
	ctx context.Context,
	date clock.LocalDate,
	cache *prices.Cache,
	tel types.Telemetry,
	lowTempOverride bool,
	s Settings,
) Decision {
	span := cache.Span()
	agg, haveAgg := cache.Aggregates()
	if span == 0 || !haveAgg {
		return Decision{On: false, Explanation: "no price data"}
	}
	limit := agg.Avg * s.OnOffLimit

	on := true
	explanation := "price within limits"
	for i := 0; i <= s.CheckNextXHours && on; i++ {
		idx := date.Hour + i
		if idx >= span {
			if s.StopAtDataEnd {
				log.Ctx(ctx).DebugContext(ctx, "stopping check at data end", slog.Int("hour", idx))
				break
			}
			idx %= span
		}
		price, ok := cache.PriceAt(idx)
		// an unpopulated slot counts as "not low enough" rather than
		// reading whatever a stale table might have held
		on = ok && (price <= s.AlwaysOnMaxPrice || price <= limit)
		log.Ctx(ctx).DebugContext(ctx, "window check",
			slog.Int("hour", idx),
			slog.Float64("price", price),
			slog.Bool("populated", ok),
			slog.Float64("limit", limit),
			slog.Bool("on", on))
	}
	if !on {
		explanation = "price above limit"
	}

	if !on {
		for _, w := range s.NormallyOnHours {
			if w.Contains(date.Hour) {
				log.Ctx(ctx).DebugContext(ctx, "current hour is within a normally-on window",
					slog.Int("from", w.From), slog.Int("to", w.To))
				on = true
				explanation = "normally-on window"
				break
			}
		}
	}

	if !on {
		if price, ok := cache.PriceAt(date.Hour); ok && price <= s.AlwaysOnMaxPrice {
			log.Ctx(ctx).DebugContext(ctx, "current price is at or under the always-on price",
				slog.Float64("price", price))
			on = true
			explanation = "always-on price"
		}
	}

	if s.InUseLimit >= 0 && tel.PowerW >= s.InUseLimit {
		log.Ctx(ctx).DebugContext(ctx, "power draw is over the in-use limit",
			slog.Float64("powerW", tel.PowerW), slog.Float64("inUseLimit", s.InUseLimit))
		on = true
		explanation = "load in use"
	}

	if lowTempOverride {
		log.Ctx(ctx).DebugContext(ctx, "forcing on because of low internal temperature")
		on = true
		explanation = "low internal temperature"
	}

	if s.InvertSwitch {
		on = !on
		explanation += " (inverted)"
		log.Ctx(ctx).DebugContext(ctx, "inverting wanted switch state", slog.Bool("on", on))
	}

	return Decision{On: on, Explanation: explanation}
}
