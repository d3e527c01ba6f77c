package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/sanity-io/litter"

	"github.com/spotswitch/spotswitch/pkg/clock"
	"github.com/spotswitch/spotswitch/pkg/log"
	"github.com/spotswitch/spotswitch/pkg/prices"
	"github.com/spotswitch/spotswitch/pkg/shelly"
	"github.com/spotswitch/spotswitch/pkg/types"
)

// Agent runs the control cycle: it samples the device, keeps the price cache
// fresh, asks the Controller for a verdict and applies it to the switches.
type Agent struct {
	device   shelly.Device
	source   prices.Source
	cache    *prices.Cache
	ctrl     *Controller
	latch    *TempLatch
	settings Settings
}

// Configured returns an Agent configured via lflag.
func Configured(device shelly.Device, source prices.Source) *Agent {
	a := &Agent{
		device: device,
		source: source,
		cache:  prices.NewCache(),
		ctrl:   NewController(),
		latch:  NewTempLatch(),
	}

	tz := lflag.Int("timezone", 1, "Timezone offset from UTC in whole hours, for example 1 for CET or -6 for CST")
	dst := lflag.Bool("daylight-saving", true, "Add one hour between the last Sunday of March and the last Sunday of October")
	interval := lflag.Duration("update-interval", 15*time.Minute, "Control cycle interval, runs are aligned to the wall clock")
	switchID := lflag.Int("switch-id", 0, "ID of the first switch to control")
	switches := lflag.Int("switches", 1, "Number of consecutive switch IDs to control")
	alwaysOn := 0.05
	lflag.JSON(&alwaysOn, "always-on-max-price", alwaysOn, "Price at or under which the switches stay on regardless of the window check")
	onOffLimit := 1.1
	lflag.JSON(&onOffLimit, "on-off-limit", onOffLimit, "Multiplier over the daily average price above which the switches turn off")
	checkNext := lflag.Int("check-next-hours", 0, "Additional hours ahead that must also be at or under the limit to stay on")
	stopAtEnd := lflag.Bool("stop-at-data-end", true, "Stop the lookahead at the end of the price data instead of wrapping around")
	invert := lflag.Bool("invert-switch", false, "Invert the switch action, on becomes off and off becomes on")
	inUse := -1.0
	lflag.JSON(&inUse, "in-use-limit", inUse, "Watts at or over which the load counts as running and is kept on, negative disables")
	tomorrowAfter := lflag.Int("tomorrow-prices-after", 15, "Local hour after which tomorrow's prices are fetched")
	lowTempLimit := lflag.Int("low-int-temp-limit", 30, "Internal temperature in Celsius at or under which the switches are forced on")
	lowTempHyst := lflag.Int("low-int-temp-hyst", 20, "Degrees above the limit the temperature must rise before the override releases")
	simulate := lflag.Bool("simulate", false, "Log what would happen instead of changing switch outputs")
	switchControl := lflag.Bool("switch-control", true, "Control the switch outputs based on price")
	colorControl := lflag.Bool("color-mode", false, "Drive the plug LED color from the current price level")

	windows := []types.HourWindow{{From: 0, To: 6}}
	lflag.JSON(&windows, "normally-on-hours", windows, `JSON list of inclusive {"from","to"} hour windows during which the switches stay on`)
	colors := []string{"0,100,0", "100,100,0", "100,0,100", "100,0,0"}
	lflag.JSON(&colors, "colors", colors, `JSON list of "r,g,b" percent triples ordered cheapest to most expensive`)

	lflag.Do(func() {
		a.settings = Settings{
			TimezoneOffsetHours: *tz,
			DaylightSaving:      *dst,
			IntervalSeconds:     int64((*interval).Seconds()),
			SwitchID:            *switchID,
			Switches:            *switches,
			AlwaysOnMaxPrice:    alwaysOn,
			OnOffLimit:          onOffLimit,
			CheckNextXHours:     *checkNext,
			StopAtDataEnd:       *stopAtEnd,
			InvertSwitch:        *invert,
			InUseLimit:          inUse,
			NormallyOnHours:     windows,
			TomorrowPricesAfter: *tomorrowAfter,
			LowIntTempLimit:     *lowTempLimit,
			LowIntTempHyst:      *lowTempHyst,
			Simulate:            *simulate,
			SwitchControl:       *switchControl,
			ColorControl:        *colorControl,
			Colors:              colors,
		}
		if a.settings.Simulate {
			a.device = shelly.NewRecorder(device)
		}
	})
	return a
}

// NewAgent creates an Agent with explicit settings, mostly for tests.
func NewAgent(device shelly.Device, source prices.Source, s Settings) *Agent {
	if s.Simulate {
		device = shelly.NewRecorder(device)
	}
	return &Agent{
		device:   device,
		source:   source,
		cache:    prices.NewCache(),
		ctrl:     NewController(),
		latch:    NewTempLatch(),
		settings: s,
	}
}

// Validate ensures the agent is ready to run.
func (a *Agent) Validate() error {
	if a.device == nil {
		return errors.New("no device configured")
	}
	if a.source == nil {
		return errors.New("no price source configured")
	}
	return a.settings.Validate()
}

// Run executes control cycles until ctx is canceled. Cycle errors are logged
// and the loop keeps going with the fallback delay of one interval.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Validate(); err != nil {
		return err
	}
	for {
		delay, err := a.RunCycle(ctx)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "cycle failed", slog.Any("error", err))
			if delay <= 0 {
				delay = a.settings.IntervalSeconds
			}
		}
		timer := time.NewTimer(time.Duration(delay) * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RunCycle runs one control cycle and returns the delay in seconds until the
// next one. The delay is valid even on error when enough of the cycle ran to
// read the device clock.
func (a *Agent) RunCycle(ctx context.Context) (int64, error) {
	s := a.settings

	st, err := a.device.SwitchStatus(ctx, s.SwitchID)
	if err != nil {
		return 0, fmt.Errorf("failed to get switch status: %w", err)
	}

	// When the in-use override is enabled the cycle keys off the energy
	// sample so the timestamp and the power reading come from the same
	// measurement. Otherwise the system clock is authoritative.
	var epoch int64
	var power float64
	if s.InUseLimit >= 0 {
		epoch = st.AEnergy.MinuteTS
		power = st.APower
	} else {
		sys, err := a.device.SystemStatus(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to get system status: %w", err)
		}
		epoch = sys.UnixTime
	}

	date := clock.FromEpoch(epoch, s.TimezoneOffsetHours, s.DaylightSaving)
	delay := clock.NextRunDelay(date, s.IntervalSeconds, s.TimezoneOffsetHours, s.DaylightSaving)
	log.Ctx(ctx).InfoContext(ctx, "cycle started",
		slog.String("localTime", date.String()),
		slog.Int64("nextRunInSeconds", delay))

	tel := types.Telemetry{
		SwitchOn:      st.Output,
		PowerW:        power,
		InternalTempC: int(math.Round(st.Temperature.TC)),
		SampleEpoch:   epoch,
	}
	lowTemp := a.latch.Observe(ctx, tel.InternalTempC, s.LowIntTempLimit, s.LowIntTempHyst)

	if err := a.refreshPrices(ctx, date); err != nil {
		return delay, err
	}
	if !a.cache.HasData() {
		log.Ctx(ctx).WarnContext(ctx, "no price data available, skipping decision")
		return delay, nil
	}

	a.logPrices(ctx, date)
	a.updateColor(ctx, date)

	if !s.SwitchControl {
		return delay, nil
	}

	if s.Simulate {
		agg, _ := a.cache.Aggregates()
		log.Ctx(ctx).DebugContext(ctx, "cycle state", slog.String("dump", litter.Sdump(struct {
			Date            clock.LocalDate
			Telemetry       types.Telemetry
			Aggregates      prices.Aggregates
			LowTempOverride bool
		}{date, tel, agg, lowTemp})))
	}

	decision := a.ctrl.Decide(ctx, date, a.cache, tel, lowTemp, s)
	if decision.On == tel.SwitchOn {
		log.Ctx(ctx).InfoContext(ctx, "switch already in wanted state", slog.Bool("on", tel.SwitchOn))
		return delay, nil
	}

	for i := 0; i < s.Switches; i++ {
		id := s.SwitchID + i
		log.Ctx(ctx).InfoContext(ctx, "changing switch",
			slog.Int("id", id),
			slog.Bool("on", decision.On),
			slog.String("reason", decision.Explanation))
		if err := a.device.SetSwitch(ctx, id, decision.On); err != nil {
			// keep going so one stuck relay does not block the rest,
			// the next cycle retries whatever still disagrees
			log.Ctx(ctx).ErrorContext(ctx, "failed to set switch",
				slog.Int("id", id), slog.Any("error", err))
		}
	}
	return delay, nil
}

// refreshPrices brings the cache up to date for the given local time. HTTP
// status failures are absorbed into the cache's backoff state, transport
// failures are returned so the cycle aborts and tries again next interval.
func (a *Agent) refreshPrices(ctx context.Context, date clock.LocalDate) error {
	s := a.settings

	if a.cache.NeedsFetchToday(date) {
		records, err := a.source.FetchDay(ctx, date)
		if err != nil {
			var se *prices.StatusError
			if errors.As(err, &se) {
				log.Ctx(ctx).ErrorContext(ctx, "failed to fetch today's prices",
					slog.Int("status", se.Code))
				a.cache.Fail(ctx, 0, date)
				return nil
			}
			return fmt.Errorf("failed to fetch today's prices: %w", err)
		}
		a.cache.Apply(ctx, 0, date, records)
	}

	if a.cache.NeedsFetchTomorrow(date, s.TomorrowPricesAfter) {
		tomorrow := clock.FromEpoch(date.Epoch+prices.TomorrowOffset*3600,
			s.TimezoneOffsetHours, s.DaylightSaving)
		records, err := a.source.FetchDay(ctx, tomorrow)
		if err != nil {
			var se *prices.StatusError
			if errors.As(err, &se) {
				log.Ctx(ctx).WarnContext(ctx, "failed to fetch tomorrow's prices",
					slog.Int("status", se.Code))
				a.cache.Fail(ctx, prices.TomorrowOffset, date)
				return nil
			}
			return fmt.Errorf("failed to fetch tomorrow's prices: %w", err)
		}
		a.cache.Apply(ctx, prices.TomorrowOffset, date, records)
	}
	return nil
}

func (a *Agent) logPrices(ctx context.Context, date clock.LocalDate) {
	agg, ok := a.cache.Aggregates()
	if !ok {
		return
	}
	price, _ := a.cache.PriceAt(date.Hour)
	log.Ctx(ctx).InfoContext(ctx, "prices",
		slog.Float64("current", price),
		slog.Float64("min", agg.Min),
		slog.Float64("max", agg.Max),
		slog.Float64("avg", agg.Avg),
		slog.Float64("limit", agg.Avg*a.settings.OnOffLimit))
}

func (a *Agent) updateColor(ctx context.Context, date clock.LocalDate) {
	if !a.settings.ColorControl {
		return
	}
	agg, ok := a.cache.Aggregates()
	if !ok {
		return
	}
	price, ok := a.cache.PriceAt(date.Hour)
	if !ok {
		return
	}
	color := ColorForPrice(price, agg, a.settings.AlwaysOnMaxPrice, a.settings.Colors)
	log.Ctx(ctx).InfoContext(ctx, "setting indicator color", slog.String("rgb", color))
	if err := a.device.SetLEDColor(ctx, color); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to set indicator color", slog.Any("error", err))
	}
}
