package types

import (
	"fmt"
	"strconv"
)

// SystemStatus is the subset of the device's Sys.GetStatus response we need.
type SystemStatus struct {
	UnixTime int64 `json:"unixtime"`
	Uptime   int64 `json:"uptime"`
}

// EnergySample mirrors the per-switch accumulated energy counter.
type EnergySample struct {
	Total    float64 `json:"total"`
	MinuteTS int64   `json:"minute_ts"`
}

// Temperature is the device-internal temperature reading.
type Temperature struct {
	TC float64 `json:"tC"`
	TF float64 `json:"tF"`
}

// SwitchStatus mirrors the device's Switch.GetStatus response.
type SwitchStatus struct {
	ID          int          `json:"id"`
	Output      bool         `json:"output"`
	APower      float64      `json:"apower"`
	AEnergy     EnergySample `json:"aenergy"`
	Temperature Temperature  `json:"temperature"`
}

// Telemetry is the per-cycle snapshot derived from a SwitchStatus.
// InternalTempC is rounded to the nearest degree.
type Telemetry struct {
	SwitchOn      bool    `json:"switchOn"`
	PowerW        float64 `json:"powerW"`
	InternalTempC int     `json:"internalTempC"`
	SampleEpoch   int64   `json:"sampleEpoch"`
}

// HourWindow is an inclusive [From,To] range of hours (0-23).
type HourWindow struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Contains reports whether hour falls inside the window, both ends inclusive.
func (w HourWindow) Contains(hour int) bool {
	return hour >= w.From && hour <= w.To
}

// Valid reports whether both ends are hours and the window is not reversed.
func (w HourWindow) Valid() error {
	if w.From < 0 || w.From > 23 || w.To < 0 || w.To > 23 {
		return fmt.Errorf("hour window bounds must be 0-23: [%d,%d]", w.From, w.To)
	}
	if w.From > w.To {
		return fmt.Errorf("hour window is reversed: [%d,%d]", w.From, w.To)
	}
	return nil
}

// PriceRecord is one hourly entry of the day-ahead price feed.
type PriceRecord struct {
	SEKPerKWH float64 `json:"SEK_per_kWh"`
	EURPerKWH float64 `json:"EUR_per_kWh"`
	EXR       float64 `json:"EXR"`
	TimeStart string  `json:"time_start"`
	TimeEnd   string  `json:"time_end"`
}

// Hour extracts the local hour-of-day from the record's start timestamp.
// The feed uses ISO timestamps so the hour lives at a fixed offset.
func (r PriceRecord) Hour() (int, error) {
	if len(r.TimeStart) < 13 {
		return 0, fmt.Errorf("time_start too short: %q", r.TimeStart)
	}
	h, err := strconv.Atoi(r.TimeStart[11:13])
	if err != nil {
		return 0, fmt.Errorf("failed to parse hour from %q: %w", r.TimeStart, err)
	}
	if h < 0 || h > 23 {
		return 0, fmt.Errorf("hour out of range in %q", r.TimeStart)
	}
	return h, nil
}
