package clock

// NextRunDelay returns the number of seconds until the next cycle boundary
// aligned to intervalSeconds within the hour. If the computed delay is less
// than a third of the interval and the wake-up would land in the same clock
// hour, one full interval is added so two runs never cluster around an hour
// boundary.
func NextRunDelay(now LocalDate, intervalSeconds int64, tzOffsetHours int, daylightSaving bool) int64 {
	delay := intervalSeconds - ((int64(now.Minute)*secondsInMinute + int64(now.Second)) % intervalSeconds)
	next := FromEpoch(now.Epoch+delay, tzOffsetHours, daylightSaving)
	if delay < intervalSeconds/3 && now.Hour == next.Hour {
		delay += intervalSeconds
	}
	return delay
}
