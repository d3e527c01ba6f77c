// Package clock derives wall-clock calendar values from raw epoch seconds.
//
// The controlled device exposes only a Unix timestamp, so the conversion is
// done with plain arithmetic: a nominal 365-day year corrected by accumulated
// leap days, fixed month lengths, and an approximate last-Sunday-of-March/
// October daylight-saving rule.
package clock

import (
	"fmt"
	"strconv"
)

const (
	secondsInMinute = 60
	secondsInHour   = 60 * secondsInMinute
	secondsInDay    = 24 * secondsInHour
)

var daysInMonth = [12]int64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

var dayOfWeekNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// LocalDate is an immutable snapshot of wall-clock time for one instant.
// Month and Day are 1-based. DayOfWeek is 0 for Sunday.
type LocalDate struct {
	Epoch         int64
	Year          int
	Month         int
	Day           int
	Hour          int
	Minute        int
	Second        int
	DayOfWeek     int
	TZOffsetHours int
}

func isLeapYear(year int) bool {
	return year%400 == 0 || (year%100 != 0 && year%4 == 0)
}

// FromEpoch converts epoch seconds plus a whole-hour timezone offset into a
// LocalDate. When daylightSaving is set and the date falls between the last
// Sunday of March and the last Sunday of October (approximated from the
// day-of-week and the day's proximity to the 31st) the conversion is redone
// once with the offset bumped by one hour.
func FromEpoch(epochSeconds int64, tzOffsetHours int, daylightSaving bool) LocalDate {
	epochTime := epochSeconds + int64(tzOffsetHours)*secondsInHour
	dayOfWeek := int((epochTime/secondsInDay + 4) % 7)

	var secondsInYear int64
	for i := 0; i < 12; i++ {
		secondsInYear += daysInMonth[i] * secondsInDay
	}

	year := int(epochTime/secondsInYear) + 1970
	var leapSeconds int64
	for i := 1970; i < year; i++ {
		if isLeapYear(i) {
			leapSeconds += secondsInDay
		}
	}

	remainder := epochTime%secondsInYear - leapSeconds
	if remainder < 0 {
		year--
		remainder += secondsInYear
		if isLeapYear(year) {
			remainder += secondsInDay
		}
	}

	leap := isLeapYear(year)
	month := 0
	for {
		monthSeconds := daysInMonth[month] * secondsInDay
		if month == 1 && leap {
			monthSeconds += secondsInDay
		}
		if remainder < monthSeconds {
			break
		}
		remainder -= monthSeconds
		month++
	}

	day := int(remainder / secondsInDay)
	remainder %= secondsInDay

	// month and day are still 0-based here; months 2..9 are March..October.
	if daylightSaving && month >= 2 && month <= 9 &&
		!(month == 2 && dayOfWeek+31-day > 7) &&
		!(month == 9 && dayOfWeek+31-day < 7) {
		return FromEpoch(epochSeconds, tzOffsetHours+1, false)
	}

	hour := int(remainder / secondsInHour)
	remainder %= secondsInHour

	return LocalDate{
		Epoch:         epochSeconds,
		Year:          year,
		Month:         month + 1,
		Day:           day + 1,
		Hour:          hour,
		Minute:        int(remainder / secondsInMinute),
		Second:        int(remainder % secondsInMinute),
		DayOfWeek:     dayOfWeek,
		TZOffsetHours: tzOffsetHours,
	}
}

// SameDay reports whether two dates fall on the same calendar day.
func (d LocalDate) SameDay(o LocalDate) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// DayOfWeekName returns the English weekday name.
func (d LocalDate) DayOfWeekName() string {
	return dayOfWeekNames[d.DayOfWeek]
}

// YearString returns the 4-digit year used in the price API URL.
func (d LocalDate) YearString() string {
	return strconv.Itoa(d.Year)
}

// MonthString returns the zero-padded 2-digit month used in the price API URL.
func (d LocalDate) MonthString() string {
	return fmt.Sprintf("%02d", d.Month)
}

// DayString returns the zero-padded 2-digit day used in the price API URL.
func (d LocalDate) DayString() string {
	return fmt.Sprintf("%02d", d.Day)
}

// DateString returns the calendar day as YYYY-MM-DD.
func (d LocalDate) DateString() string {
	return d.YearString() + "-" + d.MonthString() + "-" + d.DayString()
}

// padClock pads hour/minute/second fields. Values 0-8 get a leading zero and
// 9 does not, matching the deployed controller's formatting exactly.
func padClock(v int) string {
	if v+1 < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// TZString returns the numeric UTC-offset suffix, "Z" for offset 0.
func (d LocalDate) TZString() string {
	tz := d.TZOffsetHours
	switch {
	case tz == 0:
		return "Z"
	case tz > 9:
		return "+" + strconv.Itoa(tz) + "00"
	case tz > 0:
		return "+0" + strconv.Itoa(tz) + "00"
	case tz < -9:
		return strconv.Itoa(tz) + "00"
	default:
		return "-0" + strconv.Itoa(-tz) + "00"
	}
}

// String returns the ISO-like date-time representation with the offset suffix.
func (d LocalDate) String() string {
	return d.YearString() + "-" + d.MonthString() + "-" + d.DayString() +
		"T" + padClock(d.Hour) + ":" + padClock(d.Minute) + ":" + padClock(d.Second) +
		d.TZString()
}
