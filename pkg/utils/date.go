package utils

import (
	"time"
)

const DateLayout = "2006-01-02"

// AnchorHour is the time of day every observation is pinned to, so two observations
// for the same calendar day always compare equal.
const AnchorHour = 16

func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse(DateLayout, dateStr)
}

func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// StartOfDay truncates to midnight UTC of the date's UTC calendar day.
func StartOfDay(date time.Time) time.Time {
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last representable instant of the date's UTC calendar day.
func EndOfDay(date time.Time) time.Time {
	return StartOfDay(date).Add(24*time.Hour - time.Nanosecond)
}

// Anchor pins a date to AnchorHour UTC on its calendar day.
func Anchor(date time.Time) time.Time {
	return StartOfDay(date).Add(AnchorHour * time.Hour)
}

// DaysBack returns the window [today-days, today] as calendar days.
func DaysBack(today time.Time, days int) (time.Time, time.Time) {
	to := StartOfDay(today)
	return to.AddDate(0, 0, -days), to
}
