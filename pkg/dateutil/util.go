package dateutil

import "time"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// NextWeekdayHour returns the next occurrence of the given weekday at the
// given hour (UTC) strictly after t.
func NextWeekdayHour(t time.Time, weekday time.Weekday, hour int) time.Time {
	t = t.UTC()
	target := time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC)
	for target.Weekday() != weekday || !target.After(t) {
		target = target.AddDate(0, 0, 1)
	}

	return target
}
