package stats

import "time"

// Calendar fixes the conventions every date-bucketing rule depends on: the
// location that defines midnight and the weekday a week starts on.
type Calendar struct {
	Location  *time.Location
	WeekStart time.Weekday
}

// DefaultCalendar starts weeks on Sunday (getDay() == 0) in UTC.
func DefaultCalendar() Calendar {
	return Calendar{Location: time.UTC, WeekStart: time.Sunday}
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Day truncates t to midnight of its calendar day in the calendar's location.
func (c Calendar) Day(t time.Time) time.Time {
	t = t.In(c.location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.location())
}

// Date builds midnight of the given civil date in the calendar's location.
func (c Calendar) Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, c.location())
}

// AddDays moves a midnight value by n calendar days, staying on midnight
// across DST changes.
func (c Calendar) AddDays(day time.Time, n int) time.Time {
	day = day.In(c.location())
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, c.location())
}

// StartOfWeek is midnight of the most recent WeekStart on or before now.
func (c Calendar) StartOfWeek(now time.Time) time.Time {
	today := c.Day(now)
	offset := (int(today.Weekday()) - int(c.WeekStart) + 7) % 7
	return c.AddDays(today, -offset)
}

// StartOfMonth is midnight of the first day of now's month.
func (c Calendar) StartOfMonth(now time.Time) time.Time {
	today := c.Day(now)
	return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, c.location())
}

// AddMonths moves the first day of a month by n months.
func (c Calendar) AddMonths(monthStart time.Time, n int) time.Time {
	monthStart = monthStart.In(c.location())
	return time.Date(monthStart.Year(), monthStart.Month()+time.Month(n), 1, 0, 0, 0, 0, c.location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
