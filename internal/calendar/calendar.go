package calendar

import (
	"time"

	"bikeToWorkAPI/internal/stats"
)

type CalendarDay struct {
	Date      time.Time `json:"date" db:"date"`
	RideCount int       `json:"ride_count" db:"ride_count"`
	Rode      bool      `json:"rode"`
	IsToday   bool      `json:"is_today"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}

// Build lays out every day of the month with the number of rides on it.
func Build(rides []stats.RideRecord, year int, month time.Month, now time.Time, cal stats.Calendar) *CalendarResponse {
	counts := make(map[int]int)
	for _, r := range rides {
		day := cal.Day(r.RideDate)
		if day.Year() == year && day.Month() == month {
			counts[day.Day()]++
		}
	}

	today := cal.Day(now)
	n := stats.DaysInMonth(year, month)
	days := make([]*CalendarDay, 0, n)
	for d := 1; d <= n; d++ {
		date := cal.Date(year, month, d)
		days = append(days, &CalendarDay{
			Date:      date,
			RideCount: counts[d],
			Rode:      counts[d] > 0,
			IsToday:   date.Equal(today),
		})
	}

	return &CalendarResponse{Year: year, Month: int(month), Days: days}
}
