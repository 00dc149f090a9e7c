// Package stats derives ride counters, chart series and streaks from a user's
// ride history. Every function is pure: callers pass the rides and the
// reference instant, nothing here reads the clock or touches storage.
//
// Ride dates must already be valid instants; parsing belongs to whoever loads
// the rides.
package stats

import (
	"sort"
	"time"
)

// RideRecord is the part of a ride the statistics depend on.
type RideRecord struct {
	RideDate time.Time `json:"ride_date"`
	Verified bool      `json:"verified"`
	Points   int       `json:"points"`
}

type Totals struct {
	TotalRides  int `json:"total_rides"`
	TotalPoints int `json:"total_points"`
}

type PeriodCounts struct {
	WeeklyRideCount  int `json:"weekly_ride_count"`
	MonthlyRideCount int `json:"monthly_ride_count"`
}

type Unit string

const (
	UnitDay   Unit = "day"
	UnitMonth Unit = "month"
)

const (
	DefaultDayBuckets   = 7
	DefaultMonthBuckets = 6
)

type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// TotalsPolicy decides which rides a snapshot counts.
type TotalsPolicy string

const (
	// CountVerified counts only rides a reviewer approved.
	CountVerified TotalsPolicy = "verified"
	// CountAll counts every submitted ride, pending or not.
	CountAll TotalsPolicy = "all"
)

// ParseTotalsPolicy returns false for anything but "verified" or "all".
func ParseTotalsPolicy(s string) (TotalsPolicy, bool) {
	switch TotalsPolicy(s) {
	case CountVerified:
		return CountVerified, true
	case CountAll:
		return CountAll, true
	default:
		return "", false
	}
}

// Filter returns the rides the policy counts. The input is never modified.
func (p TotalsPolicy) Filter(rides []RideRecord) []RideRecord {
	if p == CountAll {
		return rides
	}
	counted := make([]RideRecord, 0, len(rides))
	for _, r := range rides {
		if r.Verified {
			counted = append(counted, r)
		}
	}
	return counted
}

type UserStatsSnapshot struct {
	TotalRides        int       `json:"total_rides"`
	TotalPoints       int       `json:"total_points"`
	UnverifiedRides   int       `json:"unverified_rides"`
	WeeklyRideCount   int       `json:"weekly_ride_count"`
	MonthlyRideCount  int       `json:"monthly_ride_count"`
	CurrentStreakDays int       `json:"current_streak_days"`
	LongestStreakDays int       `json:"longest_streak_days"`
	RodeToday         bool      `json:"rode_today"`
	WeeklySeries      []Bucket  `json:"weekly_series"`
	MonthlySeries     []Bucket  `json:"monthly_series"`
	Policy            string    `json:"policy"`
	ComputedAt        time.Time `json:"computed_at"`
}

type Options struct {
	Calendar Calendar
	Policy   TotalsPolicy
	Labels   Labels
}

// DefaultOptions counts verified rides on a Sunday-first UTC calendar with
// Polish labels.
func DefaultOptions() Options {
	return Options{
		Calendar: DefaultCalendar(),
		Policy:   CountVerified,
		Labels:   PolishLabels,
	}
}

func ComputeTotals(rides []RideRecord) Totals {
	t := Totals{TotalRides: len(rides)}
	for _, r := range rides {
		t.TotalPoints += r.Points
	}
	return t
}

// ComputePeriodCounts counts rides dated between the start of the current
// week (or month) and today, both ends inclusive.
func ComputePeriodCounts(rides []RideRecord, now time.Time, cal Calendar) PeriodCounts {
	today := cal.Day(now)
	weekStart := cal.StartOfWeek(now)
	monthStart := cal.StartOfMonth(now)

	var pc PeriodCounts
	for _, r := range rides {
		day := cal.Day(r.RideDate)
		if day.After(today) {
			continue
		}
		if !day.Before(weekStart) {
			pc.WeeklyRideCount++
		}
		if !day.Before(monthStart) {
			pc.MonthlyRideCount++
		}
	}
	return pc
}

// ComputeSeries returns bucketCount consecutive buckets ending with the one
// containing now, oldest first. Each bucket is the half-open interval
// [start, next start). A non-positive bucketCount selects the unit's default.
func ComputeSeries(rides []RideRecord, now time.Time, unit Unit, bucketCount int, cal Calendar, labels Labels) []Bucket {
	var (
		current time.Time
		step    func(t time.Time, n int) time.Time
		label   func(t time.Time) string
	)

	switch unit {
	case UnitDay:
		if bucketCount <= 0 {
			bucketCount = DefaultDayBuckets
		}
		current = cal.Day(now)
		step = cal.AddDays
		label = func(t time.Time) string { return labels.Days[t.Weekday()] }
	case UnitMonth:
		if bucketCount <= 0 {
			bucketCount = DefaultMonthBuckets
		}
		current = cal.StartOfMonth(now)
		step = cal.AddMonths
		label = func(t time.Time) string { return labels.Months[t.Month()-1] }
	default:
		return []Bucket{}
	}

	series := make([]Bucket, bucketCount)
	for i := range series {
		series[i].Start = step(current, i-(bucketCount-1))
		series[i].Label = label(series[i].Start)
	}
	end := step(current, 1)

	for _, r := range rides {
		at := r.RideDate.In(cal.location())
		if at.Before(series[0].Start) || !at.Before(end) {
			continue
		}
		// Buckets are few; a backward scan finds the owner fastest for recent rides.
		for i := len(series) - 1; i >= 0; i-- {
			if !at.Before(series[i].Start) {
				series[i].Count++
				break
			}
		}
	}
	return series
}

// distinctDays returns each calendar day carrying at least one ride, newest first.
func distinctDays(rides []RideRecord, cal Calendar) []time.Time {
	seen := make(map[int64]struct{}, len(rides))
	days := make([]time.Time, 0, len(rides))
	for _, r := range rides {
		day := cal.Day(r.RideDate)
		key := day.Unix()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

// ComputeStreak counts consecutive calendar days with at least one ride,
// walking back from the most recent ride day. The streak is broken (0) unless
// that day is today or yesterday. Several rides on one day count once.
func ComputeStreak(rides []RideRecord, now time.Time, cal Calendar) int {
	days := distinctDays(rides, cal)
	if len(days) == 0 {
		return 0
	}

	today := cal.Day(now)
	yesterday := cal.AddDays(today, -1)
	latest := days[0]
	if !latest.Equal(today) && !latest.Equal(yesterday) {
		return 0
	}

	streak := 1
	cursor := cal.AddDays(latest, -1)
	for _, day := range days[1:] {
		if !day.Equal(cursor) {
			break
		}
		streak++
		cursor = cal.AddDays(cursor, -1)
	}
	return streak
}

// ComputeLongestStreak is the longest run of consecutive ride days ever.
func ComputeLongestStreak(rides []RideRecord, cal Calendar) int {
	days := distinctDays(rides, cal)
	if len(days) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(cal.AddDays(days[i-1], -1)) {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 1
	}
	return longest
}

// Snapshot computes every derived figure for one user. The policy filter is
// applied once up front so all counters describe the same set of rides.
func Snapshot(rides []RideRecord, now time.Time, opts Options) UserStatsSnapshot {
	if opts.Policy == "" {
		opts.Policy = CountVerified
	}
	if opts.Labels == (Labels{}) {
		opts.Labels = PolishLabels
	}
	counted := opts.Policy.Filter(rides)
	totals := ComputeTotals(counted)
	periods := ComputePeriodCounts(counted, now, opts.Calendar)

	verified := 0
	rodeToday := false
	today := opts.Calendar.Day(now)
	for _, r := range rides {
		if r.Verified {
			verified++
		}
	}
	for _, r := range counted {
		if opts.Calendar.Day(r.RideDate).Equal(today) {
			rodeToday = true
			break
		}
	}

	return UserStatsSnapshot{
		TotalRides:        totals.TotalRides,
		TotalPoints:       totals.TotalPoints,
		UnverifiedRides:   len(rides) - verified,
		WeeklyRideCount:   periods.WeeklyRideCount,
		MonthlyRideCount:  periods.MonthlyRideCount,
		CurrentStreakDays: ComputeStreak(counted, now, opts.Calendar),
		LongestStreakDays: ComputeLongestStreak(counted, opts.Calendar),
		RodeToday:         rodeToday,
		WeeklySeries:      ComputeSeries(counted, now, UnitDay, DefaultDayBuckets, opts.Calendar, opts.Labels),
		MonthlySeries:     ComputeSeries(counted, now, UnitMonth, DefaultMonthBuckets, opts.Calendar, opts.Labels),
		Policy:            string(opts.Policy),
		ComputedAt:        now,
	}
}
