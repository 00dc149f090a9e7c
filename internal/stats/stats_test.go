package stats

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday; with Sunday-first weeks the week starts on 2026-10-11.
var refNow = time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ride(t time.Time) RideRecord {
	return RideRecord{RideDate: t, Verified: true, Points: 10}
}

func TestComputeTotals(t *testing.T) {
	assert.Equal(t, Totals{}, ComputeTotals(nil))
	assert.Equal(t, Totals{}, ComputeTotals([]RideRecord{}))

	rides := []RideRecord{
		{RideDate: day(2026, 10, 1), Verified: true, Points: 10},
		{RideDate: day(2026, 10, 2), Verified: false, Points: 0},
		{RideDate: day(2026, 10, 3), Verified: true, Points: 10},
	}
	totals := ComputeTotals(rides)
	assert.Equal(t, 3, totals.TotalRides)
	assert.Equal(t, 20, totals.TotalPoints)
}

func TestComputePeriodCounts_WeekStartIsInclusive(t *testing.T) {
	cal := DefaultCalendar()
	weekStart := cal.StartOfWeek(refNow)
	require.Equal(t, day(2026, 10, 11), weekStart)

	onBoundary := ComputePeriodCounts([]RideRecord{ride(weekStart)}, refNow, cal)
	assert.Equal(t, 1, onBoundary.WeeklyRideCount)

	justBefore := ComputePeriodCounts([]RideRecord{ride(weekStart.Add(-time.Millisecond))}, refNow, cal)
	assert.Equal(t, 0, justBefore.WeeklyRideCount)
	assert.Equal(t, 1, justBefore.MonthlyRideCount)
}

func TestComputePeriodCounts_MonthBoundary(t *testing.T) {
	cal := DefaultCalendar()
	rides := []RideRecord{
		ride(day(2026, 9, 30)),
		ride(day(2026, 10, 1)),
		ride(day(2026, 10, 14)),
	}
	pc := ComputePeriodCounts(rides, refNow, cal)
	assert.Equal(t, 2, pc.MonthlyRideCount)
	assert.Equal(t, 1, pc.WeeklyRideCount)
}

func TestComputePeriodCounts_IgnoresFutureRides(t *testing.T) {
	pc := ComputePeriodCounts([]RideRecord{ride(day(2026, 10, 15))}, refNow, DefaultCalendar())
	assert.Equal(t, PeriodCounts{}, pc)
}

func TestComputePeriodCounts_MondayWeekStart(t *testing.T) {
	cal := Calendar{Location: time.UTC, WeekStart: time.Monday}
	require.Equal(t, day(2026, 10, 12), cal.StartOfWeek(refNow))

	rides := []RideRecord{ride(day(2026, 10, 11)), ride(day(2026, 10, 12))}
	pc := ComputePeriodCounts(rides, refNow, cal)
	assert.Equal(t, 1, pc.WeeklyRideCount)
}

func TestStartOfWeek_OnWeekStartDay(t *testing.T) {
	sunday := time.Date(2026, 10, 11, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, day(2026, 10, 11), DefaultCalendar().StartOfWeek(sunday))
}

func TestComputeSeries_Days(t *testing.T) {
	cal := DefaultCalendar()
	rides := []RideRecord{
		ride(day(2026, 10, 14)),
		ride(time.Date(2026, 10, 14, 7, 30, 0, 0, time.UTC)),
		ride(day(2026, 10, 12)),
		ride(day(2026, 10, 8)),
		ride(day(2026, 10, 7)),
	}

	series := ComputeSeries(rides, refNow, UnitDay, 7, cal, PolishLabels)
	require.Len(t, series, 7)

	counts := make([]int, len(series))
	for i, b := range series {
		counts[i] = b.Count
	}
	assert.Equal(t, []int{1, 0, 0, 0, 1, 0, 2}, counts)
	assert.Equal(t, day(2026, 10, 8), series[0].Start)
	assert.Equal(t, "CZ", series[0].Label)
	assert.Equal(t, "ŚR", series[6].Label)

	sum := 0
	for _, b := range series {
		sum += b.Count
	}
	assert.LessOrEqual(t, sum, len(rides))
}

func TestComputeSeries_SumEqualsTotalWhenAllInsideSpan(t *testing.T) {
	rides := []RideRecord{ride(day(2026, 10, 9)), ride(day(2026, 10, 13)), ride(day(2026, 10, 14))}
	series := ComputeSeries(rides, refNow, UnitDay, 0, DefaultCalendar(), PolishLabels)
	require.Len(t, series, DefaultDayBuckets)

	sum := 0
	for _, b := range series {
		sum += b.Count
	}
	assert.Equal(t, len(rides), sum)
}

func TestComputeSeries_Months(t *testing.T) {
	rides := []RideRecord{
		ride(day(2026, 4, 30)),
		ride(day(2026, 5, 1)),
		ride(day(2026, 8, 15)),
		ride(day(2026, 10, 14)),
	}

	series := ComputeSeries(rides, refNow, UnitMonth, 6, DefaultCalendar(), EnglishLabels)
	require.Len(t, series, 6)

	labels := make([]string, len(series))
	counts := make([]int, len(series))
	for i, b := range series {
		labels[i] = b.Label
		counts[i] = b.Count
	}
	assert.Equal(t, []string{"MAY", "JUN", "JUL", "AUG", "SEP", "OCT"}, labels)
	assert.Equal(t, []int{1, 0, 0, 1, 0, 1}, counts)
}

func TestComputeSeries_MonthsAcrossYearBoundary(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	series := ComputeSeries([]RideRecord{ride(day(2025, 9, 3))}, now, UnitMonth, 0, DefaultCalendar(), PolishLabels)
	require.Len(t, series, DefaultMonthBuckets)
	assert.Equal(t, day(2025, 9, 1), series[0].Start)
	assert.Equal(t, "WRZ", series[0].Label)
	assert.Equal(t, 1, series[0].Count)
	assert.Equal(t, "LUT", series[5].Label)
}

func TestComputeSeries_UnknownUnit(t *testing.T) {
	assert.Empty(t, ComputeSeries([]RideRecord{ride(refNow)}, refNow, Unit("year"), 3, DefaultCalendar(), PolishLabels))
}

func TestComputeStreak(t *testing.T) {
	cal := DefaultCalendar()
	today := day(2026, 10, 14)

	tests := []struct {
		name  string
		rides []RideRecord
		want  int
	}{
		{"no rides", nil, 0},
		{"today only", []RideRecord{ride(today)}, 1},
		{"yesterday only", []RideRecord{ride(today.AddDate(0, 0, -1))}, 1},
		{
			"three consecutive days",
			[]RideRecord{ride(today), ride(today.AddDate(0, 0, -1)), ride(today.AddDate(0, 0, -2))},
			3,
		},
		{"gap from today", []RideRecord{ride(today.AddDate(0, 0, -3))}, 0},
		{
			"same day duplicates counted once",
			[]RideRecord{ride(today), ride(today.Add(8 * time.Hour)), ride(today.AddDate(0, 0, -1))},
			2,
		},
		{
			"stops at first gap",
			[]RideRecord{
				ride(today.AddDate(0, 0, -1)),
				ride(today.AddDate(0, 0, -2)),
				ride(today.AddDate(0, 0, -4)),
				ride(today.AddDate(0, 0, -5)),
			},
			2,
		},
		{
			"unordered input",
			[]RideRecord{ride(today.AddDate(0, 0, -2)), ride(today), ride(today.AddDate(0, 0, -1))},
			3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreak(tt.rides, refNow, cal))
		})
	}
}

func TestComputeStreak_IsIdempotentAndLeavesInputAlone(t *testing.T) {
	rides := []RideRecord{
		ride(day(2026, 10, 12)),
		ride(day(2026, 10, 14)),
		ride(day(2026, 10, 13)),
	}
	original := append([]RideRecord(nil), rides...)

	first := ComputeStreak(rides, refNow, DefaultCalendar())
	second := ComputeStreak(rides, refNow, DefaultCalendar())
	assert.Equal(t, 3, first)
	assert.Equal(t, first, second)
	assert.Equal(t, original, rides)
}

func TestComputeStreak_AcrossDSTChange(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	cal := Calendar{Location: warsaw, WeekStart: time.Monday}

	// Clocks go back on 2026-10-25 in Warsaw.
	now := time.Date(2026, 10, 26, 12, 0, 0, 0, warsaw)
	rides := []RideRecord{
		ride(time.Date(2026, 10, 24, 0, 0, 0, 0, warsaw)),
		ride(time.Date(2026, 10, 25, 0, 0, 0, 0, warsaw)),
		ride(time.Date(2026, 10, 26, 0, 0, 0, 0, warsaw)),
	}
	assert.Equal(t, 3, ComputeStreak(rides, now, cal))
}

func TestComputeLongestStreak(t *testing.T) {
	rides := []RideRecord{
		ride(day(2026, 10, 1)),
		ride(day(2026, 10, 2)),
		ride(day(2026, 10, 3)),
		ride(day(2026, 10, 5)),
		ride(day(2026, 10, 6)),
		ride(day(2026, 10, 6)),
	}
	assert.Equal(t, 3, ComputeLongestStreak(rides, DefaultCalendar()))
	assert.Equal(t, 0, ComputeLongestStreak(nil, DefaultCalendar()))
}

func TestSnapshot_VerifiedPolicy(t *testing.T) {
	rides := []RideRecord{
		{RideDate: day(2026, 10, 14), Verified: true, Points: 10},
		{RideDate: day(2026, 10, 13), Verified: true, Points: 10},
		{RideDate: day(2026, 10, 12), Verified: false, Points: 0},
		{RideDate: day(2026, 9, 1), Verified: true, Points: 10},
	}

	snap := Snapshot(rides, refNow, DefaultOptions())
	assert.Equal(t, 3, snap.TotalRides)
	assert.Equal(t, 30, snap.TotalPoints)
	assert.Equal(t, 1, snap.UnverifiedRides)
	assert.Equal(t, 2, snap.WeeklyRideCount)
	assert.Equal(t, 2, snap.MonthlyRideCount)
	assert.Equal(t, 2, snap.CurrentStreakDays)
	assert.True(t, snap.RodeToday)
	assert.Equal(t, "verified", snap.Policy)
	assert.Len(t, snap.WeeklySeries, DefaultDayBuckets)
	assert.Len(t, snap.MonthlySeries, DefaultMonthBuckets)
	assert.LessOrEqual(t, snap.WeeklyRideCount, snap.TotalRides)
}

func TestSnapshot_AllPolicy(t *testing.T) {
	rides := []RideRecord{
		{RideDate: day(2026, 10, 14), Verified: false, Points: 0},
		{RideDate: day(2026, 10, 13), Verified: true, Points: 10},
		{RideDate: day(2026, 10, 12), Verified: false, Points: 0},
	}

	opts := DefaultOptions()
	opts.Policy = CountAll
	snap := Snapshot(rides, refNow, opts)
	assert.Equal(t, 3, snap.TotalRides)
	assert.Equal(t, 10, snap.TotalPoints)
	assert.Equal(t, 3, snap.CurrentStreakDays)
	assert.Equal(t, 3, snap.WeeklyRideCount)
}

func TestSnapshot_Empty(t *testing.T) {
	snap := Snapshot(nil, refNow, Options{})
	assert.Zero(t, snap.TotalRides)
	assert.Zero(t, snap.TotalPoints)
	assert.Zero(t, snap.CurrentStreakDays)
	assert.False(t, snap.RodeToday)
	assert.Equal(t, "ND", PolishLabels.Days[snap.WeeklySeries[3].Start.Weekday()])
}

func TestParseTotalsPolicy(t *testing.T) {
	p, ok := ParseTotalsPolicy("all")
	assert.True(t, ok)
	assert.Equal(t, CountAll, p)

	_, ok = ParseTotalsPolicy("everything")
	assert.False(t, ok)
}

func TestLabelsFor(t *testing.T) {
	assert.Equal(t, EnglishLabels, LabelsFor("en-US,en;q=0.9"))
	assert.Equal(t, PolishLabels, LabelsFor("pl-PL"))
	assert.Equal(t, PolishLabels, LabelsFor(""))
	assert.Equal(t, PolishLabels, LabelsFor("de-DE"))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2028, time.February))
	assert.Equal(t, 31, DaysInMonth(2026, time.October))
}
