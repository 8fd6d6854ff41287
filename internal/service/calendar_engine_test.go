package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

func sixDaySchedule(weekday, saturday int) map[time.Weekday]int {
	return map[time.Weekday]int{
		time.Monday:    weekday,
		time.Tuesday:   weekday,
		time.Wednesday: weekday,
		time.Thursday:  weekday,
		time.Friday:    weekday,
		time.Saturday:  saturday,
	}
}

func holiday(name string, y int, m time.Month, d int, kind models.HolidayType) models.Holiday {
	return models.Holiday{Name: name, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Type: kind}
}

func TestComputeMonthlyStatsFebruaryLeapYear(t *testing.T) {
	holidays := []models.Holiday{holiday("Founders Day", 2024, time.February, 14, models.HolidayTypeHoliday)}

	periods := sixDaySchedule(6, 4)
	stats, err := ComputeMonthlyStats(2024, 2, periods, holidays)
	require.NoError(t, err)

	expected := 0
	for d := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC); d.Month() == time.February; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Sunday || d.Day() == 14 {
			continue
		}
		expected += periods[d.Weekday()]
	}

	assert.Equal(t, 29, stats.DaysInMonth)
	require.Len(t, stats.SundayDates, 4)
	for i, day := range []int{4, 11, 18, 25} {
		assert.Equal(t, day, stats.SundayDates[i].Day())
	}
	require.Len(t, stats.HolidayDetails, 1)
	assert.Equal(t, 14, stats.HolidayDetails[0].Date.Day())
	assert.Equal(t, "Founders Day", stats.HolidayDetails[0].Name)
	assert.Equal(t, 24, stats.WorkingDays)
	// 20 weekdays at 6 periods plus 4 Saturdays at 4 periods.
	assert.Equal(t, 136, stats.TotalClasses)
	assert.Equal(t, expected, stats.TotalClasses)
	assert.Equal(t, 1, stats.HolidaysInMonth)
	assert.Equal(t, "February 2024", stats.MonthLabel)
}

func TestComputeMonthlyStatsEveryDayClassifiedOnce(t *testing.T) {
	holidays := []models.Holiday{
		holiday("A", 2023, time.March, 8, models.HolidayTypeHoliday),
		holiday("B", 2025, time.December, 25, models.HolidayTypeHoliday),
		holiday("C", 2024, time.June, 17, models.HolidayTypeHoliday),
	}
	for _, year := range []int{2023, 2024, 2025} {
		for month := 1; month <= 12; month++ {
			stats, err := ComputeMonthlyStats(year, month, sixDaySchedule(5, 3), holidays)
			require.NoError(t, err)
			assert.Equal(t, stats.DaysInMonth, stats.WorkingDays+len(stats.SundayDates)+len(stats.HolidayDetails), "%d-%02d", year, month)
		}
	}
}

func TestComputeMonthlyStatsSundayTakesPrecedence(t *testing.T) {
	// 2024-03-10 is a Sunday.
	holidays := []models.Holiday{holiday("Sunday Fest", 2024, time.March, 10, models.HolidayTypeHoliday)}

	stats, err := ComputeMonthlyStats(2024, 3, sixDaySchedule(6, 4), holidays)
	require.NoError(t, err)

	found := false
	for _, d := range stats.SundayDates {
		if d.Day() == 10 {
			found = true
		}
	}
	assert.True(t, found)
	assert.Empty(t, stats.HolidayDetails)
	assert.Equal(t, 0, stats.HolidaysInMonth)
}

func TestComputeMonthlyStatsZeroSlotsStillWorkingDays(t *testing.T) {
	stats, err := ComputeMonthlyStats(2024, 4, map[time.Weekday]int{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalClasses)
	// April 2024 has 30 days and 4 Sundays.
	assert.Equal(t, 26, stats.WorkingDays)
}

func TestComputeMonthlyStatsIgnoresEventsAndOtherMonths(t *testing.T) {
	holidays := []models.Holiday{
		holiday("Sports Meet", 2024, time.February, 14, models.HolidayTypeEvent),
		holiday("Same day, other month", 2024, time.January, 14, models.HolidayTypeHoliday),
		holiday("Same day, other year", 2023, time.February, 14, models.HolidayTypeHoliday),
	}
	stats, err := ComputeMonthlyStats(2024, 2, sixDaySchedule(6, 4), holidays)
	require.NoError(t, err)
	assert.Empty(t, stats.HolidayDetails)
	assert.Equal(t, 25, stats.WorkingDays)
}

func TestComputeMonthlyStatsDuplicateHolidaySameDay(t *testing.T) {
	holidays := []models.Holiday{
		holiday("First", 2024, time.February, 14, models.HolidayTypeHoliday),
		holiday("Second", 2024, time.February, 14, models.HolidayTypeHoliday),
	}
	stats, err := ComputeMonthlyStats(2024, 2, sixDaySchedule(6, 4), holidays)
	require.NoError(t, err)
	require.Len(t, stats.HolidayDetails, 1)
	assert.Equal(t, "First", stats.HolidayDetails[0].Name)
	assert.Equal(t, 24, stats.WorkingDays)
}

func TestComputeMonthlyStatsRejectsInvalidInput(t *testing.T) {
	for _, tc := range []struct{ year, month int }{{2024, 0}, {2024, 13}, {0, 5}, {10000, 1}} {
		_, err := ComputeMonthlyStats(tc.year, tc.month, nil, nil)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestPeriodsPerDay(t *testing.T) {
	periods := PeriodsPerDay([]models.WeeklySlot{
		{Day: "Monday", Slots: []models.ClassSlot{{Subject: "Maths"}, {Subject: "Physics"}}},
		{Day: "saturday", Slots: []models.ClassSlot{{Subject: "Lab"}}},
		{Day: "Sunday", Slots: []models.ClassSlot{{Subject: "Nope"}}},
	})
	assert.Equal(t, 2, periods[time.Monday])
	assert.Equal(t, 1, periods[time.Saturday])
	assert.Equal(t, 0, periods[time.Tuesday])
	_, hasSunday := periods[time.Sunday]
	assert.False(t, hasSunday)
}
