package service

import (
	"fmt"
	"time"

	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

// HolidayDetail is a holiday that removed a working day from the month.
type HolidayDetail struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// MonthlyStatsResult is the calendar breakdown of one month.
// WorkingDays + len(SundayDates) + len(HolidayDetails) always equals DaysInMonth.
type MonthlyStatsResult struct {
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	MonthLabel      string          `json:"month_label"`
	DaysInMonth     int             `json:"days_in_month"`
	WorkingDays     int             `json:"working_days"`
	TotalClasses    int             `json:"total_classes"`
	HolidaysInMonth int             `json:"holidays_in_month"`
	SundayDates     []time.Time     `json:"sunday_dates"`
	HolidayDetails  []HolidayDetail `json:"holiday_details"`
}

// ComputeMonthlyStats walks every day of the month, classifying it as a Sunday, a holiday or a working day.
// Sundays are checked first, so a holiday falling on a Sunday is reported only as a Sunday.
// Only HolidayTypeHoliday entries remove a day; events are ignored.
func ComputeMonthlyStats(year, month int, periodsPerDay map[time.Weekday]int, holidays []models.Holiday) (*MonthlyStatsResult, error) {
	if year < 1 || year > 9999 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year %d out of range", year))
	}
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("month %d out of range", month))
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	holidayNames := make(map[int]string)
	for _, h := range holidaysInMonth(year, month, holidays) {
		if _, seen := holidayNames[h.Date.Day()]; !seen {
			holidayNames[h.Date.Day()] = h.Name
		}
	}

	result := &MonthlyStatsResult{
		Year:           year,
		Month:          month,
		MonthLabel:     MonthLabel(year, month),
		DaysInMonth:    daysInMonth,
		SundayDates:    []time.Time{},
		HolidayDetails: []HolidayDetail{},
	}

	for day := 1; day <= daysInMonth; day++ {
		date := first.AddDate(0, 0, day-1)
		weekday := date.Weekday()
		if weekday == time.Sunday {
			result.SundayDates = append(result.SundayDates, date)
			continue
		}
		if name, ok := holidayNames[day]; ok {
			result.HolidayDetails = append(result.HolidayDetails, HolidayDetail{Date: date, Name: name})
			continue
		}
		result.WorkingDays++
		result.TotalClasses += periodsPerDay[weekday]
	}
	result.HolidaysInMonth = len(result.HolidayDetails)

	return result, nil
}

// PeriodsPerDay converts the weekly timetable into a period count per weekday. Unknown or missing days count as zero.
func PeriodsPerDay(days []models.WeeklySlot) map[time.Weekday]int {
	periods := make(map[time.Weekday]int, len(days))
	for _, d := range days {
		weekday, ok := models.ParseTeachingDay(d.Day)
		if !ok {
			continue
		}
		periods[weekday] = len(d.Slots)
	}
	return periods
}

// MonthLabel formats the persistence key for a month, e.g. "February 2024".
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String(), year)
}

func holidaysInMonth(year, month int, holidays []models.Holiday) []models.Holiday {
	filtered := make([]models.Holiday, 0, len(holidays))
	for _, h := range holidays {
		if h.Type != models.HolidayTypeHoliday {
			continue
		}
		if h.Date.Year() == year && int(h.Date.Month()) == month {
			filtered = append(filtered, h)
		}
	}
	return filtered
}
