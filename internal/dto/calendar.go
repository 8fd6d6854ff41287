package dto

import "time"

// HolidayInMonth names a holiday that fell on a non-Sunday.
type HolidayInMonth struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// MonthlyStatsResponse is the computed calendar summary for a month.
type MonthlyStatsResponse struct {
	Year            int              `json:"year"`
	Month           int              `json:"month"`
	MonthLabel      string           `json:"monthLabel"`
	DaysInMonth     int              `json:"daysInMonth"`
	WorkingDays     int              `json:"workingDays"`
	TotalClasses    int              `json:"totalClasses"`
	HolidaysInMonth int              `json:"holidaysInMonth"`
	SundayDates     []string         `json:"sundayDates"`
	HolidayDetails  []HolidayInMonth `json:"holidayDetails"`
	ComputedAt      time.Time        `json:"computedAt"`
}
