package models

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ClassSlot is one period of a weekday.
type ClassSlot struct {
	Subject   string `json:"subject" validate:"required,max=120"`
	StartTime string `json:"start_time,omitempty" validate:"omitempty,len=5"`
	EndTime   string `json:"end_time,omitempty" validate:"omitempty,len=5"`
	Room      string `json:"room,omitempty" validate:"omitempty,max=60"`
}

// WeeklySlot holds the ordered periods taught on a weekday. The period count is len(Slots).
type WeeklySlot struct {
	ID        string         `db:"id" json:"id"`
	Day       string         `db:"day" json:"day"`
	Slots     []ClassSlot    `db:"-" json:"slots"`
	RawSlots  types.JSONText `db:"slots" json:"-"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// UpsertTimetableDayRequest replaces the slots for one weekday.
type UpsertTimetableDayRequest struct {
	Day   string      `json:"day" validate:"required,weekday"`
	Slots []ClassSlot `json:"slots" validate:"dive"`
}

// TeachingDays lists the weekdays a timetable may cover, in display order.
var TeachingDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
}

// ParseTeachingDay resolves a weekday name (case-insensitive). Sunday is rejected.
func ParseTeachingDay(raw string) (time.Weekday, bool) {
	for _, d := range TeachingDays {
		if strings.EqualFold(d.String(), strings.TrimSpace(raw)) {
			return d, true
		}
	}
	return time.Sunday, false
}
