package models

import "time"

// HolidayType distinguishes days off from informational events.
type HolidayType string

const (
	HolidayTypeHoliday HolidayType = "Holiday"
	HolidayTypeEvent   HolidayType = "Event"
)

// Valid returns true when the type is supported.
func (t HolidayType) Valid() bool {
	return t == HolidayTypeHoliday || t == HolidayTypeEvent
}

// Holiday is a calendar entry. Only HolidayTypeHoliday suppresses classes.
type Holiday struct {
	ID        string      `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Date      time.Time   `db:"date" json:"date"`
	Type      HolidayType `db:"type" json:"type"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// HolidayFilter scopes listing queries. Month is only honoured together with Year.
type HolidayFilter struct {
	Year  int
	Month int
}

// CreateHolidayRequest is the admin payload for adding a calendar entry.
type CreateHolidayRequest struct {
	Name string      `json:"name" validate:"required,max=160"`
	Date time.Time   `json:"date" validate:"required"`
	Type HolidayType `json:"type" validate:"required,holiday_type"`
}
