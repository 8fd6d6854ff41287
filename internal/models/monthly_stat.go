package models

import "time"

// MonthlyStat is the persisted summary for a calendar month, keyed by Month label ("March 2024").
type MonthlyStat struct {
	ID                    string    `db:"id" json:"id"`
	Month                 string    `db:"month" json:"month"`
	TotalWorkingDays      int       `db:"total_working_days" json:"total_working_days"`
	TotalClassesConducted int       `db:"total_classes_conducted" json:"total_classes_conducted"`
	Notes                 *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// SaveMonthlyStatRequest is the admin payload for recording a month.
type SaveMonthlyStatRequest struct {
	Month                 string  `json:"month" validate:"required,max=32"`
	TotalWorkingDays      int     `json:"total_working_days" validate:"gte=0,lte=31"`
	TotalClassesConducted int     `json:"total_classes_conducted" validate:"gte=0"`
	Notes                 *string `json:"notes" validate:"omitempty,max=500"`
}
