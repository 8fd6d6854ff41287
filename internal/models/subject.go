package models

import "time"

// Subject is an entry in the subject registry. Attendance counters refer to
// subjects by name, so the name is immutable once created.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      *string   `db:"code" json:"code,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateSubjectRequest registers a subject.
type CreateSubjectRequest struct {
	Name string  `json:"name" validate:"required,max=120"`
	Code *string `json:"code" validate:"omitempty,alphanum,max=20"`
}

// UpdateSubjectRequest changes the short code of a subject. A null code clears it.
type UpdateSubjectRequest struct {
	Code *string `json:"code" validate:"omitempty,alphanum,max=20"`
}
