package models

import "time"

// Assignment is homework posted for a subject.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Subject     string    `db:"subject" json:"subject"`
	Description *string   `db:"description" json:"description,omitempty"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AssignmentFilter scopes listing queries.
type AssignmentFilter struct {
	Subject      string
	UpcomingOnly bool
	Now          time.Time
}

// CreateAssignmentRequest is the admin payload for posting an assignment.
type CreateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Subject     string    `json:"subject" validate:"required,max=120"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}
