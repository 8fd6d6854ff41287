package models

import "time"

// AllowedStudent is a registration whitelist entry. ClaimedBy is set once a user registers with the roll number.
type AllowedStudent struct {
	ID         string    `db:"id" json:"id"`
	RollNumber string    `db:"roll_number" json:"roll_number"`
	FullName   string    `db:"full_name" json:"full_name"`
	ClaimedBy  *string   `db:"claimed_by" json:"claimed_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AllowedStudentInput is one row of a bulk allow-list request.
type AllowedStudentInput struct {
	RollNumber string `json:"roll_number" validate:"required,max=32"`
	FullName   string `json:"full_name" validate:"required,min=2,max=120"`
}

// CreateAllowedStudentsRequest adds entries to the allow list.
type CreateAllowedStudentsRequest struct {
	Students []AllowedStudentInput `json:"students" validate:"required,min=1,dive"`
}
