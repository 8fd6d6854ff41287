package models

import "time"

// AttendanceStatus classifies a counter against the attendance threshold.
type AttendanceStatus string

const (
	AttendanceStatusSafe    AttendanceStatus = "Safe"
	AttendanceStatusWarning AttendanceStatus = "Warning"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusSafe, AttendanceStatusWarning:
		return true
	default:
		return false
	}
}

// AttendanceCounter is the running tally for one (student, subject) pair.
// AttendedClasses never exceeds TotalClasses.
type AttendanceCounter struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	Subject         string    `db:"subject" json:"subject"`
	TotalClasses    int       `db:"total_classes" json:"total_classes"`
	AttendedClasses int       `db:"attended_classes" json:"attended_classes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceCounterRecord joins a counter with its student's identity.
type AttendanceCounterRecord struct {
	AttendanceCounter
	RollNumber  string `db:"roll_number" json:"roll_number"`
	StudentName string `db:"student_name" json:"student_name"`
}

// AttendanceMark is a single row of a bulk marking submission.
type AttendanceMark struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	IsPresent bool   `json:"is_present"`
}

// BulkAttendanceRequest submits one class session for a subject.
type BulkAttendanceRequest struct {
	Subject string           `json:"subject" validate:"required,max=120"`
	Date    *time.Time       `json:"date,omitempty"`
	Marks   []AttendanceMark `json:"marks" validate:"required,min=1,dive"`
}

// CounterIncrement is the delta applied to one counter by a marking session.
type CounterIncrement struct {
	StudentID string
	Subject   string
	Attended  int
}

// AttendanceSession records one bulk marking submission.
type AttendanceSession struct {
	ID           string    `db:"id" json:"id"`
	Subject      string    `db:"subject" json:"subject"`
	SessionDate  time.Time `db:"session_date" json:"session_date"`
	MarkedBy     *string   `db:"marked_by" json:"marked_by,omitempty"`
	PresentCount int       `db:"present_count" json:"present_count"`
	AbsentCount  int       `db:"absent_count" json:"absent_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AttendanceAnalysis is the derived view of a counter.
type AttendanceAnalysis struct {
	Percentage             float64          `json:"percentage"`
	Status                 AttendanceStatus `json:"status"`
	ClassesNeededToReach75 int              `json:"classes_needed_to_reach_75"`
}
