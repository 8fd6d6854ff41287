package dto

import (
	"time"

	"github.com/classsync/classsync-api/internal/models"
)

// BulkAttendanceResult acknowledges an applied marking session.
type BulkAttendanceResult struct {
	SessionID string    `json:"sessionId"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	Processed int       `json:"processed"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Present   int       `json:"present"`
	Absent    int       `json:"absent"`
}

// SubjectAttendance pairs a counter with its analysis.
type SubjectAttendance struct {
	CounterID string                    `json:"counterId"`
	Subject   string                    `json:"subject"`
	Total     int                       `json:"totalClasses"`
	Attended  int                       `json:"attendedClasses"`
	Analysis  models.AttendanceAnalysis `json:"analysis"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// MyAttendanceResponse is the student's own attendance view.
type MyAttendanceResponse struct {
	StudentID string              `json:"studentId"`
	Subjects  []SubjectAttendance `json:"subjects"`
	Overall   AttendanceOverall   `json:"overall"`
}

// AttendanceOverall sums every subject of a student.
type AttendanceOverall struct {
	Total      int                     `json:"totalClasses"`
	Attended   int                     `json:"attendedClasses"`
	Percentage float64                 `json:"percentage"`
	Status     models.AttendanceStatus `json:"status"`
	AtRisk     []string                `json:"atRiskSubjects"`
}

// StudentAttendanceRow is one line of a subject report.
type StudentAttendanceRow struct {
	CounterID   string                    `json:"counterId"`
	StudentID   string                    `json:"studentId"`
	RollNumber  string                    `json:"rollNumber"`
	StudentName string                    `json:"studentName"`
	Total       int                       `json:"totalClasses"`
	Attended    int                       `json:"attendedClasses"`
	Analysis    models.AttendanceAnalysis `json:"analysis"`
}

// SubjectReportResponse lists every student's counter for a subject.
type SubjectReportResponse struct {
	Subject      string                 `json:"subject"`
	Rows         []StudentAttendanceRow `json:"rows"`
	WarningCount int                    `json:"warningCount"`
}

// RosterEntry pre-fills the marking sheet.
type RosterEntry struct {
	StudentID  string `json:"studentId"`
	RollNumber string `json:"rollNumber"`
	FullName   string `json:"fullName"`
	IsPresent  bool   `json:"isPresent"`
}
