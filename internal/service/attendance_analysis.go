package service

import (
	"math"

	"github.com/classsync/classsync-api/internal/models"
)

// DefaultAttendanceThreshold is the eligibility boundary percentage.
const DefaultAttendanceThreshold = 75.0

// AnalyzeAttendance derives percentage, status and recovery distance at the default threshold.
func AnalyzeAttendance(counter models.AttendanceCounter) models.AttendanceAnalysis {
	return AnalyzeAttendanceAt(counter, DefaultAttendanceThreshold)
}

// AnalyzeAttendanceAt derives the analysis against an arbitrary threshold percentage in (0, 100).
// ClassesNeededToReach75 is the smallest x >= 0 with (attended+x)/(total+x) >= threshold.
func AnalyzeAttendanceAt(counter models.AttendanceCounter, threshold float64) models.AttendanceAnalysis {
	if threshold <= 0 || threshold >= 100 {
		threshold = DefaultAttendanceThreshold
	}
	total := float64(counter.TotalClasses)
	attended := float64(counter.AttendedClasses)

	var percentage float64
	if counter.TotalClasses > 0 {
		percentage = round2(100 * attended / total)
	}

	analysis := models.AttendanceAnalysis{Percentage: percentage, Status: models.AttendanceStatusSafe}
	if percentage >= threshold {
		return analysis
	}

	analysis.Status = models.AttendanceStatusWarning
	// Work in percentage points so a 75% threshold stays exact: x >= (p*total - 100*attended) / (100 - p).
	needed := (threshold*total - 100*attended) / (100 - threshold)
	classes := int(math.Ceil(needed - 1e-9))
	if classes < 0 {
		classes = 0
	}
	analysis.ClassesNeededToReach75 = classes
	return analysis
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
