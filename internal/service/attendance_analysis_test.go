package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classsync/classsync-api/internal/models"
)

func counter(total, attended int) models.AttendanceCounter {
	return models.AttendanceCounter{StudentID: "s1", Subject: "Maths", TotalClasses: total, AttendedClasses: attended}
}

func TestAnalyzeAttendanceWarningScenario(t *testing.T) {
	analysis := AnalyzeAttendance(counter(20, 14))

	assert.Equal(t, 70.0, analysis.Percentage)
	assert.Equal(t, models.AttendanceStatusWarning, analysis.Status)
	assert.Equal(t, 4, analysis.ClassesNeededToReach75)

	after := AnalyzeAttendance(counter(20+4, 14+4))
	assert.Equal(t, 75.0, after.Percentage)
	assert.Equal(t, models.AttendanceStatusSafe, after.Status)
}

func TestAnalyzeAttendanceNeededIsMinimal(t *testing.T) {
	for total := 1; total <= 60; total++ {
		for attended := 0; attended <= total; attended++ {
			a := AnalyzeAttendance(counter(total, attended))
			if a.Status == models.AttendanceStatusSafe {
				assert.Equal(t, 0, a.ClassesNeededToReach75)
				continue
			}
			x := a.ClassesNeededToReach75
			assert.GreaterOrEqual(t, 4*(attended+x), 3*(total+x), "total=%d attended=%d", total, attended)
			if x > 0 {
				assert.Less(t, 4*(attended+x-1), 3*(total+x-1), "total=%d attended=%d", total, attended)
			}
		}
	}
}

func TestAnalyzeAttendanceZeroTotal(t *testing.T) {
	analysis := AnalyzeAttendance(counter(0, 0))
	assert.Equal(t, 0.0, analysis.Percentage)
	assert.Equal(t, models.AttendanceStatusWarning, analysis.Status)
	assert.Equal(t, 0, analysis.ClassesNeededToReach75)
}

func TestAnalyzeAttendanceRoundsToTwoDecimals(t *testing.T) {
	analysis := AnalyzeAttendance(counter(3, 2))
	assert.Equal(t, 66.67, analysis.Percentage)
	assert.Equal(t, 1, analysis.ClassesNeededToReach75)
}

func TestAnalyzeAttendanceBoundaryIsSafe(t *testing.T) {
	analysis := AnalyzeAttendance(counter(4, 3))
	assert.Equal(t, 75.0, analysis.Percentage)
	assert.Equal(t, models.AttendanceStatusSafe, analysis.Status)
	assert.Equal(t, 0, analysis.ClassesNeededToReach75)
}

func TestAnalyzeAttendanceIsDeterministic(t *testing.T) {
	c := counter(37, 25)
	assert.Equal(t, AnalyzeAttendance(c), AnalyzeAttendance(c))
}

func TestAnalyzeAttendanceAtCustomThreshold(t *testing.T) {
	analysis := AnalyzeAttendanceAt(counter(10, 7), 80)
	assert.Equal(t, models.AttendanceStatusWarning, analysis.Status)
	// (7+5)/(10+5) = 80%.
	assert.Equal(t, 5, analysis.ClassesNeededToReach75)

	fallback := AnalyzeAttendanceAt(counter(20, 14), 0)
	assert.Equal(t, 4, fallback.ClassesNeededToReach75)
}
