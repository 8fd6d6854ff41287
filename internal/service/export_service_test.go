package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/dto"
	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/clock"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type reporterStub struct {
	report *dto.SubjectReportResponse
	err    error
}

func (r reporterStub) SubjectReport(ctx context.Context, subject string) (*dto.SubjectReportResponse, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.report, nil
}

type monthlyListStub struct {
	stats []models.MonthlyStat
}

func (m monthlyListStub) List(ctx context.Context) ([]models.MonthlyStat, error) {
	return m.stats, nil
}

func newExportServiceForTest(t *testing.T, reporter subjectReporter, monthly monthlyStatLister) *ExportService {
	t.Helper()
	clk := clock.WithNow(time.UTC, func() time.Time {
		return time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)
	})
	return NewExportService(reporter, monthly, clk, zap.NewNop(), nil, nil)
}

func sampleReport() *dto.SubjectReportResponse {
	return &dto.SubjectReportResponse{
		Subject: "Data Structures",
		Rows: []dto.StudentAttendanceRow{
			{RollNumber: "CS-01", StudentName: "Asha", Total: 20, Attended: 14, Analysis: AnalyzeAttendance(models.AttendanceCounter{TotalClasses: 20, AttendedClasses: 14})},
			{RollNumber: "CS-02", StudentName: "Ravi", Total: 20, Attended: 18, Analysis: AnalyzeAttendance(models.AttendanceCounter{TotalClasses: 20, AttendedClasses: 18})},
		},
	}
}

func TestExportSubjectAttendanceCSV(t *testing.T) {
	svc := newExportServiceForTest(t, reporterStub{report: sampleReport()}, monthlyListStub{})

	file, err := svc.ExportSubjectAttendance(context.Background(), "Data Structures", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "attendance_data_structures_20240305_093000.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Roll No,Name,Attended,Total,Attendance (%),Status,Classes Needed", lines[0])
	assert.Equal(t, "CS-01,Asha,14,20,70.00,Warning,4", lines[1])
	assert.Equal(t, "CS-02,Ravi,18,20,90.00,Safe,0", lines[2])
}

func TestExportSubjectAttendancePDF(t *testing.T) {
	svc := newExportServiceForTest(t, reporterStub{report: sampleReport()}, monthlyListStub{})

	file, err := svc.ExportSubjectAttendance(context.Background(), "Data Structures", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	require.Greater(t, len(file.Data), 0)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportSubjectAttendancePropagatesErrors(t *testing.T) {
	svc := newExportServiceForTest(t, reporterStub{err: appErrors.Clone(appErrors.ErrValidation, "subject is required")}, monthlyListStub{})

	_, err := svc.ExportSubjectAttendance(context.Background(), "", ExportFormatCSV)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportMonthlyStats(t *testing.T) {
	notes := "exam week"
	svc := newExportServiceForTest(t, reporterStub{}, monthlyListStub{stats: []models.MonthlyStat{
		{Month: "February 2024", TotalWorkingDays: 24, TotalClassesConducted: 136, Notes: &notes},
	}})

	file, err := svc.ExportMonthlyStats(context.Background(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), "February 2024,24,136,exam week")
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, format)

	format, err = ParseExportFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, format)

	_, err = ParseExportFormat("xlsx")
	require.Error(t, err)
}
