package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/dto"
	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/clock"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
	"github.com/classsync/classsync-api/pkg/export"
)

// ExportFormat enumerates supported report encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat normalises a user supplied format, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ExportFormatCSV):
		return ExportFormatCSV, nil
	case string(ExportFormatPDF):
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ExportFile is a rendered report ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type subjectReporter interface {
	SubjectReport(ctx context.Context, subject string) (*dto.SubjectReportResponse, error)
}

type monthlyStatLister interface {
	List(ctx context.Context) ([]models.MonthlyStat, error)
}

// Renderer encodes a table into file bytes.
type Renderer func(export.Table) ([]byte, error)

// ExportService turns attendance and calendar data into downloadable files.
type ExportService struct {
	reports subjectReporter
	monthly monthlyStatLister
	csv     Renderer
	pdf     Renderer
	clock   *clock.Clock
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(reports subjectReporter, monthly monthlyStatLister, clk *clock.Clock, logger *zap.Logger, csv, pdf Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New(time.UTC)
	}
	if csv == nil {
		csv = export.CSV
	}
	if pdf == nil {
		pdf = export.PDF
	}
	return &ExportService{
		reports: reports,
		monthly: monthly,
		csv:     csv,
		pdf:     pdf,
		clock:   clk,
		logger:  logger,
	}
}

// ExportSubjectAttendance renders the attendance report for one subject.
func (s *ExportService) ExportSubjectAttendance(ctx context.Context, subject string, format ExportFormat) (*ExportFile, error) {
	report, err := s.reports.SubjectReport(ctx, subject)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, []string{
			row.RollNumber,
			row.StudentName,
			strconv.Itoa(row.Attended),
			strconv.Itoa(row.Total),
			fmt.Sprintf("%.2f", row.Analysis.Percentage),
			string(row.Analysis.Status),
			strconv.Itoa(row.Analysis.ClassesNeededToReach75),
		})
	}
	table := export.Table{
		Title:    fmt.Sprintf("Attendance Report %s", report.Subject),
		Subtitle: fmt.Sprintf("%d students, %d below threshold", len(report.Rows), report.WarningCount),
		Columns: []export.Column{
			{Name: "Roll No", Weight: 1.2},
			{Name: "Name", Weight: 2.5},
			{Name: "Attended", Align: "R"},
			{Name: "Total", Align: "R"},
			{Name: "Attendance (%)", Weight: 1.3, Align: "R"},
			{Name: "Status", Align: "C"},
			{Name: "Classes Needed", Weight: 1.3, Align: "R"},
		},
		Rows: rows,
		Highlight: func(row []string) bool {
			return row[5] == string(models.AttendanceStatusWarning)
		},
	}
	return s.render(table, "attendance_"+sanitizeFilename(report.Subject), format)
}

// ExportMonthlyStats renders every saved monthly summary.
func (s *ExportService) ExportMonthlyStats(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	stats, err := s.monthly.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly stats")
	}
	rows := make([][]string, 0, len(stats))
	for _, stat := range stats {
		notes := ""
		if stat.Notes != nil {
			notes = *stat.Notes
		}
		rows = append(rows, []string{
			stat.Month,
			strconv.Itoa(stat.TotalWorkingDays),
			strconv.Itoa(stat.TotalClassesConducted),
			notes,
		})
	}
	table := export.Table{
		Title: "Monthly Statistics",
		Columns: []export.Column{
			{Name: "Month", Weight: 1.5},
			{Name: "Working Days", Align: "R"},
			{Name: "Classes Conducted", Weight: 1.3, Align: "R"},
			{Name: "Notes", Weight: 3},
		},
		Rows: rows,
	}
	return s.render(table, "monthly_stats", format)
}

func (s *ExportService) render(table export.Table, baseName string, format ExportFormat) (*ExportFile, error) {
	var (
		payload     []byte
		err         error
		contentType string
	)
	switch format {
	case ExportFormatCSV, "":
		format = ExportFormatCSV
		contentType = "text/csv"
		payload, err = s.csv(table)
	case ExportFormatPDF:
		contentType = "application/pdf"
		payload, err = s.pdf(table)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s_%s.%s", baseName, s.clock.Now().Format("20060102_150405"), format)
	s.logger.Debug("export rendered", zap.String("file", filename), zap.Int("rows", len(table.Rows)))
	return &ExportFile{Filename: filename, ContentType: contentType, Data: payload}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
