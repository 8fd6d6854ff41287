package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/dto"
	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/repository"
	"github.com/classsync/classsync-api/pkg/clock"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
	"github.com/classsync/classsync-api/pkg/logger"
)

const (
	attendanceCachePattern  = "attendance:*"
	attendanceStudentKeyFmt = "attendance:student:%s"
	attendanceSubjectKeyFmt = "attendance:subject:%s"
	attendanceCacheTTL      = 5 * time.Minute
	defaultSessionListLimit = 50
)

type attendanceStore interface {
	FindBySubjectAndStudents(ctx context.Context, subject string, studentIDs []string) ([]models.AttendanceCounter, error)
	ApplyIncrements(ctx context.Context, session *models.AttendanceSession, increments []models.CounterIncrement, onePerDay bool) error
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceCounter, error)
	ListBySubject(ctx context.Context, subject string) ([]models.AttendanceCounterRecord, error)
	GetByID(ctx context.Context, id string) (*models.AttendanceCounter, error)
	Delete(ctx context.Context, id string) error
	ListSessions(ctx context.Context, subject string, limit int) ([]models.AttendanceSession, error)
}

type studentDirectory interface {
	ListStudents(ctx context.Context) ([]models.StudentRef, error)
	FindStudentsByIDs(ctx context.Context, ids []string) ([]models.StudentRef, error)
}

type subjectRegistry interface {
	FindByName(ctx context.Context, name string) (*models.Subject, error)
}

// AttendanceOptions tunes the marking pipeline.
type AttendanceOptions struct {
	Threshold          float64
	DedupeByDate       bool
	ValidateReferences bool
}

// AttendanceService applies bulk marking sessions and serves attendance analyses.
type AttendanceService struct {
	store    attendanceStore
	students studentDirectory
	subjects subjectRegistry
	cache    *CacheService
	metrics  *MetricsService
	clock    *clock.Clock
	opts     AttendanceOptions
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAttendanceService wires the attendance aggregator and query layer.
func NewAttendanceService(store attendanceStore, students studentDirectory, subjects subjectRegistry, cache *CacheService, metrics *MetricsService, clk *clock.Clock, opts AttendanceOptions, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New(time.UTC)
	}
	if opts.Threshold <= 0 || opts.Threshold >= 100 {
		opts.Threshold = DefaultAttendanceThreshold
	}
	return &AttendanceService{
		store:    store,
		students: students,
		subjects: subjects,
		cache:    cache,
		metrics:  metrics,
		clock:    clk,
		opts:     opts,
		validate: validate,
		logger:   logger,
	}
}

// ApplyBulkAttendance records one class session: every marked student gains one class,
// and one attended class when present.
func (s *AttendanceService) ApplyBulkAttendance(ctx context.Context, req models.BulkAttendanceRequest, markedBy string) (*dto.BulkAttendanceResult, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if len(req.Marks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "marks must contain at least one entry")
	}
	marks := make([]models.AttendanceMark, len(req.Marks))
	for i, mark := range req.Marks {
		mark.StudentID = strings.TrimSpace(mark.StudentID)
		marks[i] = mark
	}
	req.Marks = marks
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	studentIDs := make([]string, 0, len(req.Marks))
	seen := make(map[string]struct{}, len(req.Marks))
	for _, mark := range req.Marks {
		id := mark.StudentID
		if _, dup := seen[id]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is marked more than once", id))
		}
		seen[id] = struct{}{}
		studentIDs = append(studentIDs, id)
	}

	sessionDate := s.clock.Today()
	if req.Date != nil {
		d := req.Date.In(s.clock.Location())
		sessionDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.clock.Location())
	}

	subject, err := s.resolveSubject(ctx, req.Subject, s.opts.ValidateReferences)
	if err != nil {
		return nil, err
	}
	req.Subject = subject

	if s.opts.ValidateReferences {
		if err := s.checkStudents(ctx, studentIDs); err != nil {
			return nil, err
		}
	}

	existing, err := s.store.FindBySubjectAndStudents(ctx, req.Subject, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance counters")
	}
	known := make(map[string]struct{}, len(existing))
	for _, counter := range existing {
		known[counter.StudentID] = struct{}{}
	}

	result := &dto.BulkAttendanceResult{Subject: req.Subject, Date: sessionDate}
	increments := make([]models.CounterIncrement, 0, len(req.Marks))
	for _, mark := range req.Marks {
		id := mark.StudentID
		inc := models.CounterIncrement{StudentID: id, Subject: req.Subject}
		if mark.IsPresent {
			inc.Attended = 1
			result.Present++
		} else {
			result.Absent++
		}
		if _, ok := known[id]; ok {
			result.Updated++
		} else {
			result.Created++
		}
		increments = append(increments, inc)
	}
	result.Processed = len(increments)

	session := &models.AttendanceSession{
		Subject:      req.Subject,
		SessionDate:  sessionDate,
		PresentCount: result.Present,
		AbsentCount:  result.Absent,
	}
	if markedBy != "" {
		session.MarkedBy = &markedBy
	}
	applyStart := time.Now()
	err = s.store.ApplyIncrements(ctx, session, increments, s.opts.DedupeByDate)
	s.metrics.ObserveDBQuery("apply_increments", time.Since(applyStart))
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("attendance for %s on %s was already recorded", req.Subject, sessionDate.Format(time.DateOnly)))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply attendance")
	}
	result.SessionID = session.ID

	s.metrics.RecordAttendanceSession(result.Present, result.Absent)
	s.invalidate(ctx)
	logger.FromContext(ctx, s.logger).Info("attendance session applied",
		zap.String("subject", req.Subject),
		zap.String("date", sessionDate.Format("2006-01-02")),
		zap.Int("present", result.Present),
		zap.Int("absent", result.Absent),
		zap.Int("new_counters", result.Created),
	)
	return result, nil
}

// resolveSubject returns the registered spelling of name, so counters, cache
// keys and queries agree on one form per subject. Unregistered names pass
// through trimmed unless strict.
func (s *AttendanceService) resolveSubject(ctx context.Context, name string, strict bool) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || s.subjects == nil {
		return name, nil
	}
	subject, err := s.subjects.FindByName(ctx, name)
	switch {
	case err == nil:
		return subject.Name, nil
	case errors.Is(err, sql.ErrNoRows):
		if strict {
			return "", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %s not found", name))
		}
		return name, nil
	default:
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
}

func (s *AttendanceService) checkStudents(ctx context.Context, studentIDs []string) error {
	if s.students == nil {
		return nil
	}
	found, err := s.students.FindStudentsByIDs(ctx, studentIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	present := make(map[string]struct{}, len(found))
	for _, st := range found {
		present[st.ID] = struct{}{}
	}
	var missing []string
	for _, id := range studentIDs {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrReference, fmt.Sprintf("unknown students: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// Analyze derives percentage, status and recovery count using the configured threshold.
func (s *AttendanceService) Analyze(counter models.AttendanceCounter) models.AttendanceAnalysis {
	return AnalyzeAttendanceAt(counter, s.opts.Threshold)
}

// MyAttendance returns every counter of a student with its analysis.
func (s *AttendanceService) MyAttendance(ctx context.Context, studentID string) (*dto.MyAttendanceResponse, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	key := fmt.Sprintf(attendanceStudentKeyFmt, studentID)
	return Remember(ctx, s.cache, key, attendanceCacheTTL, func(ctx context.Context) (*dto.MyAttendanceResponse, error) {
		return s.loadStudentAttendance(ctx, studentID)
	})
}

func (s *AttendanceService) loadStudentAttendance(ctx context.Context, studentID string) (*dto.MyAttendanceResponse, error) {
	counters, err := s.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	resp := &dto.MyAttendanceResponse{
		StudentID: studentID,
		Subjects:  make([]dto.SubjectAttendance, 0, len(counters)),
		Overall:   dto.AttendanceOverall{AtRisk: []string{}},
	}
	for _, counter := range counters {
		analysis := s.Analyze(counter)
		resp.Subjects = append(resp.Subjects, dto.SubjectAttendance{
			CounterID: counter.ID,
			Subject:   counter.Subject,
			Total:     counter.TotalClasses,
			Attended:  counter.AttendedClasses,
			Analysis:  analysis,
			UpdatedAt: counter.UpdatedAt,
		})
		resp.Overall.Total += counter.TotalClasses
		resp.Overall.Attended += counter.AttendedClasses
		if analysis.Status == models.AttendanceStatusWarning {
			resp.Overall.AtRisk = append(resp.Overall.AtRisk, counter.Subject)
		}
	}
	overall := s.Analyze(models.AttendanceCounter{TotalClasses: resp.Overall.Total, AttendedClasses: resp.Overall.Attended})
	resp.Overall.Percentage = overall.Percentage
	resp.Overall.Status = overall.Status
	return resp, nil
}

// SubjectReport lists every student's counter for subject.
func (s *AttendanceService) SubjectReport(ctx context.Context, subject string) (*dto.SubjectReportResponse, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	subject, err := s.resolveSubject(ctx, subject, false)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf(attendanceSubjectKeyFmt, subject)
	return Remember(ctx, s.cache, key, attendanceCacheTTL, func(ctx context.Context) (*dto.SubjectReportResponse, error) {
		return s.loadSubjectReport(ctx, subject)
	})
}

func (s *AttendanceService) loadSubjectReport(ctx context.Context, subject string) (*dto.SubjectReportResponse, error) {
	records, err := s.store.ListBySubject(ctx, subject)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject attendance")
	}
	resp := &dto.SubjectReportResponse{Subject: subject, Rows: make([]dto.StudentAttendanceRow, 0, len(records))}
	for _, rec := range records {
		analysis := s.Analyze(rec.AttendanceCounter)
		if analysis.Status == models.AttendanceStatusWarning {
			resp.WarningCount++
		}
		resp.Rows = append(resp.Rows, dto.StudentAttendanceRow{
			CounterID:   rec.ID,
			StudentID:   rec.StudentID,
			RollNumber:  rec.RollNumber,
			StudentName: rec.StudentName,
			Total:       rec.TotalClasses,
			Attended:    rec.AttendedClasses,
			Analysis:    analysis,
		})
	}
	return resp, nil
}

// Roster lists active students by roll number, each pre-marked present.
func (s *AttendanceService) Roster(ctx context.Context) ([]dto.RosterEntry, error) {
	students, err := s.students.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	sort.SliceStable(students, func(i, j int) bool {
		return students[i].RollNumber < students[j].RollNumber
	})
	roster := make([]dto.RosterEntry, 0, len(students))
	for _, st := range students {
		roster = append(roster, dto.RosterEntry{
			StudentID:  st.ID,
			RollNumber: st.RollNumber,
			FullName:   st.FullName,
			IsPresent:  true,
		})
	}
	return roster, nil
}

// DeleteCounter removes a counter outright.
func (s *AttendanceService) DeleteCounter(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance counter not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance counter")
	}
	s.invalidate(ctx)
	return nil
}

// GetCounter fetches one counter with its analysis.
func (s *AttendanceService) GetCounter(ctx context.Context, id string) (*dto.SubjectAttendance, error) {
	counter, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance counter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance counter")
	}
	return &dto.SubjectAttendance{
		CounterID: counter.ID,
		Subject:   counter.Subject,
		Total:     counter.TotalClasses,
		Attended:  counter.AttendedClasses,
		Analysis:  s.Analyze(*counter),
		UpdatedAt: counter.UpdatedAt,
	}, nil
}

// ListSessions returns the marking history, optionally for one subject.
func (s *AttendanceService) ListSessions(ctx context.Context, subject string, limit int) ([]models.AttendanceSession, error) {
	if limit <= 0 {
		limit = defaultSessionListLimit
	}
	subject, err := s.resolveSubject(ctx, subject, false)
	if err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessions(ctx, subject, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance sessions")
	}
	if sessions == nil {
		sessions = []models.AttendanceSession{}
	}
	return sessions, nil
}

func (s *AttendanceService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, attendanceCachePattern); err != nil {
		s.logger.Warn("attendance cache invalidation failed", zap.Error(err))
	}
}
