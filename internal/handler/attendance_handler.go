package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classsync/classsync-api/internal/dto"
	"github.com/classsync/classsync-api/internal/middleware"
	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/service"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
	"github.com/classsync/classsync-api/pkg/response"
)

type attendanceService interface {
	ApplyBulkAttendance(ctx context.Context, req models.BulkAttendanceRequest, markedBy string) (*dto.BulkAttendanceResult, error)
	MyAttendance(ctx context.Context, studentID string) (*dto.MyAttendanceResponse, error)
	SubjectReport(ctx context.Context, subject string) (*dto.SubjectReportResponse, error)
	Roster(ctx context.Context) ([]dto.RosterEntry, error)
	GetCounter(ctx context.Context, id string) (*dto.SubjectAttendance, error)
	DeleteCounter(ctx context.Context, id string) error
	ListSessions(ctx context.Context, subject string, limit int) ([]models.AttendanceSession, error)
}

type exportService interface {
	ExportSubjectAttendance(ctx context.Context, subject string, format service.ExportFormat) (*service.ExportFile, error)
	ExportMonthlyStats(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
}

// AttendanceHandler exposes marking and reporting endpoints.
type AttendanceHandler struct {
	attendance attendanceService
	exports    exportService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceService, exports exportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exports: exports}
}

// Submit godoc
// @Summary Submit a marking session
// @Description Applies one present/absent mark per student to the subject counters
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.BulkAttendanceRequest true "Marks"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	var req models.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	result, err := h.attendance.ApplyBulkAttendance(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Sessions godoc
// @Summary List marking sessions
// @Tags Attendance
// @Produce json
// @Param subject query string false "Subject filter"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions [get]
func (h *AttendanceHandler) Sessions(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	sessions, err := h.attendance.ListSessions(c.Request.Context(), c.Query("subject"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Mine godoc
// @Summary Current student's attendance
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/me [get]
func (h *AttendanceHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.writeStudent(c, claims.UserID)
}

// Student godoc
// @Summary A student's attendance
// @Tags Attendance
// @Produce json
// @Param id path string true "Student user ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/students/{id} [get]
func (h *AttendanceHandler) Student(c *gin.Context) {
	h.writeStudent(c, c.Param("id"))
}

func (h *AttendanceHandler) writeStudent(c *gin.Context, studentID string) {
	res, err := h.attendance.MyAttendance(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, middleware.ResponseMeta(c))
}

// SubjectReport godoc
// @Summary Subject attendance report
// @Tags Attendance
// @Produce json
// @Param subject path string true "Subject name"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/subjects/{subject} [get]
func (h *AttendanceHandler) SubjectReport(c *gin.Context) {
	res, err := h.attendance.SubjectReport(c.Request.Context(), c.Param("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, middleware.ResponseMeta(c))
}

// ExportSubject godoc
// @Summary Download a subject report
// @Tags Attendance
// @Produce octet-stream
// @Param subject path string true "Subject name"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /attendance/subjects/{subject}/export [get]
func (h *AttendanceHandler) ExportSubject(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.ExportSubjectAttendance(c.Request.Context(), c.Param("subject"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeFile(c, file)
}

// Roster godoc
// @Summary Marking sheet roster
// @Description Students sorted by roll number, each pre-marked present
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/roster [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	roster, err := h.attendance.Roster(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// GetCounter godoc
// @Summary Get a counter
// @Tags Attendance
// @Produce json
// @Param id path string true "Counter ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/counters/{id} [get]
func (h *AttendanceHandler) GetCounter(c *gin.Context) {
	counter, err := h.attendance.GetCounter(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counter, nil)
}

// DeleteCounter godoc
// @Summary Delete a counter
// @Tags Attendance
// @Param id path string true "Counter ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/counters/{id} [delete]
func (h *AttendanceHandler) DeleteCounter(c *gin.Context) {
	if err := h.attendance.DeleteCounter(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func writeFile(c *gin.Context, file *service.ExportFile) {
	response.File(c, file.Filename, file.ContentType, file.Data)
}
