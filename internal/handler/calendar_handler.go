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

type holidayService interface {
	List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error)
	Create(ctx context.Context, req models.CreateHolidayRequest) (*models.Holiday, error)
	Delete(ctx context.Context, id string) error
}

type timetableService interface {
	Week(ctx context.Context) ([]models.WeeklySlot, error)
	UpsertDay(ctx context.Context, req models.UpsertTimetableDayRequest) (*models.WeeklySlot, error)
	DeleteDay(ctx context.Context, raw string) error
}

type monthlyStatService interface {
	Compute(ctx context.Context, year, month int) (*dto.MonthlyStatsResponse, error)
	ComputeCurrent(ctx context.Context) (*dto.MonthlyStatsResponse, error)
	Save(ctx context.Context, req models.SaveMonthlyStatRequest) (*models.MonthlyStat, error)
	SaveComputed(ctx context.Context, year, month int, notes *string) (*models.MonthlyStat, error)
	List(ctx context.Context) ([]models.MonthlyStat, error)
	Delete(ctx context.Context, id string) error
}

// CalendarHandler serves holidays, the weekly timetable and monthly statistics.
type CalendarHandler struct {
	holidays  holidayService
	timetable timetableService
	monthly   monthlyStatService
	exports   exportService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(holidays holidayService, timetable timetableService, monthly monthlyStatService, exports exportService) *CalendarHandler {
	return &CalendarHandler{holidays: holidays, timetable: timetable, monthly: monthly, exports: exports}
}

// ListHolidays godoc
// @Summary List holidays and events
// @Tags Calendar
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month (requires year)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays [get]
func (h *CalendarHandler) ListHolidays(c *gin.Context) {
	year, err := intQuery(c, "year", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	month, err := intQuery(c, "month", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.holidays.List(c.Request.Context(), models.HolidayFilter{Year: year, Month: month})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateHoliday godoc
// @Summary Add a holiday or event
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body models.CreateHolidayRequest true "Holiday"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays [post]
func (h *CalendarHandler) CreateHoliday(c *gin.Context) {
	var req models.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	holiday, err := h.holidays.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// DeleteHoliday godoc
// @Summary Delete a holiday
// @Tags Calendar
// @Param id path string true "Holiday ID"
// @Success 204
// @Security BearerAuth
// @Router /holidays/{id} [delete]
func (h *CalendarHandler) DeleteHoliday(c *gin.Context) {
	if err := h.holidays.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Timetable godoc
// @Summary Weekly timetable
// @Description Monday to Saturday; days without an entry have no slots
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable [get]
func (h *CalendarHandler) Timetable(c *gin.Context) {
	week, err := h.timetable.Week(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week, nil)
}

// UpsertTimetableDay godoc
// @Summary Replace one weekday's slots
// @Tags Calendar
// @Accept json
// @Produce json
// @Param day path string true "Weekday name"
// @Param payload body models.UpsertTimetableDayRequest true "Slots"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/{day} [put]
func (h *CalendarHandler) UpsertTimetableDay(c *gin.Context) {
	var req models.UpsertTimetableDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	req.Day = c.Param("day")
	day, err := h.timetable.UpsertDay(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// DeleteTimetableDay godoc
// @Summary Clear one weekday
// @Tags Calendar
// @Param day path string true "Weekday name"
// @Success 204
// @Security BearerAuth
// @Router /timetable/{day} [delete]
func (h *CalendarHandler) DeleteTimetableDay(c *gin.Context) {
	if err := h.timetable.DeleteDay(c.Request.Context(), c.Param("day")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ComputeMonthlyStats godoc
// @Summary Compute working days and classes for a month
// @Description Defaults to the current month in the configured timezone
// @Tags Calendar
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /monthly-stats/compute [get]
func (h *CalendarHandler) ComputeMonthlyStats(c *gin.Context) {
	year, err := intQuery(c, "year", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	month, err := intQuery(c, "month", 0)
	if err != nil {
		response.Error(c, err)
		return
	}

	var stats *dto.MonthlyStatsResponse
	if year == 0 && month == 0 {
		stats, err = h.monthly.ComputeCurrent(c.Request.Context())
	} else {
		stats, err = h.monthly.Compute(c.Request.Context(), year, month)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ResponseMeta(c))
}

// ListMonthlyStats godoc
// @Summary Saved monthly statistics
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /monthly-stats [get]
func (h *CalendarHandler) ListMonthlyStats(c *gin.Context) {
	stats, err := h.monthly.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

type saveComputedRequest struct {
	Year  int     `json:"year" binding:"required"`
	Month int     `json:"month" binding:"required"`
	Notes *string `json:"notes"`
}

// SaveMonthlyStats godoc
// @Summary Save a month's statistics
// @Description Stores the given figures, or computes them first when only year and month are sent
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body models.SaveMonthlyStatRequest true "Figures"
// @Param computed query bool false "Compute from year/month instead"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /monthly-stats [post]
func (h *CalendarHandler) SaveMonthlyStats(c *gin.Context) {
	var (
		stat *models.MonthlyStat
		err  error
	)
	if c.Query("computed") == "true" {
		var req saveComputedRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			response.Error(c, appErrors.Wrap(bindErr, appErrors.ErrValidation.Code, http.StatusBadRequest, "year and month are required"))
			return
		}
		stat, err = h.monthly.SaveComputed(c.Request.Context(), req.Year, req.Month, req.Notes)
	} else {
		var req models.SaveMonthlyStatRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			response.Error(c, appErrors.Wrap(bindErr, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid monthly stat payload"))
			return
		}
		stat, err = h.monthly.Save(c.Request.Context(), req)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stat)
}

// DeleteMonthlyStats godoc
// @Summary Delete a saved month
// @Tags Calendar
// @Param id path string true "Monthly stat ID"
// @Success 204
// @Security BearerAuth
// @Router /monthly-stats/{id} [delete]
func (h *CalendarHandler) DeleteMonthlyStats(c *gin.Context) {
	if err := h.monthly.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportMonthlyStats godoc
// @Summary Download saved monthly statistics
// @Tags Calendar
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /monthly-stats/export [get]
func (h *CalendarHandler) ExportMonthlyStats(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.ExportMonthlyStats(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeFile(c, file)
}
