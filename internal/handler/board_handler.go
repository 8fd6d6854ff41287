package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classsync/classsync-api/internal/middleware"
	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
	"github.com/classsync/classsync-api/pkg/response"
)

type noticeService interface {
	List(ctx context.Context, page, size int) ([]models.Notice, *models.Pagination, error)
	Create(ctx context.Context, req models.CreateNoticeRequest, authorID string) (*models.Notice, error)
	Delete(ctx context.Context, id string) error
}

type pollService interface {
	List(ctx context.Context, userID string) ([]models.Poll, error)
	Create(ctx context.Context, req models.CreatePollRequest, authorID string) (*models.Poll, error)
	Vote(ctx context.Context, pollID, userID string, req models.VotePollRequest) (*models.Poll, error)
	SetClosed(ctx context.Context, id string, closed bool) error
	Delete(ctx context.Context, id string) error
}

type assignmentService interface {
	List(ctx context.Context, subject string, upcomingOnly bool) ([]models.Assignment, error)
	Create(ctx context.Context, req models.CreateAssignmentRequest, authorID string) (*models.Assignment, error)
	Delete(ctx context.Context, id string) error
}

// BoardHandler serves the class board: notices, polls and assignments.
type BoardHandler struct {
	notices     noticeService
	polls       pollService
	assignments assignmentService
}

// NewBoardHandler constructs the board handler.
func NewBoardHandler(notices noticeService, polls pollService, assignments assignmentService) *BoardHandler {
	return &BoardHandler{notices: notices, polls: polls, assignments: assignments}
}

// ListNotices godoc
// @Summary List notices
// @Tags Board
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notices [get]
func (h *BoardHandler) ListNotices(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	size, err := intQuery(c, "page_size", 20)
	if err != nil {
		response.Error(c, err)
		return
	}
	notices, pagination, err := h.notices.List(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notices, pagination, middleware.ResponseMeta(c))
}

// CreateNotice godoc
// @Summary Post a notice
// @Tags Board
// @Accept json
// @Produce json
// @Param payload body models.CreateNoticeRequest true "Notice"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /notices [post]
func (h *BoardHandler) CreateNotice(c *gin.Context) {
	var req models.CreateNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notice payload"))
		return
	}
	notice, err := h.notices.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, notice)
}

// DeleteNotice godoc
// @Summary Delete a notice
// @Tags Board
// @Param id path string true "Notice ID"
// @Success 204
// @Security BearerAuth
// @Router /notices/{id} [delete]
func (h *BoardHandler) DeleteNotice(c *gin.Context) {
	if err := h.notices.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListPolls godoc
// @Summary List polls with the caller's vote
// @Tags Board
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /polls [get]
func (h *BoardHandler) ListPolls(c *gin.Context) {
	polls, err := h.polls.List(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, polls, nil)
}

// CreatePoll godoc
// @Summary Open a poll
// @Tags Board
// @Accept json
// @Produce json
// @Param payload body models.CreatePollRequest true "Poll"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /polls [post]
func (h *BoardHandler) CreatePoll(c *gin.Context) {
	var req models.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid poll payload"))
		return
	}
	poll, err := h.polls.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, poll)
}

// Vote godoc
// @Summary Vote on a poll
// @Description Each user may vote once per open poll
// @Tags Board
// @Accept json
// @Produce json
// @Param id path string true "Poll ID"
// @Param payload body models.VotePollRequest true "Vote"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /polls/{id}/vote [post]
func (h *BoardHandler) Vote(c *gin.Context) {
	var req models.VotePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid vote payload"))
		return
	}
	poll, err := h.polls.Vote(c.Request.Context(), c.Param("id"), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, poll, nil)
}

// SetPollClosed godoc
// @Summary Close or reopen a poll
// @Tags Board
// @Param id path string true "Poll ID"
// @Param closed query bool true "Closed flag"
// @Success 204
// @Security BearerAuth
// @Router /polls/{id}/status [put]
func (h *BoardHandler) SetPollClosed(c *gin.Context) {
	closed, err := strconv.ParseBool(c.Query("closed"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "closed must be true or false"))
		return
	}
	if err := h.polls.SetClosed(c.Request.Context(), c.Param("id"), closed); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeletePoll godoc
// @Summary Delete a poll
// @Tags Board
// @Param id path string true "Poll ID"
// @Success 204
// @Security BearerAuth
// @Router /polls/{id} [delete]
func (h *BoardHandler) DeletePoll(c *gin.Context) {
	if err := h.polls.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAssignments godoc
// @Summary List assignments
// @Tags Board
// @Produce json
// @Param subject query string false "Subject filter"
// @Param upcoming query bool false "Only assignments due today or later"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [get]
func (h *BoardHandler) ListAssignments(c *gin.Context) {
	upcoming, _ := strconv.ParseBool(c.Query("upcoming"))
	items, err := h.assignments.List(c.Request.Context(), c.Query("subject"), upcoming)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateAssignment godoc
// @Summary Post an assignment
// @Tags Board
// @Accept json
// @Produce json
// @Param payload body models.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [post]
func (h *BoardHandler) CreateAssignment(c *gin.Context) {
	var req models.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	item, err := h.assignments.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// DeleteAssignment godoc
// @Summary Delete an assignment
// @Tags Board
// @Param id path string true "Assignment ID"
// @Success 204
// @Security BearerAuth
// @Router /assignments/{id} [delete]
func (h *BoardHandler) DeleteAssignment(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
