package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/service"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
	"github.com/classsync/classsync-api/pkg/response"
)

// AllowedStudentHandler manages the registration allow list.
type AllowedStudentHandler struct {
	service *service.AllowedStudentService
}

// NewAllowedStudentHandler constructs the handler.
func NewAllowedStudentHandler(svc *service.AllowedStudentService) *AllowedStudentHandler {
	return &AllowedStudentHandler{service: svc}
}

// List godoc
// @Summary List allowed roll numbers
// @Tags AllowList
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /allowed-students [get]
func (h *AllowedStudentHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Create godoc
// @Summary Add roll numbers to the allow list
// @Tags AllowList
// @Accept json
// @Produce json
// @Param payload body models.CreateAllowedStudentsRequest true "Entries"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /allowed-students [post]
func (h *AllowedStudentHandler) Create(c *gin.Context) {
	var req models.CreateAllowedStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allow list payload"))
		return
	}
	entries, err := h.service.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entries)
}

// Delete godoc
// @Summary Remove an allow list entry
// @Tags AllowList
// @Param id path string true "Entry ID"
// @Success 204
// @Security BearerAuth
// @Router /allowed-students/{id} [delete]
func (h *AllowedStudentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
