package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/service"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
	"github.com/classsync/classsync-api/pkg/response"
)

type userDirectory interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	ListStudents(ctx context.Context) ([]models.StudentRef, error)
	Get(ctx context.Context, id string) (*models.User, error)
	CreateAdmin(ctx context.Context, req service.CreateAdminRequest, actorID string) (*models.User, error)
	Update(ctx context.Context, id string, req models.UpdateUserRequest, actorID string) (*models.User, error)
}

// UserHandler serves the admin account directory.
type UserHandler struct {
	users userDirectory
}

func NewUserHandler(users userDirectory) *UserHandler {
	return &UserHandler{users: users}
}

// userFilter reads the list query string. Unknown sort columns fall back to
// the service default.
func userFilter(c *gin.Context) (models.UserFilter, error) {
	var filter models.UserFilter
	var err error
	if filter.Page, err = intQuery(c, "page", 1); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intQuery(c, "page_size", 0); err != nil {
		return filter, err
	}
	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(raw)
		if !role.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "role must be ADMIN or STUDENT")
		}
		filter.Role = &role
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "active must be a boolean")
		}
		filter.Active = &active
	}
	filter.Search = c.Query("search")
	filter.Sort = models.UserSort(c.Query("sort_by"))
	filter.Desc = c.Query("sort_order") == "desc"
	return filter, nil
}

// List godoc
// @Summary List users
// @Description Paged user listing with role, active and free-text filters
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param role query string false "ADMIN or STUDENT"
// @Param active query bool false "Active filter"
// @Param search query string false "Email, name or roll number fragment"
// @Param sort_by query string false "created_at, email, full_name or roll_number"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter, err := userFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	users, pagination, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Students godoc
// @Summary List active students by roll number
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *UserHandler) Students(c *gin.Context) {
	students, err := h.users.ListStudents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// CreateAdmin godoc
// @Summary Create an administrator
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.CreateAdminRequest true "Admin"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /users [post]
func (h *UserHandler) CreateAdmin(c *gin.Context) {
	var req service.CreateAdminRequest
	if !bindJSON(c, &req, "invalid user payload") {
		return
	}
	user, err := h.users.CreateAdmin(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Description Rename or (de)activate an account. Deactivation signs the account out everywhere.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body models.UpdateUserRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [patch]
func (h *UserHandler) Update(c *gin.Context) {
	var req models.UpdateUserRequest
	if !bindJSON(c, &req, "invalid update payload") {
		return
	}
	user, err := h.users.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
