package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classsync/classsync-api/internal/dto"
	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/response"
)

type configurationService interface {
	List(ctx context.Context) ([]dto.ConfigurationItem, error)
	Get(ctx context.Context, key string) (*dto.ConfigurationItem, error)
	Update(ctx context.Context, req models.UpdateConfigurationRequest, actorID string) ([]dto.ConfigurationItem, error)
	Reset(ctx context.Context, key, actorID string) (*dto.ConfigurationItem, error)
}

// ConfigurationHandler serves the class settings. Reads are open to every
// signed-in user; writes are admin-only.
type ConfigurationHandler struct {
	service configurationService
}

func NewConfigurationHandler(service configurationService) *ConfigurationHandler {
	return &ConfigurationHandler{service: service}
}

// List godoc
// @Summary List class settings
// @Description Unset keys are reported with their default and isDefault=true
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /configuration [get]
func (h *ConfigurationHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get one class setting
// @Tags Configuration
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /configuration/{key} [get]
func (h *ConfigurationHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Update class settings
// @Description Applies every item or none of them
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body models.UpdateConfigurationRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /configuration [put]
func (h *ConfigurationHandler) Update(c *gin.Context) {
	var req models.UpdateConfigurationRequest
	if !bindJSON(c, &req, "invalid configuration payload") {
		return
	}
	items, err := h.service.Update(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Reset godoc
// @Summary Reset a class setting to its default
// @Tags Configuration
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /configuration/{key} [delete]
func (h *ConfigurationHandler) Reset(c *gin.Context) {
	item, err := h.service.Reset(c.Request.Context(), c.Param("key"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
