package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/service"
	"github.com/classsync/classsync-api/pkg/response"
)

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// AuditHandler serves the audit trail.
type AuditHandler struct {
	audit auditLister
	loc   *time.Location
}

// NewAuditHandler reads bare dates in loc.
func NewAuditHandler(audit auditLister, loc *time.Location) *AuditHandler {
	return &AuditHandler{audit: audit, loc: loc}
}

// List godoc
// @Summary Audit trail
// @Tags System
// @Produce json
// @Param user_id query string false "Actor"
// @Param action query string false "Action, e.g. DELETE or TOKEN_REUSE"
// @Param resource query string false "Resource, e.g. subject"
// @Param since query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Param until query string false "RFC3339 or YYYY-MM-DD, exclusive"
// @Param limit query int false "Max rows (default 100, cap 500)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := service.ParseAuditQuery(service.AuditQuery{
		UserID:   c.Query("user_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		Since:    c.Query("since"),
		Until:    c.Query("until"),
		Limit:    limit,
	}, h.loc)
	if err != nil {
		response.Error(c, err)
		return
	}
	logs, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
