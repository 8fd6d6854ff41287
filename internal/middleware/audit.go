package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/logger"
	"github.com/classsync/classsync-api/pkg/middleware/requestid"
)

// AuditWriter persists audit records.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// resourceParams are the path parameters tried, in order, for the audited
// resource id.
var resourceParams = []string{"id", "key", "subject", "day"}

type auditRequest struct {
	Method    string `json:"method"`
	Route     string `json:"route"`
	Status    int    `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	RequestID string `json:"request_id,omitempty"`
}

// Audit writes one audit row for every request that completes below 400.
// The write outlives client cancellation; a failed write is logged only.
func Audit(writer AuditWriter, action, resource string, fallback *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if writer == nil || c.IsAborted() || c.Writer.Status() >= 400 {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if claims, ok := Claims(c); ok {
			entry.UserID = &claims.UserID
		}
		for _, name := range resourceParams {
			if v := c.Param(name); v != "" {
				entry.ResourceID = &v
				break
			}
		}
		entry.NewValues, _ = json.Marshal(auditRequest{
			Method:    c.Request.Method,
			Route:     c.FullPath(),
			Status:    c.Writer.Status(),
			LatencyMs: time.Since(start).Milliseconds(),
			RequestID: requestid.Value(c),
		})

		ctx := context.WithoutCancel(c.Request.Context())
		if err := writer.CreateAuditLog(ctx, entry); err != nil {
			logger.FromContext(ctx, fallback).Warn("audit write failed",
				zap.String("action", action), zap.String("resource", resource), zap.Error(err))
		}
	}
}
