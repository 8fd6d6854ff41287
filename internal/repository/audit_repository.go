package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classsync/classsync-api/internal/models"
)

const maxAuditPage = 500

// AuditRepository appends to and reads the audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog inserts log, filling in its id and timestamp when unset.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("insert audit log %s/%s: %w", log.Resource, log.Action, err)
	}
	return nil
}

// List returns matching rows newest first, capped at maxAuditPage.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	var (
		clauses []string
		args    []interface{}
	)
	where := func(column string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s $%d", column, len(args)))
	}
	if filter.UserID != "" {
		where("user_id =", filter.UserID)
	}
	if filter.Action != "" {
		where("action =", strings.ToUpper(filter.Action))
	}
	if filter.Resource != "" {
		where("resource =", filter.Resource)
	}
	if filter.Since != nil {
		where("created_at >=", *filter.Since)
	}
	if filter.Until != nil {
		where("created_at <", *filter.Until)
	}
	limit := filter.Limit
	if limit <= 0 || limit > maxAuditPage {
		limit = maxAuditPage
	}

	query := `SELECT id, user_id, action, resource, resource_id,
COALESCE(old_values, 'null'::jsonb) AS old_values, COALESCE(new_values, 'null'::jsonb) AS new_values,
COALESCE(ip_address, '') AS ip_address, COALESCE(user_agent, '') AS user_agent, created_at
FROM audit_logs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	logs := []models.AuditLog{}
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
