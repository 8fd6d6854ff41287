package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classsync/classsync-api/internal/models"
)

const resourceColumns = "id, title, subject, kind, url, storage_path, file_name, mime_type, size_bytes, created_by, created_at"

// ResourceRepository persists study resources.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs the repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// List returns resources newest first, optionally for a single subject.
func (r *ResourceRepository) List(ctx context.Context, subject string) ([]models.Resource, error) {
	query := "SELECT " + resourceColumns + " FROM resources"
	args := []interface{}{}
	if subject != "" {
		query += " WHERE subject = $1"
		args = append(args, subject)
	}
	query += " ORDER BY created_at DESC"
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// GetByID fetches a resource.
func (r *ResourceRepository) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	query := "SELECT " + resourceColumns + " FROM resources WHERE id = $1"
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		return nil, err
	}
	return &resource, nil
}

// Create inserts a resource.
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO resources (id, title, subject, kind, url, storage_path, file_name, mime_type, size_bytes, created_by, created_at)
VALUES (:id, :title, :subject, :kind, :url, :storage_path, :file_name, :mime_type, :size_bytes, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resource); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// Delete removes a resource row. It returns sql.ErrNoRows when nothing matched.
func (r *ResourceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
