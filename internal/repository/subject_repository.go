package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classsync/classsync-api/internal/models"
)

// ErrDuplicate reports a write that would duplicate an existing record.
var ErrDuplicate = errors.New("duplicate record")

const subjectColumns = `id, name, code, created_at`

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// SubjectRepository stores the subject registry.
type SubjectRepository struct {
	db *sqlx.DB
}

func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects by name. A non-empty query filters on name or code.
func (r *SubjectRepository) List(ctx context.Context, query string) ([]models.Subject, error) {
	subjects := []models.Subject{}
	var err error
	if query == "" {
		err = r.db.SelectContext(ctx, &subjects, `SELECT `+subjectColumns+` FROM subjects ORDER BY name`)
	} else {
		err = r.db.SelectContext(ctx, &subjects,
			`SELECT `+subjectColumns+` FROM subjects WHERE name ILIKE $1 OR code ILIKE $1 ORDER BY name`, "%"+query+"%")
	}
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns sql.ErrNoRows for an unknown id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	return r.findOne(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)
}

// FindByName matches case-insensitively.
func (r *SubjectRepository) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	return r.findOne(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE LOWER(name) = LOWER($1)`, name)
}

func (r *SubjectRepository) findOne(ctx context.Context, query string, arg string) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// Create inserts a subject, assigning an id when missing. A clash on the name
// or code index is reported as ErrDuplicate.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO subjects (id, name, code, created_at) VALUES (:id, :name, :code, :created_at)`, subject)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("insert subject %q: %w", subject.Name, err)
	}
}

// UpdateCode sets or clears the short code.
func (r *SubjectRepository) UpdateCode(ctx context.Context, id string, code *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subjects SET code = $2 WHERE id = $1`, id, code)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update subject code: %w", err)
	}
	return expectAffected(res)
}

// Delete returns sql.ErrNoRows when nothing matched.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
