package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classsync/classsync-api/internal/models"
)

const userColumns = "id, email, password_hash, full_name, roll_number, role, active, last_login, created_at, updated_at"

// UserRepository stores accounts. It embeds the audit trail so account
// services can record what they change through one dependency.
type UserRepository struct {
	db *sqlx.DB
	*AuditRepository
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, AuditRepository: NewAuditRepository(db)}
}

func (r *UserRepository) findUser(ctx context.Context, where string, arg string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// FindByEmail matches case-insensitively. Unknown emails yield sql.ErrNoRows.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, "LOWER(email) = LOWER($1)", email)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, "id = $1", id)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// userWhere accumulates positional predicates for the users table.
type userWhere struct {
	clauses []string
	args    []interface{}
}

func (w *userWhere) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(format, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *userWhere) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// List returns one page of users together with the unpaged total. The filter
// must already be normalised.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var where userWhere
	if filter.Role != nil {
		where.add("role = ?", *filter.Role)
	}
	if filter.Active != nil {
		where.add("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		where.add("(email ILIKE ? OR full_name ILIKE ? OR roll_number ILIKE ?)", "%"+filter.Search+"%")
	}

	sort := filter.Sort
	if !sort.Valid() {
		sort = models.SortByCreated
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"+where.sql(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	users := []models.User{}
	if total == 0 {
		return users, 0, nil
	}
	query := fmt.Sprintf("SELECT %s FROM users%s ORDER BY %s %s, id LIMIT %d OFFSET %d",
		userColumns, where.sql(), sort, direction, filter.PageSize, filter.Offset())
	if err := r.db.SelectContext(ctx, &users, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// CountActiveAdmins counts administrators able to sign in.
func (r *UserRepository) CountActiveAdmins(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE role = 'ADMIN' AND active`); err != nil {
		return 0, fmt.Errorf("count active admins: %w", err)
	}
	return n, nil
}

// ListStudents returns every active student ordered by roll number.
func (r *UserRepository) ListStudents(ctx context.Context) ([]models.StudentRef, error) {
	const query = `SELECT id, roll_number, full_name, email FROM users
WHERE role = 'STUDENT' AND active = TRUE AND roll_number IS NOT NULL
ORDER BY roll_number ASC`
	var students []models.StudentRef
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindStudentsByIDs returns the students among ids. Unknown ids are silently absent from the result.
func (r *UserRepository) FindStudentsByIDs(ctx context.Context, ids []string) ([]models.StudentRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, COALESCE(roll_number, '') AS roll_number, full_name, email FROM users
WHERE role = 'STUDENT' AND id = ANY($1)`
	var students []models.StudentRef
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find students by ids: %w", err)
	}
	return students, nil
}

// Create inserts a new user and returns the stored record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	prepareUser(user)
	if _, err := r.db.NamedExecContext(ctx, insertUserQuery, user); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// CreateStudent inserts a student and claims the allow-list entry in one transaction.
// It returns sql.ErrNoRows when the roll number is missing from the allow list or already claimed.
func (r *UserRepository) CreateStudent(ctx context.Context, user *models.User) error {
	if user.RollNumber == nil {
		return fmt.Errorf("create student: roll number required")
	}
	prepareUser(user)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student tx: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertUserQuery, user); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create student: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE allowed_students SET claimed_by = $1 WHERE roll_number = $2 AND claimed_by IS NULL`, user.ID, *user.RollNumber)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("claim allowed student: %w", err)
	}
	if err := expectAffected(res); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create student tx: %w", err)
	}
	return nil
}

// Update writes the name and active flag. A zero UpdatedAt is stamped now.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE users SET full_name = :full_name, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectAffected(res)
}

const insertUserQuery = `INSERT INTO users (id, email, password_hash, full_name, roll_number, role, active, created_at, updated_at)
VALUES (:id, :email, :password_hash, :full_name, :roll_number, :role, :active, :created_at, :updated_at)`

func prepareUser(user *models.User) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
}
