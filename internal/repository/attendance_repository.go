package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classsync/classsync-api/internal/models"
)

const counterColumns = "id, student_id, subject, total_classes, attended_classes, created_at, updated_at"

// incrementCounterQuery bumps an existing counter in place or seeds a new one.
// Concurrent sessions for the same (student, subject) serialise on the row lock.
const incrementCounterQuery = `INSERT INTO attendance_counters (id, student_id, subject, total_classes, attended_classes, created_at, updated_at)
VALUES ($1, $2, $3, 1, $4, $5, $5)
ON CONFLICT (student_id, subject)
DO UPDATE SET total_classes = attendance_counters.total_classes + 1,
              attended_classes = attendance_counters.attended_classes + EXCLUDED.attended_classes,
              updated_at = EXCLUDED.updated_at`

// AttendanceRepository persists per-student, per-subject attendance counters.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindBySubjectAndStudents batch-reads the counters of a subject for the given students.
func (r *AttendanceRepository) FindBySubjectAndStudents(ctx context.Context, subject string, studentIDs []string) ([]models.AttendanceCounter, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := "SELECT " + counterColumns + " FROM attendance_counters WHERE subject = $1 AND student_id = ANY($2)"
	var counters []models.AttendanceCounter
	if err := r.db.SelectContext(ctx, &counters, query, subject, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("find attendance counters: %w", err)
	}
	return counters, nil
}

// ApplyIncrements records the session and applies every increment inside one
// transaction. With onePerDay it returns ErrDuplicate when the subject already
// has a session on the same date; concurrent callers for one subject and date
// are serialised on a transaction-scoped advisory lock.
func (r *AttendanceRepository) ApplyIncrements(ctx context.Context, session *models.AttendanceSession, increments []models.CounterIncrement, onePerDay bool) error {
	if len(increments) == 0 {
		return nil
	}
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if onePerDay {
		lockKey := "attendance_session:" + session.Subject + ":" + session.SessionDate.Format(time.DateOnly)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("lock attendance session: %w", err)
		}
		var exists bool
		const existsQuery = `SELECT EXISTS (SELECT 1 FROM attendance_sessions WHERE subject = $1 AND session_date = $2)`
		if err := tx.GetContext(ctx, &exists, existsQuery, session.Subject, session.SessionDate); err != nil {
			return fmt.Errorf("check attendance session: %w", err)
		}
		if exists {
			return ErrDuplicate
		}
	}

	const sessionQuery = `INSERT INTO attendance_sessions (id, subject, session_date, marked_by, present_count, absent_count, created_at)
VALUES (:id, :subject, :session_date, :marked_by, :present_count, :absent_count, :created_at)`
	if _, err := tx.NamedExecContext(ctx, sessionQuery, session); err != nil {
		return fmt.Errorf("insert attendance session: %w", err)
	}

	for _, inc := range increments {
		if _, err := tx.ExecContext(ctx, incrementCounterQuery, uuid.NewString(), inc.StudentID, inc.Subject, inc.Attended, now); err != nil {
			return fmt.Errorf("increment attendance counter for %s: %w", inc.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	committed = true
	return nil
}

// ListByStudent returns every counter for a student ordered by subject.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceCounter, error) {
	query := "SELECT " + counterColumns + " FROM attendance_counters WHERE student_id = $1 ORDER BY subject ASC"
	var counters []models.AttendanceCounter
	if err := r.db.SelectContext(ctx, &counters, query, studentID); err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	return counters, nil
}

// ListBySubject returns every counter for a subject joined with the student's identity.
func (r *AttendanceRepository) ListBySubject(ctx context.Context, subject string) ([]models.AttendanceCounterRecord, error) {
	const query = `SELECT ac.id, ac.student_id, ac.subject, ac.total_classes, ac.attended_classes, ac.created_at, ac.updated_at,
       COALESCE(u.roll_number, '') AS roll_number, COALESCE(u.full_name, '') AS student_name
FROM attendance_counters ac
LEFT JOIN users u ON u.id = ac.student_id
WHERE ac.subject = $1
ORDER BY roll_number ASC`
	var rows []models.AttendanceCounterRecord
	if err := r.db.SelectContext(ctx, &rows, query, subject); err != nil {
		return nil, fmt.Errorf("list attendance by subject: %w", err)
	}
	return rows, nil
}

// GetByID fetches a counter.
func (r *AttendanceRepository) GetByID(ctx context.Context, id string) (*models.AttendanceCounter, error) {
	query := "SELECT " + counterColumns + " FROM attendance_counters WHERE id = $1"
	var counter models.AttendanceCounter
	if err := r.db.GetContext(ctx, &counter, query, id); err != nil {
		return nil, err
	}
	return &counter, nil
}

// Delete removes a counter. It returns sql.ErrNoRows when nothing matched.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM attendance_counters WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete attendance counter: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListSessions returns marking history, newest first. An empty subject lists all subjects.
func (r *AttendanceRepository) ListSessions(ctx context.Context, subject string, limit int) ([]models.AttendanceSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args := []interface{}{}
	where := ""
	if subject != "" {
		where = "WHERE subject = $1"
		args = append(args, subject)
	}
	query := fmt.Sprintf(`SELECT id, subject, session_date, marked_by, present_count, absent_count, created_at
FROM attendance_sessions %s ORDER BY session_date DESC, created_at DESC LIMIT %d`, where, limit)
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance sessions: %w", err)
	}
	return sessions, nil
}
