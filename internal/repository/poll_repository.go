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

// ErrAlreadyVoted is returned when a user votes twice on the same poll.
var ErrAlreadyVoted = errors.New("already voted")

const uniqueViolation = "23505"

// PollRepository persists polls, options and votes.
type PollRepository struct {
	db *sqlx.DB
}

// NewPollRepository constructs the repository.
func NewPollRepository(db *sqlx.DB) *PollRepository {
	return &PollRepository{db: db}
}

// List returns polls newest first with their options and vote counts.
func (r *PollRepository) List(ctx context.Context) ([]models.Poll, error) {
	const query = `SELECT id, question, closed, created_by, created_at FROM polls ORDER BY created_at DESC`
	var polls []models.Poll
	if err := r.db.SelectContext(ctx, &polls, query); err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	if len(polls) == 0 {
		return polls, nil
	}
	ids := make([]string, len(polls))
	for i := range polls {
		ids[i] = polls[i].ID
	}
	options, err := r.optionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range polls {
		polls[i].Options = options[polls[i].ID]
	}
	return polls, nil
}

// GetByID fetches one poll with its options.
func (r *PollRepository) GetByID(ctx context.Context, id string) (*models.Poll, error) {
	const query = `SELECT id, question, closed, created_by, created_at FROM polls WHERE id = $1`
	var poll models.Poll
	if err := r.db.GetContext(ctx, &poll, query, id); err != nil {
		return nil, err
	}
	options, err := r.optionsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	poll.Options = options[id]
	return &poll, nil
}

// VotesByUser maps poll id to the option position the user chose.
func (r *PollRepository) VotesByUser(ctx context.Context, userID string) (map[string]int, error) {
	const query = `SELECT poll_id, position FROM poll_votes WHERE user_id = $1`
	var rows []struct {
		PollID   string `db:"poll_id"`
		Position int    `db:"position"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list poll votes: %w", err)
	}
	votes := make(map[string]int, len(rows))
	for _, row := range rows {
		votes[row.PollID] = row.Position
	}
	return votes, nil
}

// Create inserts a poll and its options in one transaction.
func (r *PollRepository) Create(ctx context.Context, poll *models.Poll) error {
	if poll.ID == "" {
		poll.ID = uuid.NewString()
	}
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create poll tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO polls (id, question, closed, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`,
		poll.ID, poll.Question, poll.Closed, poll.CreatedBy, poll.CreatedAt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create poll: %w", err)
	}
	for i := range poll.Options {
		poll.Options[i].PollID = poll.ID
		poll.Options[i].Position = i
		if _, err := tx.ExecContext(ctx, `INSERT INTO poll_options (poll_id, position, label, votes) VALUES ($1, $2, $3, 0)`,
			poll.ID, i, poll.Options[i].Label); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create poll option: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create poll tx: %w", err)
	}
	return nil
}

// Vote records a user's vote and increments the option count atomically.
// It returns ErrAlreadyVoted when the user has voted on this poll before.
func (r *PollRepository) Vote(ctx context.Context, pollID, userID string, position int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vote tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO poll_votes (poll_id, user_id, position, created_at) VALUES ($1, $2, $3, $4)`,
		pollID, userID, position, time.Now().UTC()); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return ErrAlreadyVoted
		}
		return fmt.Errorf("insert poll vote: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE poll_options SET votes = votes + 1 WHERE poll_id = $1 AND position = $2`, pollID, position); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("increment poll option: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vote tx: %w", err)
	}
	return nil
}

// SetClosed opens or closes a poll. It returns sql.ErrNoRows when the poll does not exist.
func (r *PollRepository) SetClosed(ctx context.Context, id string, closed bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE polls SET closed = $2 WHERE id = $1`, id, closed)
	if err != nil {
		return fmt.Errorf("update poll state: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a poll; options and votes cascade.
func (r *PollRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete poll: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PollRepository) optionsFor(ctx context.Context, pollIDs []string) (map[string][]models.PollOption, error) {
	const query = `SELECT poll_id, position, label, votes FROM poll_options WHERE poll_id = ANY($1) ORDER BY poll_id, position`
	var options []models.PollOption
	if err := r.db.SelectContext(ctx, &options, query, pq.Array(pollIDs)); err != nil {
		return nil, fmt.Errorf("list poll options: %w", err)
	}
	grouped := make(map[string][]models.PollOption, len(pollIDs))
	for _, opt := range options {
		grouped[opt.PollID] = append(grouped[opt.PollID], opt)
	}
	return grouped, nil
}
