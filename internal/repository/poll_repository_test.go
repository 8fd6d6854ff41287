package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollRepositoryVoteIncrementsOption(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPollRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO poll_votes").WithArgs("p1", "u1", 1, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE poll_options SET votes = votes + 1 WHERE poll_id = $1 AND position = $2")).
		WithArgs("p1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Vote(context.Background(), "p1", "u1", 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPollRepositoryVoteTwice(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPollRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO poll_votes").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Vote(context.Background(), "p1", "u1", 0)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPollRepositoryListAttachesOptions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPollRepository(db)

	mock.ExpectQuery("FROM polls ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "question", "closed", "created_by", "created_at"}).
			AddRow("p1", "Extra class on Saturday?", false, "admin", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM poll_options WHERE poll_id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"poll_id", "position", "label", "votes"}).
			AddRow("p1", 0, "Yes", 12).
			AddRow("p1", 1, "No", 3))

	polls, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, polls, 1)
	require.Len(t, polls[0].Options, 2)
	assert.Equal(t, 12, polls[0].Options[0].Votes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
