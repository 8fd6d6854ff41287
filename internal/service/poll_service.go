package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/repository"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type pollRepository interface {
	List(ctx context.Context) ([]models.Poll, error)
	GetByID(ctx context.Context, id string) (*models.Poll, error)
	VotesByUser(ctx context.Context, userID string) (map[string]int, error)
	Create(ctx context.Context, poll *models.Poll) error
	Vote(ctx context.Context, pollID, userID string, position int) error
	SetClosed(ctx context.Context, id string, closed bool) error
	Delete(ctx context.Context, id string) error
}

// PollService manages class polls. Each user may vote once per poll.
type PollService struct {
	repo      pollRepository
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPollService constructs the service.
func NewPollService(repo pollRepository, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *PollService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// List returns every poll, annotated with the caller's vote.
func (s *PollService) List(ctx context.Context, userID string) ([]models.Poll, error) {
	polls, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list polls")
	}
	if polls == nil {
		return []models.Poll{}, nil
	}
	votes, err := s.repo.VotesByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load votes")
	}
	for i := range polls {
		if position, ok := votes[polls[i].ID]; ok {
			p := position
			polls[i].MyVote = &p
		}
	}
	return polls, nil
}

// Create opens a poll with the given options.
func (s *PollService) Create(ctx context.Context, req models.CreatePollRequest, authorID string) (*models.Poll, error) {
	req.Question = strings.TrimSpace(req.Question)
	for i := range req.Options {
		req.Options[i] = strings.TrimSpace(req.Options[i])
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid poll payload")
	}

	poll := &models.Poll{Question: req.Question, CreatedBy: authorID}
	for i, label := range req.Options {
		poll.Options = append(poll.Options, models.PollOption{Position: i, Label: label})
	}
	if err := s.repo.Create(ctx, poll); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create poll")
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, Notification{Kind: NotificationPoll, Subject: "New poll", Body: poll.Question})
	}
	return poll, nil
}

// Vote records the caller's choice and returns the refreshed poll.
func (s *PollService) Vote(ctx context.Context, pollID, userID string, req models.VotePollRequest) (*models.Poll, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vote payload")
	}
	poll, err := s.get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Closed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "poll is closed")
	}
	position := *req.Position
	if position >= len(poll.Options) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("option %d does not exist", position))
	}

	if err := s.repo.Vote(ctx, pollID, userID, position); err != nil {
		if errors.Is(err, repository.ErrAlreadyVoted) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "you have already voted on this poll")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record vote")
	}

	updated, err := s.get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	updated.MyVote = &position
	return updated, nil
}

// SetClosed opens or closes voting on a poll.
func (s *PollService) SetClosed(ctx context.Context, id string, closed bool) error {
	if err := s.repo.SetClosed(ctx, id, closed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "poll not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update poll")
	}
	return nil
}

// Delete removes a poll with its votes.
func (s *PollService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "poll not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete poll")
	}
	return nil
}

func (s *PollService) get(ctx context.Context, id string) (*models.Poll, error) {
	poll, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "poll not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load poll")
	}
	return poll, nil
}
