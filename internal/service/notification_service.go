package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/jobs"
	"github.com/classsync/classsync-api/pkg/mailer"
)

// NotificationKind labels what triggered an email.
type NotificationKind string

const (
	NotificationNotice     NotificationKind = "notice"
	NotificationPoll       NotificationKind = "poll"
	NotificationResource   NotificationKind = "resource"
	NotificationAssignment NotificationKind = "assignment"
	NotificationTimetable  NotificationKind = "timetable"
)

// Notification is an announcement fanned out to every active student.
type Notification struct {
	Kind    NotificationKind
	Subject string
	Body    string
}

// Notifier accepts notifications for asynchronous delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type recipientDirectory interface {
	ListStudents(ctx context.Context) ([]models.StudentRef, error)
}

type settingsReader interface {
	Get(ctx context.Context, key string) (*models.Configuration, error)
}

// NotificationOptions configures the dispatcher.
type NotificationOptions struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService queues notifications and emails them from background workers.
type NotificationService struct {
	sender     mailer.Sender
	recipients recipientDirectory
	settings   settingsReader
	metrics    *MetricsService
	logger     *zap.Logger
	enabled    bool
	queue      *jobs.Pool[Notification]
}

// NewNotificationService constructs the dispatcher. Call Start before Notify.
func NewNotificationService(sender mailer.Sender, recipients recipientDirectory, settings settingsReader, metrics *MetricsService, opts NotificationOptions, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = mailer.NewLogSender(logger)
	}
	svc := &NotificationService{
		sender:     sender,
		recipients: recipients,
		settings:   settings,
		metrics:    metrics,
		logger:     logger,
		enabled:    opts.Enabled,
	}
	svc.queue = jobs.NewPool("notifications", svc.deliver, jobs.Config[Notification]{
		Workers: opts.Workers,
		Retries: opts.MaxRetries,
		Backoff: opts.RetryDelay,
		Logger:  logger,
		OnGiveUp: func(task jobs.Task[Notification], err error) {
			metrics.RecordNotification(task.Kind, false)
		},
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop finishes queued deliveries, giving up after ten seconds.
func (s *NotificationService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.queue.Shutdown(ctx); err != nil {
		s.logger.Warn("notifications dropped on shutdown", zap.Int("pending", s.queue.Len()), zap.Error(err))
	}
}

// Notify enqueues n. Failures are logged and never surface to the caller.
func (s *NotificationService) Notify(ctx context.Context, n Notification) {
	if s == nil || !s.enabled {
		return
	}
	task := jobs.Task[Notification]{ID: uuid.NewString(), Kind: string(n.Kind), Payload: n}
	if err := s.queue.Submit(task); err != nil {
		s.logger.Warn("notification not queued", zap.String("kind", string(n.Kind)), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, task jobs.Task[Notification]) error {
	n := task.Payload
	if n.Kind == NotificationNotice && !s.noticeEmailsEnabled(ctx) {
		s.logger.Debug("notice emails disabled", zap.String("task_id", task.ID))
		return nil
	}

	students, err := s.recipients.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	to := make([]mail.Address, 0, len(students))
	for _, st := range students {
		if strings.TrimSpace(st.Email) == "" {
			continue
		}
		to = append(to, mail.Address{Name: st.FullName, Address: st.Email})
	}
	if len(to) == 0 {
		return nil
	}

	msg := mailer.Message{To: to, Subject: n.Subject, TextBody: n.Body}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s notification: %w", n.Kind, err)
	}
	s.metrics.RecordNotification(string(n.Kind), true)
	s.logger.Info("notification sent", zap.String("kind", string(n.Kind)), zap.Int("recipients", len(to)))
	return nil
}

func (s *NotificationService) noticeEmailsEnabled(ctx context.Context) bool {
	if s.settings == nil {
		return true
	}
	cfg, err := s.settings.Get(ctx, models.ConfigKeyNoticeEmails)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to read notification setting", zap.Error(err))
		}
		return true
	}
	return !strings.EqualFold(strings.TrimSpace(cfg.Value), "false")
}
