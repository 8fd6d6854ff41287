package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/jobs"
	"github.com/classsync/classsync-api/pkg/mailer"
)

type recipientsStub []models.StudentRef

func (r recipientsStub) ListStudents(ctx context.Context) ([]models.StudentRef, error) {
	return r, nil
}

type settingsStub map[string]string

func (s settingsStub) Get(ctx context.Context, key string) (*models.Configuration, error) {
	value, ok := s[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Configuration{Key: key, Value: value}, nil
}

type flakySender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     chan mailer.Message
}

func (f *flakySender) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("smtp unavailable")
	}
	f.sent <- msg
	return nil
}

var twoStudents = recipientsStub{
	{ID: "s1", FullName: "Asha", Email: "asha@example.com"},
	{ID: "s2", FullName: "Ravi", Email: ""},
}

func waitForMessage(t *testing.T, ch <-chan mailer.Message) mailer.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return mailer.Message{}
	}
}

func TestNotificationServiceDeliversToStudentsWithEmail(t *testing.T) {
	sender := &flakySender{sent: make(chan mailer.Message, 1)}
	metrics := NewMetricsService()
	svc := NewNotificationService(sender, twoStudents, settingsStub{}, metrics, NotificationOptions{Enabled: true, Workers: 1}, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(context.Background(), Notification{Kind: NotificationAssignment, Subject: "New assignment", Body: "Lab 3 due Friday"})

	msg := waitForMessage(t, sender.sent)
	require.Len(t, msg.To, 1)
	assert.Equal(t, "asha@example.com", msg.To[0].Address)
	assert.Equal(t, "New assignment", msg.Subject)
}

func TestNotificationServiceRetriesFailedSends(t *testing.T) {
	sender := &flakySender{failures: 1, sent: make(chan mailer.Message, 1)}
	svc := NewNotificationService(sender, twoStudents, nil, nil, NotificationOptions{Enabled: true, Workers: 1, MaxRetries: 2, RetryDelay: 5 * time.Millisecond}, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(context.Background(), Notification{Kind: NotificationPoll, Subject: "Vote", Body: "Pick a date"})

	waitForMessage(t, sender.sent)
	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, 2, sender.calls)
}

func TestNotificationServiceSkipsNoticesWhenDisabled(t *testing.T) {
	sender := mailer.NewLogSender(zap.NewNop())
	svc := NewNotificationService(sender, twoStudents, settingsStub{models.ConfigKeyNoticeEmails: "false"}, nil, NotificationOptions{Enabled: true}, zap.NewNop())

	err := svc.deliver(context.Background(), jobFor(Notification{Kind: NotificationNotice, Subject: "Holiday"}))
	require.NoError(t, err)
	assert.Zero(t, sender.Suppressed())

	err = svc.deliver(context.Background(), jobFor(Notification{Kind: NotificationResource, Subject: "Slides"}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), sender.Suppressed())
}

func TestNotificationServiceDisabledIsNoop(t *testing.T) {
	sender := mailer.NewLogSender(zap.NewNop())
	svc := NewNotificationService(sender, twoStudents, nil, nil, NotificationOptions{Enabled: false}, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(context.Background(), Notification{Kind: NotificationNotice, Subject: "ignored"})
	assert.Zero(t, sender.Suppressed())
}

func jobFor(n Notification) jobs.Task[Notification] {
	return jobs.Task[Notification]{ID: "task-1", Kind: string(n.Kind), Payload: n}
}
