package mailer

import (
	"context"
	"net/mail"
	"sync/atomic"

	"go.uber.org/zap"
)

// Message is a single outbound email. Recipients are delivered as BCC-style individual personalizations.
type Message struct {
	To       []mail.Address
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes a summary line per message instead of delivering it.
// It keeps only a count, never the messages.
type LogSender struct {
	logger     *zap.Logger
	suppressed atomic.Int64
}

// NewLogSender builds a sender suitable for development environments.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs a summary line and counts the message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.suppressed.Add(1)
	s.logger.Info("email suppressed",
		zap.String("subject", msg.Subject),
		zap.Int("recipients", len(msg.To)),
	)
	return nil
}

// Suppressed reports how many messages Send has swallowed.
func (s *LogSender) Suppressed() int64 {
	return s.suppressed.Load()
}
