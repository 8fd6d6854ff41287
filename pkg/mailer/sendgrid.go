package mailer

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridSender delivers messages through the SendGrid v3 API.
type SendgridSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	send       func(rest.Request) (*rest.Response, error)
}

// NewSendgridSender constructs a sender using the given API key and from address.
func NewSendgridSender(apiKey string, from mail.Address, appName string) *SendgridSender {
	prefix := ""
	if appName != "" {
		prefix = "[" + appName + "] "
	}
	return &SendgridSender{
		key:        apiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: prefix,
		send:       sendgrid.API,
	}
}

// Send posts the message. Non-2xx responses are returned as errors so callers can retry.
func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := s.send(req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (s *SendgridSender) prepare(msg Message) *sgmail.SGMailV3 {
	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)

	// One personalization per recipient keeps student addresses private.
	for _, to := range msg.To {
		p := sgmail.NewPersonalization()
		p.Subject = s.subjPrefix + msg.Subject
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
		m.AddPersonalizations(p)
	}

	text := msg.TextBody
	if text == "" {
		text = msg.Subject
	}
	m.AddContent(sgmail.NewContent("text/plain", text))
	if msg.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}
	return m
}
