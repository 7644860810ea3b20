package service

import (
	"context"

	"github.com/pydaily/lessonbot/internal/application/cycle"
	"github.com/pydaily/lessonbot/internal/infrastructure/external/mail"
)

// MailSender adapts the mail.Dispatcher to the cycle.Sender interface.
type MailSender struct {
	dispatcher *mail.Dispatcher
}

func NewMailSender(dispatcher *mail.Dispatcher) *MailSender {
	return &MailSender{dispatcher: dispatcher}
}

func (s *MailSender) Send(ctx context.Context, recipients []cycle.Recipient, subject, body string) cycle.Delivery {
	to := make([]mail.Recipient, 0, len(recipients))
	for _, r := range recipients {
		to = append(to, mail.Recipient{Email: r.Email, Name: r.Name})
	}

	res := s.dispatcher.Send(ctx, to, subject, body)

	d := cycle.Delivery{
		Delivered: res.Delivered,
		Skipped:   res.Skipped,
		Err:       res.Err,
	}
	for _, f := range res.Failed {
		d.Failed = append(d.Failed, cycle.FailedRecipient{Email: f.Email, Reason: f.Reason})
	}
	return d
}

// TestConnection opens and closes one transport session.
func (s *MailSender) TestConnection(ctx context.Context) error {
	return s.dispatcher.TestConnection(ctx)
}
