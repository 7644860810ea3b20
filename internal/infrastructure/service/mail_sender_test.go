package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pydaily/lessonbot/internal/application/cycle"
	"github.com/pydaily/lessonbot/internal/infrastructure/external/mail"
	"github.com/pydaily/lessonbot/pkg/logger"
	"github.com/pydaily/lessonbot/pkg/retry"
)

// failingTransport wraps the console transport with injectable failures.
type failingTransport struct {
	*mail.ConsoleTransport
	failFor map[string]error
	openErr error
}

func (t *failingTransport) Open(ctx context.Context) (mail.Session, error) {
	if t.openErr != nil {
		return nil, t.openErr
	}
	return t, nil
}

func (t *failingTransport) Send(ctx context.Context, msg mail.Message) error {
	if err := t.failFor[msg.To]; err != nil {
		return err
	}
	return t.ConsoleTransport.Send(ctx, msg)
}

func newSender(transport mail.Transport) *MailSender {
	return NewMailSender(mail.NewDispatcher(mail.DispatcherConfig{
		Transport:      transport,
		From:           "bot@pydaily.dev",
		SessionRetrier: retry.New(retry.WithMaxAttempts(1), retry.WithInitialDelay(time.Millisecond)),
		Logger:         logger.Discard(),
	}))
}

func TestMailSender_MapsOutcome(t *testing.T) {
	transport := &failingTransport{
		ConsoleTransport: mail.NewConsoleTransport(&bytes.Buffer{}),
		failFor:          map[string]error{"b@x.com": errors.New("550 unknown user")},
	}

	d := newSender(transport).Send(context.Background(), []cycle.Recipient{
		{Email: "a@x.com", Name: "Ada"},
		{Email: "b@x.com", Name: "Bob"},
	}, "subject", "Hi {{name}}")

	assert.False(t, d.OK())
	assert.Equal(t, []string{"a@x.com"}, d.Delivered)
	require.Len(t, d.Failed, 1)
	assert.Equal(t, cycle.FailedRecipient{Email: "b@x.com", Reason: "550 unknown user"}, d.Failed[0])

	sent := transport.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hi Ada", sent[0].HTMLBody)
}

func TestMailSender_SessionError(t *testing.T) {
	transport := &failingTransport{
		ConsoleTransport: mail.NewConsoleTransport(&bytes.Buffer{}),
		openErr:          errors.New("dial tcp: connection refused"),
	}
	sender := newSender(transport)

	d := sender.Send(context.Background(), []cycle.Recipient{{Email: "a@x.com"}}, "s", "b")
	require.Error(t, d.Err)
	assert.Contains(t, d.Reasons()[0], "connection refused")

	assert.Error(t, sender.TestConnection(context.Background()))
}
