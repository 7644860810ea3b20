package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pydaily/lessonbot/pkg/logger"
	"github.com/pydaily/lessonbot/pkg/retry"
)

func newTestDispatcher(t *testing.T, transport Transport, mutate func(*DispatcherConfig)) *Dispatcher {
	t.Helper()
	cfg := DispatcherConfig{
		Transport:      transport,
		From:           "PyDaily <bot@pydaily.dev>",
		SendTimeout:    time.Second,
		SessionRetrier: retry.New(retry.WithMaxAttempts(2), retry.WithInitialDelay(time.Millisecond)),
		Logger:         logger.Discard(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewDispatcher(cfg)
}

// faultyTransport is a console transport with injectable failures.
type faultyTransport struct {
	*ConsoleTransport
	failFor map[string]error
	openErr error
}

func newFaultyTransport() *faultyTransport {
	return &faultyTransport{ConsoleTransport: NewConsoleTransport(&bytes.Buffer{})}
}

func (t *faultyTransport) Open(ctx context.Context) (Session, error) {
	if t.openErr != nil {
		return nil, t.openErr
	}
	if _, err := t.ConsoleTransport.Open(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *faultyTransport) Send(ctx context.Context, msg Message) error {
	if err := t.failFor[msg.To]; err != nil {
		return err
	}
	return t.ConsoleTransport.Send(ctx, msg)
}

var students = []Recipient{
	{Email: "a@x.com", Name: "Ada"},
	{Email: "b@x.com", Name: "Bob"},
}

func TestDispatcher_PersonalizesEachCopy(t *testing.T) {
	transport := NewConsoleTransport(&bytes.Buffer{})
	d := newTestDispatcher(t, transport, nil)

	res := d.Send(context.Background(), students, "🐍 PyDaily: Day 1", "<p>Hi {{name}} ({{email}})</p>")
	require.True(t, res.OK())
	assert.Equal(t, "Emails sent successfully!", res.Message())
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, res.Delivered)

	sent := transport.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "a@x.com", sent[0].To)
	assert.Equal(t, "<p>Hi Ada (a@x.com)</p>", sent[0].HTMLBody)
	assert.Equal(t, "<p>Hi Bob (b@x.com)</p>", sent[1].HTMLBody)
	assert.Equal(t, "🐍 PyDaily: Day 1", sent[1].Subject)
}

func TestDispatcher_CollectsRecipientFailures(t *testing.T) {
	transport := newFaultyTransport()
	transport.failFor = map[string]error{"b@x.com": errors.New("mailbox full")}
	d := newTestDispatcher(t, transport, nil)

	res := d.Send(context.Background(), students, "s", "b")
	assert.False(t, res.OK())
	assert.Equal(t, []string{"a@x.com"}, res.Delivered)
	assert.Equal(t, []Failure{{Email: "b@x.com", Reason: "mailbox full"}}, res.Failed)
	assert.Len(t, transport.Sent(), 1)
	assert.Equal(t, "Partial failure: b@x.com: mailbox full", res.Message())
}

func TestDispatcher_SessionFailureFailsEveryone(t *testing.T) {
	transport := newFaultyTransport()
	transport.openErr = errors.New("auth rejected")
	d := newTestDispatcher(t, transport, nil)

	res := d.Send(context.Background(), students, "s", "b")
	require.Error(t, res.Err)
	assert.Contains(t, res.Message(), "auth rejected")
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "b@x.com", res.Failed[1].Email)
	assert.Empty(t, res.Delivered)
	assert.Error(t, d.TestConnection(context.Background()))
}

func TestDispatcher_SandboxRedirectsToAdmin(t *testing.T) {
	transport := NewConsoleTransport(&bytes.Buffer{})
	d := newTestDispatcher(t, transport, func(c *DispatcherConfig) {
		c.SandboxMode = true
		c.AdminEmail = "admin@pydaily.dev"
	})

	res := d.Send(context.Background(), students, "🌙 PyDaily Check-in: Day 2", "hi {{name}}")
	require.True(t, res.OK())
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, res.Delivered)

	for _, m := range transport.Sent() {
		assert.Equal(t, "admin@pydaily.dev", m.To)
		assert.Equal(t, "[TEST MODE] 🌙 PyDaily Check-in: Day 2", m.Subject)
	}
}

func TestDispatcher_SandboxWithoutAdminSkips(t *testing.T) {
	transport := NewConsoleTransport(&bytes.Buffer{})
	d := newTestDispatcher(t, transport, func(c *DispatcherConfig) { c.SandboxMode = true })

	res := d.Send(context.Background(), students, "s", "b")
	assert.True(t, res.OK())
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, res.Skipped)
	assert.Empty(t, transport.Sent())
}

func TestDispatcher_NoRecipients(t *testing.T) {
	transport := newFaultyTransport()
	transport.openErr = errors.New("never opened")
	d := newTestDispatcher(t, transport, nil)

	res := d.Send(context.Background(), nil, "s", "b")
	assert.True(t, res.OK())
}

func TestConsoleTransport_WritesMIME(t *testing.T) {
	var out bytes.Buffer
	transport := NewConsoleTransport(&out)
	transport.now = func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }

	session, err := transport.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, session.Send(context.Background(), Message{
		From:     "PyDaily <bot@pydaily.dev>",
		To:       "a@x.com",
		Subject:  "⚡ PyDaily: Mid-Day Boost",
		HTMLBody: "<h2>Boost</h2>",
	}))

	text := out.String()
	assert.Contains(t, text, "From: \"PyDaily\" <bot@pydaily.dev>\r\n")
	assert.Contains(t, text, "To: <a@x.com>\r\n")
	assert.Contains(t, text, "Subject: =?utf-8?q?")
	assert.Contains(t, text, "Content-Type: text/html; charset=\"UTF-8\"")
	assert.Contains(t, text, "<h2>Boost</h2>")

	err = session.Send(context.Background(), Message{From: "bot@pydaily.dev", To: "not-an-address", Subject: "s"})
	assert.Error(t, err)
}

func TestEnvelopeAddress(t *testing.T) {
	assert.Equal(t, "bot@pydaily.dev", envelopeAddress("PyDaily <bot@pydaily.dev>"))
	assert.Equal(t, "a@x.com", envelopeAddress("a@x.com"))
}

func TestSMTPTransport_RequiresCredentials(t *testing.T) {
	transport := NewSMTPTransport(SMTPConfig{})
	assert.Equal(t, "smtp.gmail.com", transport.config.Host)
	assert.Equal(t, 587, transport.config.Port)

	_, err := transport.Open(context.Background())
	assert.Error(t, err)
}
