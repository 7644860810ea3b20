package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pydaily/lessonbot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

const (
	// SandboxSubjectPrefix marks redirected sandbox deliveries.
	SandboxSubjectPrefix = "[TEST MODE] "

	successMessage = "Emails sent successfully!"
)

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// Transport delivers the messages.
	Transport Transport

	// From is the sender address.
	From string

	// SandboxMode redirects every delivery to AdminEmail.
	SandboxMode bool

	// AdminEmail receives sandbox deliveries.
	AdminEmail string

	// SendTimeout bounds each individual send. Zero disables it.
	SendTimeout time.Duration

	// SessionRetrier overrides retry.TransportRetrier for opening sessions.
	SessionRetrier *retry.Retrier

	// Logger for structured logging
	Logger *slog.Logger
}

// Dispatcher sends one rendered body to a list of recipients over a single
// transport session, collecting per-recipient outcomes.
type Dispatcher struct {
	transport   Transport
	from        string
	sandbox     bool
	adminEmail  string
	sendTimeout time.Duration
	retrier     *retry.Retrier
	logger      *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	log := config.Logger.With("component", "mail", "transport", config.Transport.Name())

	retrier := config.SessionRetrier
	if retrier == nil {
		retrier = retry.TransportRetrier(func(attempt int, err error, delay time.Duration) {
			log.Warn("mail session open failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		})
	}

	return &Dispatcher{
		transport:   config.Transport,
		from:        config.From,
		sandbox:     config.SandboxMode,
		adminEmail:  strings.TrimSpace(config.AdminEmail),
		sendTimeout: config.SendTimeout,
		retrier:     retrier,
		logger:      log,
	}
}

// Send delivers subject/body to every recipient, substituting {{name}} and
// {{email}} per recipient. Sends are never retried, so a recipient cannot
// get a duplicate; only opening the session is.
func (d *Dispatcher) Send(ctx context.Context, recipients []Recipient, subject, body string) Result {
	var res Result
	if len(recipients) == 0 {
		return res
	}

	session, err := d.open(ctx)
	if err != nil {
		res.Err = err
		for _, r := range recipients {
			res.Failed = append(res.Failed, Failure{Email: r.Email, Reason: err.Error()})
		}
		d.logger.Error("mail session unavailable", "recipients", len(recipients), "error", err)
		return res
	}
	defer func() {
		if err := session.Close(); err != nil {
			d.logger.Warn("mail session close failed", "error", err)
		}
	}()

	for _, r := range recipients {
		msg := Message{
			From:     d.from,
			To:       r.Email,
			Subject:  personalize(subject, r),
			HTMLBody: personalize(body, r),
		}

		if d.sandbox {
			if d.adminEmail == "" {
				d.logger.Warn("sandbox mode without admin address, skipping", "recipient", r.Email)
				res.Skipped = append(res.Skipped, r.Email)
				continue
			}
			msg.To = d.adminEmail
			msg.Subject = SandboxSubjectPrefix + msg.Subject
		}

		if err := d.sendOne(ctx, session, msg); err != nil {
			d.logger.Warn("mail delivery failed", "recipient", r.Email, "error", err)
			res.Failed = append(res.Failed, Failure{Email: r.Email, Reason: err.Error()})
			continue
		}
		res.Delivered = append(res.Delivered, r.Email)
	}

	d.logger.Info("mail batch finished",
		"delivered", len(res.Delivered),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
		"outcome", res.Message(),
	)
	return res
}

// TestConnection opens and closes a session.
func (d *Dispatcher) TestConnection(ctx context.Context) error {
	session, err := d.open(ctx)
	if err != nil {
		return err
	}
	return session.Close()
}

func (d *Dispatcher) open(ctx context.Context) (Session, error) {
	session, err := retry.DoWithData(ctx, d.retrier, func(ctx context.Context) (Session, error) {
		s, err := d.transport.Open(ctx)
		if err != nil {
			return nil, retry.Retryable(err)
		}
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open %s session: %w", d.transport.Name(), err)
	}
	return session, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, session Session, msg Message) error {
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}
	return session.Send(ctx, msg)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULT
// ══════════════════════════════════════════════════════════════════════════════

// Failure is one recipient that did not receive the message.
type Failure struct {
	Email  string
	Reason string
}

// Result is the outcome of one Send call.
type Result struct {
	Delivered []string
	Skipped   []string
	Failed    []Failure

	// Err is set when no session could be opened.
	Err error
}

// OK reports whether nothing failed.
func (r Result) OK() bool {
	return r.Err == nil && len(r.Failed) == 0
}

// Message renders the human-readable outcome.
func (r Result) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if len(r.Failed) == 0 {
		return successMessage
	}
	parts := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		parts = append(parts, f.Email+": "+f.Reason)
	}
	return "Partial failure: " + strings.Join(parts, ", ")
}
