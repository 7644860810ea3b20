package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridConfig holds SendGrid API settings.
type SendGridConfig struct {
	APIKey   string
	FromName string

	// Host overrides the API host.
	Host string
}

// SendGridTransport sends through the SendGrid v3 mail send API.
type SendGridTransport struct {
	key      string
	fromName string
	host     string
}

// NewSendGridTransport creates a SendGrid transport.
func NewSendGridTransport(config SendGridConfig) *SendGridTransport {
	host := config.Host
	if host == "" {
		host = sendgridHost
	}
	return &SendGridTransport{key: config.APIKey, fromName: config.FromName, host: host}
}

// Name implements Transport.
func (t *SendGridTransport) Name() string { return "sendgrid" }

// Open validates the key; HTTP needs no persistent connection.
func (t *SendGridTransport) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.key) == "" {
		return nil, errors.New("sendgrid api key is not configured")
	}
	return t, nil
}

// Send posts one message.
func (t *SendGridTransport) Send(ctx context.Context, msg Message) error {
	from, err := parseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("invalid from address %q: %w", msg.From, err)
	}
	to, err := parseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail("", to))

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(t.fromName, from))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))

	req := sendgrid.GetRequest(t.key, sendgridEndpoint, t.host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(m)

	res, err := t.do(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, strings.TrimSpace(res.Body))
	}
	return nil
}

// do runs req bound to ctx, so MAIL_SEND_TIMEOUT cancels a slow API call.
func (t *SendGridTransport) do(ctx context.Context, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, err
	}
	httpRes, err := rest.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(httpRes)
}

// Close implements Session.
func (t *SendGridTransport) Close() error { return nil }
