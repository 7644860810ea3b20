package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// SMTPConfig holds SMTP credentials. Defaults target Gmail with an app
// password.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DialTimeout time.Duration
}

// SMTPTransport sends over SMTP with STARTTLS and PLAIN auth.
type SMTPTransport struct {
	config SMTPConfig
	now    func() time.Time
}

// NewSMTPTransport creates an SMTP transport.
func NewSMTPTransport(config SMTPConfig) *SMTPTransport {
	if config.Host == "" {
		config.Host = "smtp.gmail.com"
	}
	if config.Port == 0 {
		config.Port = 587
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 15 * time.Second
	}
	return &SMTPTransport{config: config, now: time.Now}
}

// Name implements Transport.
func (t *SMTPTransport) Name() string { return "smtp" }

// Open dials, upgrades to TLS and authenticates.
func (t *SMTPTransport) Open(ctx context.Context) (Session, error) {
	if t.config.Username == "" || t.config.Password == "" {
		return nil, errors.New("smtp credentials are not configured")
	}

	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
	dialer := net.Dialer{Timeout: t.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.config.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.config.Host, MinVersion: tls.VersionTLS12}); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	}

	auth := smtp.PlainAuth("", t.config.Username, t.config.Password, t.config.Host)
	if err := client.Auth(auth); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("smtp auth: %w", err)
	}

	// The session deadline is managed per send from here on.
	_ = conn.SetDeadline(time.Time{})
	return &smtpSession{client: client, conn: conn, now: t.now}, nil
}

type smtpSession struct {
	client *smtp.Client
	conn   net.Conn
	now    func() time.Time
}

func (s *smtpSession) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetDeadline(deadline)
		defer func() { _ = s.conn.SetDeadline(time.Time{}) }()
	}

	data, err := renderMIME(msg, s.now())
	if err != nil {
		return err
	}

	if err := s.client.Mail(envelopeAddress(msg.From)); err != nil {
		_ = s.client.Reset()
		return fmt.Errorf("mail from: %w", err)
	}
	if err := s.client.Rcpt(envelopeAddress(msg.To)); err != nil {
		_ = s.client.Reset()
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := s.client.Data()
	if err != nil {
		_ = s.client.Reset()
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish body: %w", err)
	}
	return nil
}

func (s *smtpSession) Close() error {
	if err := s.client.Quit(); err != nil {
		_ = s.client.Close()
		return err
	}
	return nil
}

// envelopeAddress strips a display name for MAIL FROM / RCPT TO.
func envelopeAddress(addr string) string {
	if parsed, err := parseAddress(addr); err == nil {
		return parsed
	}
	return addr
}
