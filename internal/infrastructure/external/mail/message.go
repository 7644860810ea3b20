// Package mail delivers rendered PyDaily emails through a pluggable
// transport (SMTP, SendGrid or console).
package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"
)

// Message is one outgoing HTML email.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

// Recipient is who a personalized copy goes to.
type Recipient struct {
	Email string
	Name  string
}

// Transport opens delivery sessions.
type Transport interface {
	// Name identifies the transport in logs.
	Name() string
	// Open establishes an authenticated session.
	Open(ctx context.Context) (Session, error)
}

// Session sends messages over one established connection.
type Session interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// personalize substitutes the {{name}} and {{email}} tokens.
func personalize(text string, r Recipient) string {
	return strings.NewReplacer("{{name}}", r.Name, "{{email}}", r.Email).Replace(text)
}

// renderMIME renders msg as a single-part text/html RFC 5322 message.
func renderMIME(msg Message, now time.Time) ([]byte, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", msg.From, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.HTMLBody)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

func parseAddress(addr string) (string, error) {
	a, err := mail.ParseAddress(addr)
	if err != nil {
		return "", err
	}
	return a.Address, nil
}
