package mail

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleTransport writes messages to an io.Writer instead of sending them.
// It keeps every delivered message for inspection.
type ConsoleTransport struct {
	mu   sync.Mutex
	out  io.Writer
	sent []Message
	now  func() time.Time
}

// NewConsoleTransport writes to out, or stdout when out is nil.
func NewConsoleTransport(out io.Writer) *ConsoleTransport {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleTransport{out: out, now: time.Now}
}

// Name implements Transport.
func (t *ConsoleTransport) Name() string { return "console" }

// Open implements Transport.
func (t *ConsoleTransport) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Send renders msg and writes it out.
func (t *ConsoleTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := renderMIME(msg, t.now())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(t.out, "%s\r\n", data); err != nil {
		return err
	}
	t.sent = append(t.sent, msg)
	return nil
}

// Close implements Session.
func (t *ConsoleTransport) Close() error { return nil }

// Sent returns a copy of delivered messages.
func (t *ConsoleTransport) Sent() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.sent))
	copy(out, t.sent)
	return out
}
