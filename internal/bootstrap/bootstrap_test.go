package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pydaily/lessonbot/config"
	"github.com/pydaily/lessonbot/internal/application/admin"
	"github.com/pydaily/lessonbot/internal/application/cycle"
	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/domain/student"
	"github.com/pydaily/lessonbot/internal/infrastructure/external/mail"
	"github.com/pydaily/lessonbot/pkg/logger"
)

func fakeGemini(t *testing.T, text string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(t *testing.T, geminiURL string) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Environment: config.EnvDevelopment, Timezone: "UTC", Location: time.UTC},
		Store: config.StoreConfig{
			Driver:       config.StoreSQLite,
			SQLitePath:   filepath.Join(t.TempDir(), "pydaily.db"),
			QueryTimeout: 5 * time.Second,
		},
		Generator: config.GeneratorConfig{
			APIKey:  "test-key-1234567890",
			Model:   "gemini-flash-latest",
			BaseURL: geminiURL,
			Timeout: 5 * time.Second,
		},
		Mail: config.MailConfig{
			Transport:   config.TransportConsole,
			From:        "PyDaily <bot@pydaily.dev>",
			SendTimeout: 5 * time.Second,
		},
	}
}

func TestApp_MorningCycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	srv, calls := fakeGemini(t, "<!-- TOPIC: Variables --><h1>Hello {{name}}</h1>")
	cfg := testConfig(t, srv.URL)

	app, err := Open(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer app.Close()
	assert.Nil(t, app.Lock)

	svc := app.Admin(nil)
	_, err = svc.Enroll(ctx, admin.EnrollRequest{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, admin.EnrollRequest{Email: "bob@example.com", Name: "Bob"})
	require.NoError(t, err)

	var out bytes.Buffer
	transport, err := app.Transport(&out)
	require.NoError(t, err)
	gen, err := app.Generator()
	require.NoError(t, err)

	release, err := app.AcquireRun(ctx, cycle.ModeMorning)
	require.NoError(t, err)
	defer release()

	report, err := app.Engine(gen, app.Sender(transport)).Run(ctx, cycle.ModeMorning)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 2, report.Recipients)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	console, ok := transport.(*mail.ConsoleTransport)
	require.True(t, ok)
	sent := console.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "<!-- TOPIC: Variables --><h1>Hello Ada</h1>", sent[0].HTMLBody)
	assert.Equal(t, "🐍 PyDaily: Day 1", sent[0].Subject)
	assert.NotEmpty(t, out.String())

	for _, email := range []string{"ada@example.com", "bob@example.com"} {
		st, err := app.Roster.GetStudent(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, student.StatusLessonSent, st.Status)
		assert.Equal(t, 1, st.Day)
	}

	recs, err := app.topics.ListTopics(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Variables", recs[0].Topic)
}

func TestApp_ReopenServesCachedContent(t *testing.T) {
	ctx := context.Background()
	srv, calls := fakeGemini(t, "reminder body")
	cfg := testConfig(t, srv.URL)

	for i := 0; i < 2; i++ {
		app, err := Open(ctx, cfg, logger.Discard())
		require.NoError(t, err)

		gen, err := app.Generator()
		require.NoError(t, err)
		_, err = app.Provider(gen).Fetch(ctx, reminderKey)
		require.NoError(t, err)
		app.Close()
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Store.Driver = "mongo"

	_, err := Open(context.Background(), cfg, logger.Discard())
	assert.ErrorContains(t, err, "unsupported store driver")
}

func TestApp_Transport(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	app := &App{Config: cfg, Logger: logger.Discard()}

	for name, want := range map[config.MailTransport]string{
		config.TransportSMTP:     "smtp",
		config.TransportSendGrid: "sendgrid",
		config.TransportConsole:  "console",
	} {
		cfg.Mail.Transport = name
		tr, err := app.Transport(nil)
		require.NoError(t, err)
		assert.Equal(t, want, tr.Name())
	}

	cfg.Mail.Transport = "pigeon"
	_, err := app.Transport(nil)
	assert.Error(t, err)
}

var reminderKey = content.ReminderKey(3)

func TestApp_ConsoleDryRunWithoutSenderAddress(t *testing.T) {
	ctx := context.Background()
	srv, _ := fakeGemini(t, "<!-- TOPIC: Loops --><p>Hi {{name}}</p>")
	cfg := testConfig(t, srv.URL)
	cfg.Mail.From = ""
	require.NoError(t, cfg.ValidateTransport())

	app, err := Open(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Admin(nil).Enroll(ctx, admin.EnrollRequest{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)

	var out bytes.Buffer
	transport, err := app.Transport(&out)
	require.NoError(t, err)
	gen, err := app.Generator()
	require.NoError(t, err)

	report, err := app.Engine(gen, app.Sender(transport)).Run(ctx, cycle.ModeMorning)
	require.NoError(t, err)
	assert.True(t, report.OK(), report.Summary())
	assert.Equal(t, 1, report.Sent)
	assert.Contains(t, out.String(), "noreply@localhost")
}
