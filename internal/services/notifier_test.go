package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/config"
	"bhiv/hr-platform/internal/models"
)

type fakeSender struct {
	channel models.Channel
	id      string
	err     error
	delay   time.Duration
	got     []Message
}

func (f *fakeSender) Channel() models.Channel { return f.channel }

func (f *fakeSender) Send(ctx context.Context, _ string, msg Message) (string, error) {
	f.got = append(f.got, msg)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.id, f.err
}

func sampleEvent() models.NotificationEvent {
	return models.NotificationEvent{
		CandidateID:       1,
		CandidateName:     "Asha",
		CandidateEmail:    "asha@example.com",
		CandidatePhone:    "9284967526",
		JobTitle:          "Backend Engineer",
		ApplicationStatus: "shortlisted",
		Message:           "We would like to interview you.",
	}
}

func resultFor(t *testing.T, results []models.NotificationResult, ch models.Channel) models.NotificationResult {
	t.Helper()
	for _, r := range results {
		if r.Channel == ch {
			return r
		}
	}
	t.Fatalf("no result for channel %s", ch)
	return models.NotificationResult{}
}

func TestNotifierMockMode(t *testing.T) {
	n := NewNotificationService(config.NotificationModeMock, time.Second, 0, nil, zap.NewNop())

	results := n.Send(context.Background(), sampleEvent(), []models.Channel{models.ChannelEmail, models.ChannelWhatsApp})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, models.NotificationMockSent, r.Status)
		require.NotNil(t, r.MessageID)
	}
	assert.Equal(t, "+919284967526", resultFor(t, results, models.ChannelWhatsApp).Recipient)
}

func TestNotifierSkipsMissingRecipient(t *testing.T) {
	email := &fakeSender{channel: models.ChannelEmail, id: "m-1"}
	n := NewNotificationService(config.NotificationModeLive, time.Second, 0, []Sender{email}, zap.NewNop())

	event := sampleEvent()
	event.CandidatePhone = ""

	results := n.Send(context.Background(), event, []models.Channel{models.ChannelEmail, models.ChannelWhatsApp})
	require.Len(t, results, 2)
	assert.Equal(t, models.NotificationSuccess, results[0].Status)
	assert.Equal(t, models.NotificationSkipped, results[1].Status)
	require.Len(t, email.got, 1)
	assert.Equal(t, "BHIV HR - Backend Engineer - SHORTLISTED", email.got[0].Subject)
}

func TestNotifierChannelFailuresAreIndependent(t *testing.T) {
	email := &fakeSender{channel: models.ChannelEmail, err: errors.New("smtp down")}
	whatsapp := &fakeSender{channel: models.ChannelWhatsApp, id: "SM123"}
	n := NewNotificationService(config.NotificationModeLive, time.Second, 0, []Sender{email, whatsapp}, zap.NewNop())

	event := sampleEvent()
	event.TelegramChatID = "42"
	results := n.Send(context.Background(), event, []models.Channel{"email", "whatsapp", "telegram", "sms", "email"})

	require.Len(t, results, 4)
	assert.Equal(t, models.NotificationFailed, results[0].Status)
	require.NotNil(t, results[0].Error)
	assert.Contains(t, *results[0].Error, "smtp down")
	assert.Equal(t, models.NotificationSuccess, results[1].Status)
	assert.Equal(t, "SM123", *results[1].MessageID)
	assert.Equal(t, models.NotificationFailed, results[2].Status, "live mode without telegram credentials fails explicitly")
	assert.Equal(t, models.NotificationFailed, results[3].Status)
	assert.Equal(t, models.Channel("sms"), results[3].Channel)
}

func TestNotifierJoinsWithTimeout(t *testing.T) {
	slow := &fakeSender{channel: models.ChannelEmail, id: "late", delay: time.Second}
	fast := &fakeSender{channel: models.ChannelWhatsApp, id: "fast"}
	n := NewNotificationService(config.NotificationModeLive, 50*time.Millisecond, 0, []Sender{slow, fast}, zap.NewNop())

	start := time.Now()
	results := n.Send(context.Background(), sampleEvent(), []models.Channel{models.ChannelEmail, models.ChannelWhatsApp})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, models.NotificationFailed, results[0].Status)
	assert.Equal(t, models.NotificationSuccess, results[1].Status)
}

func TestNotifierUnknownModeDefaultsToMock(t *testing.T) {
	n := NewNotificationService("", time.Second, 0, nil, zap.NewNop())
	assert.Equal(t, config.NotificationModeMock, n.Mode())
}

func TestNewSendersFromConfig(t *testing.T) {
	assert.Empty(t, NewSendersFromConfig(config.NotificationConfig{}))

	senders := NewSendersFromConfig(config.NotificationConfig{
		SMTP:     config.SMTPConfig{Host: "smtp.gmail.com", Port: 465, Username: "hr@example.com", Password: "pw"},
		Twilio:   config.TwilioConfig{AccountSID: "AC1", AuthToken: "tok", WhatsAppNumber: "+14155238886"},
		Telegram: config.TelegramConfig{BotToken: "123:abc"},
	})
	require.Len(t, senders, 3)
	assert.Equal(t, models.ChannelEmail, senders[0].Channel())
	assert.Equal(t, models.ChannelWhatsApp, senders[1].Channel())
	assert.Equal(t, models.ChannelTelegram, senders[2].Channel())
}

func TestEmailPayloadKeepsJobTitleInSubject(t *testing.T) {
	event := models.NotificationEvent{
		CandidateName:     "Asha",
		JobTitle:          "Dev\r\nBcc: attacker@evil.test",
		ApplicationStatus: "shortlisted",
	}
	msg := buildMessage(event, models.ChannelEmail)

	payload := buildEmailPayload("hr@example.com", "asha@example.com\r\nCc: x@evil.test", "<1.hr@example.com>", msg)
	head, _, found := strings.Cut(payload, "\r\n\r\n")
	require.True(t, found)

	lines := strings.Split(head, "\r\n")
	require.Len(t, lines, 6)
	for _, line := range lines {
		assert.NotContains(t, line, "\n")
		assert.False(t, strings.HasPrefix(line, "Bcc:"), line)
		assert.False(t, strings.HasPrefix(line, "Cc:"), line)
	}
	assert.Equal(t, "Subject: BHIV HR - Dev Bcc: attacker@evil.test - SHORTLISTED", lines[2])
}

func TestEmailSenderRejectsRecipientWithLineBreak(t *testing.T) {
	sender := NewEmailSender(config.SMTPConfig{Host: "127.0.0.1", Port: 1, Username: "hr@example.com"})

	_, err := sender.Send(context.Background(), "asha@example.com\nBcc: x@evil.test", Message{Subject: "hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email recipient")
}

func TestWhatsAppSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		assert.Equal(t, "tok", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+919284967526", r.PostForm.Get("To"))
		assert.Equal(t, "whatsapp:+14155238886", r.PostForm.Get("From"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid": "SM42", "status": "queued"}`))
	}))
	defer srv.Close()

	sender := NewWhatsAppSender(config.TwilioConfig{AccountSID: "AC1", AuthToken: "tok", WhatsAppNumber: "+14155238886"}, srv.URL)
	id, err := sender.Send(context.Background(), "+919284967526", Message{Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "SM42", id)
}

func TestWhatsAppSenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code": 21211, "message": "Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	sender := NewWhatsAppSender(config.TwilioConfig{AccountSID: "AC1", AuthToken: "tok"}, srv.URL)
	_, err := sender.Send(context.Background(), "+91", Message{Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid 'To' Phone Number")
}

func TestTelegramSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.PostForm.Get("chat_id"))
		assert.Equal(t, "Markdown", r.PostForm.Get("parse_mode"))
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 777}}`))
	}))
	defer srv.Close()

	id, err := NewTelegramSender("123:abc", srv.URL).Send(context.Background(), "42", Message{Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "777", id)
}

func TestTelegramSenderNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok": false, "description": "Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	_, err := NewTelegramSender("t", srv.URL).Send(context.Background(), "1", Message{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"9284967526":     "+919284967526",
		"919284967526":   "+919284967526",
		"+919284967526":  "+919284967526",
		"+9284967526":    "+919284967526",
		"92849 67526":    "+919284967526",
		"928-496-7526":   "+919284967526",
		"+14155238886":   "+14155238886",
		"00442071838750": "+9100442071838750",
		"12345":          "12345",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}
