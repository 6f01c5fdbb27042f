package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bhiv/hr-platform/internal/config"
	"bhiv/hr-platform/internal/logger"
	"bhiv/hr-platform/internal/models"
)

type Message struct {
	Subject string
	Body    string
}

// Sender delivers one message on one channel and returns the provider message id.
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, recipient string, msg Message) (string, error)
}

// emailSender speaks implicit-TLS SMTP (port 465).
type emailSender struct {
	cfg config.SMTPConfig
}

func NewEmailSender(cfg config.SMTPConfig) Sender {
	return &emailSender{cfg: cfg}
}

func (s *emailSender) Channel() models.Channel { return models.ChannelEmail }

func (s *emailSender) Send(ctx context.Context, recipient string, msg Message) (string, error) {
	if strings.ContainsAny(recipient, "\r\n") {
		return "", fmt.Errorf("invalid email recipient %q", recipient)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return "", fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("failed to start smtp session: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return "", fmt.Errorf("smtp auth failed: %w", err)
	}
	if err := client.Mail(s.cfg.Username); err != nil {
		return "", fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return "", fmt.Errorf("smtp RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("smtp DATA failed: %w", err)
	}

	messageID := fmt.Sprintf("<%d.%s>", time.Now().UnixNano(), s.cfg.Username)
	payload := buildEmailPayload(s.cfg.Username, recipient, messageID, msg)
	if _, err := w.Write([]byte(payload)); err != nil {
		return "", fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	_ = client.Quit()
	return messageID, nil
}

// buildEmailPayload renders headers and body. Header values never carry a line break.
func buildEmailPayload(from, to, messageID string, msg Message) string {
	subject := strings.Join(strings.Fields(msg.Subject), " ")
	headers := []string{
		"From: " + stripLineBreaks(from),
		"To: " + stripLineBreaks(to),
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"Message-ID: " + stripLineBreaks(messageID),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + msg.Body
}

func stripLineBreaks(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

const twilioBaseURL = "https://api.twilio.com"

type whatsappSender struct {
	cfg     config.TwilioConfig
	baseURL string
	client  *http.Client
}

func NewWhatsAppSender(cfg config.TwilioConfig, baseURL string) Sender {
	if baseURL == "" {
		baseURL = twilioBaseURL
	}
	return &whatsappSender{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *whatsappSender) Channel() models.Channel { return models.ChannelWhatsApp }

func (s *whatsappSender) Send(ctx context.Context, recipient string, msg Message) (string, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.cfg.AccountSID)

	form := url.Values{}
	form.Set("From", "whatsapp:"+s.cfg.WhatsAppNumber)
	form.Set("To", "whatsapp:"+recipient)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	var out struct {
		SID          string  `json:"sid"`
		Status       string  `json:"status"`
		ErrorMessage *string `json:"error_message"`
		Message      string  `json:"message"`
	}
	status, raw, err := doJSON(s.client, req, &out)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		if out.Message != "" {
			return "", fmt.Errorf("twilio error %d: %s", status, out.Message)
		}
		return "", fmt.Errorf("twilio error %d: %s", status, logger.Truncate(raw, 200))
	}
	if out.Status == "failed" || out.Status == "undelivered" {
		reason := out.Status
		if out.ErrorMessage != nil {
			reason = *out.ErrorMessage
		}
		return out.SID, fmt.Errorf("twilio rejected message: %s", reason)
	}
	return out.SID, nil
}

const telegramBaseURL = "https://api.telegram.org"

type telegramSender struct {
	botToken string
	baseURL  string
	client   *http.Client
}

func NewTelegramSender(botToken, baseURL string) Sender {
	if baseURL == "" {
		baseURL = telegramBaseURL
	}
	return &telegramSender{
		botToken: botToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *telegramSender) Channel() models.Channel { return models.ChannelTelegram }

func (s *telegramSender) Send(ctx context.Context, chatID string, msg Message) (string, error) {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", msg.Body)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	status, _, err := doJSON(s.client, req, &out)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || !out.OK {
		return "", fmt.Errorf("telegram error %d: %s", status, out.Description)
	}
	return strconv.FormatInt(out.Result.MessageID, 10), nil
}

// doJSON runs the request and decodes the body when it is JSON. The raw body is returned for error reporting.
func doJSON(client *http.Client, req *http.Request, out any) (int, string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read body: %w", err)
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, out)
	}
	return resp.StatusCode, string(raw), nil
}

// NormalizePhone rewrites local numbers into E.164 with the Indian country code as default.
func NormalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))

	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "+91") && len(p) == 13:
		return p
	case strings.HasPrefix(p, "91") && len(p) == 12 && isDigits(p):
		return "+" + p
	case len(p) == 10 && isDigits(p):
		return "+91" + p
	case strings.HasPrefix(p, "+9") && len(p) == 11:
		return "+91" + p[1:]
	case !strings.HasPrefix(p, "+") && len(p) >= 10:
		return "+91" + p
	default:
		return p
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
