package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"bhiv/hr-platform/internal/config"
	"bhiv/hr-platform/internal/models"
)

type NotificationService interface {
	// Send attempts every requested channel independently and returns one result per
	// distinct requested channel, in request order.
	Send(ctx context.Context, event models.NotificationEvent, channels []models.Channel) []models.NotificationResult
	Mode() string
}

type notificationService struct {
	mode     string
	timeout  time.Duration
	senders  map[models.Channel]Sender
	limiters map[models.Channel]*rate.Limiter
	log      *zap.Logger
}

func NewNotificationService(mode string, timeout time.Duration, ratePerSecond float64, senders []Sender, log *zap.Logger) NotificationService {
	if mode != config.NotificationModeLive {
		mode = config.NotificationModeMock
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}

	s := &notificationService{
		mode:     mode,
		timeout:  timeout,
		senders:  make(map[models.Channel]Sender),
		limiters: make(map[models.Channel]*rate.Limiter),
		log:      log.Named("notifier"),
	}
	for _, ch := range []models.Channel{models.ChannelEmail, models.ChannelWhatsApp, models.ChannelTelegram} {
		s.limiters[ch] = rate.NewLimiter(limit, 1)
	}
	for _, sender := range senders {
		s.senders[sender.Channel()] = sender
	}
	return s
}

// NewSendersFromConfig builds a sender for every channel with credentials configured.
func NewSendersFromConfig(cfg config.NotificationConfig) []Sender {
	var senders []Sender
	if cfg.SMTP.Username != "" && cfg.SMTP.Password != "" {
		senders = append(senders, NewEmailSender(cfg.SMTP))
	}
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" && cfg.Twilio.WhatsAppNumber != "" {
		senders = append(senders, NewWhatsAppSender(cfg.Twilio, ""))
	}
	if cfg.Telegram.BotToken != "" {
		senders = append(senders, NewTelegramSender(cfg.Telegram.BotToken, ""))
	}
	return senders
}

func (s *notificationService) Mode() string {
	return s.mode
}

func (s *notificationService) Send(ctx context.Context, event models.NotificationEvent, channels []models.Channel) []models.NotificationResult {
	channels = dedupeChannels(channels)
	results := make([]models.NotificationResult, len(channels))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var g errgroup.Group
	for i, ch := range channels {
		g.Go(func() error {
			results[i] = s.sendOne(ctx, event, ch)
			return nil
		})
	}
	_ = g.Wait()

	delivered := 0
	for _, r := range results {
		if r.Status.Delivered() {
			delivered++
		}
	}
	s.log.Info("📣 Notification fan-out finished",
		zap.Int64("candidate_id", event.CandidateID),
		zap.Int("channels", len(channels)),
		zap.Int("delivered", delivered),
		zap.String("mode", s.mode))

	return results
}

func (s *notificationService) sendOne(ctx context.Context, event models.NotificationEvent, ch models.Channel) models.NotificationResult {
	if !ch.IsValid() {
		return failedResult(ch, "", fmt.Sprintf("unsupported channel %q", ch))
	}

	recipient := recipientFor(event, ch)
	if recipient == "" {
		reason := fmt.Sprintf("no %s recipient provided", ch)
		return models.NotificationResult{Status: models.NotificationSkipped, Channel: ch, Error: &reason}
	}

	msg := buildMessage(event, ch)

	if s.mode == config.NotificationModeMock {
		id := fmt.Sprintf("mock_%s_%s", ch, uuid.NewString()[:8])
		s.log.Info("🧪 Mock notification", zap.String("channel", string(ch)), zap.String("recipient", recipient))
		return models.NotificationResult{Status: models.NotificationMockSent, Channel: ch, Recipient: recipient, MessageID: &id}
	}

	sender, ok := s.senders[ch]
	if !ok {
		return failedResult(ch, recipient, fmt.Sprintf("%s channel is not configured", ch))
	}

	if err := s.limiters[ch].Wait(ctx); err != nil {
		return failedResult(ch, recipient, fmt.Sprintf("rate limit wait: %v", err))
	}

	id, err := sender.Send(ctx, recipient, msg)
	if err != nil {
		s.log.Warn("⚠️  Notification failed", zap.String("channel", string(ch)), zap.Error(err))
		res := failedResult(ch, recipient, err.Error())
		if id != "" {
			res.MessageID = &id
		}
		return res
	}

	s.log.Info("✅ Notification sent", zap.String("channel", string(ch)), zap.String("message_id", id))
	return models.NotificationResult{Status: models.NotificationSuccess, Channel: ch, Recipient: recipient, MessageID: &id}
}

func failedResult(ch models.Channel, recipient, reason string) models.NotificationResult {
	return models.NotificationResult{Status: models.NotificationFailed, Channel: ch, Recipient: recipient, Error: &reason}
}

func dedupeChannels(channels []models.Channel) []models.Channel {
	seen := make(map[models.Channel]struct{}, len(channels))
	out := make([]models.Channel, 0, len(channels))
	for _, ch := range channels {
		ch = models.Channel(strings.ToLower(strings.TrimSpace(string(ch))))
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	return out
}

func recipientFor(event models.NotificationEvent, ch models.Channel) string {
	switch ch {
	case models.ChannelEmail:
		return strings.TrimSpace(event.CandidateEmail)
	case models.ChannelWhatsApp:
		return NormalizePhone(event.CandidatePhone)
	case models.ChannelTelegram:
		return strings.TrimSpace(event.TelegramChatID)
	}
	return ""
}

func buildMessage(event models.NotificationEvent, ch models.Channel) Message {
	status := strings.ToUpper(event.ApplicationStatus)
	if status == "" {
		status = "UPDATE"
	}

	switch ch {
	case models.ChannelEmail:
		return Message{
			Subject: fmt.Sprintf("BHIV HR - %s - %s", event.JobTitle, status),
			Body: fmt.Sprintf("Dear %s,\n\nWe have an update regarding your application for the position of %s at BHIV.\n\n"+
				"Application Status: %s\n\n%s\n\nIf you have any questions, please feel free to contact us.\n\nBest regards,\nBHIV HR Team",
				event.CandidateName, event.JobTitle, status, event.Message),
		}
	case models.ChannelWhatsApp:
		return Message{Body: fmt.Sprintf("*📢 BHIV HR Update*\n\n*Job:* %s\n*Status:* %s\n\n%s\n\n_Thank you for your interest!_",
			event.JobTitle, status, event.Message)}
	default:
		return Message{Body: fmt.Sprintf("🔔 *BHIV HR Update*\n\n*Job:* %s\n*Status:* %s\n\n%s\n\n_Thank you for your interest in BHIV!_",
			event.JobTitle, status, event.Message)}
	}
}
