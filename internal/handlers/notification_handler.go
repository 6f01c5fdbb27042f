package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/models"
	"bhiv/hr-platform/internal/services"
)

type NotificationHandler struct {
	notifier services.NotificationService
	log      *zap.Logger
}

func NewNotificationHandler(notifier services.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		log:      log,
	}
}

// HandleSend handles POST /tools/send-notification
func (h *NotificationHandler) HandleSend(c *fiber.Ctx) error {
	var req models.SendNotificationRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if len(req.Channels) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "channels is required",
		})
	}

	channels := make([]models.Channel, 0, len(req.Channels))
	for _, ch := range req.Channels {
		channels = append(channels, models.Channel(ch))
	}

	event := models.NotificationEvent{
		CandidateName:     req.CandidateName,
		CandidateEmail:    req.CandidateEmail,
		CandidatePhone:    req.CandidatePhone,
		TelegramChatID:    req.TelegramChatID,
		JobTitle:          req.JobTitle,
		ApplicationStatus: req.ApplicationStatus,
		Message:           req.Message,
	}

	results := h.notifier.Send(c.UserContext(), event, channels)

	resp := models.SendNotificationResponse{
		ChannelsSent: []models.Channel{},
		Results:      results,
	}
	for _, r := range results {
		if r.Status.Delivered() {
			resp.Success = true
			resp.ChannelsSent = append(resp.ChannelsSent, r.Channel)
		}
	}

	h.log.Info("📨 Notification request handled",
		zap.Int("channels", len(results)),
		zap.Int("delivered", len(resp.ChannelsSent)),
		zap.String("mode", h.notifier.Mode()),
	)

	return c.JSON(resp)
}
