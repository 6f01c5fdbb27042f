package models

type NotificationStatus string

const (
	NotificationSuccess  NotificationStatus = "success"
	NotificationFailed   NotificationStatus = "failed"
	NotificationSkipped  NotificationStatus = "skipped"
	NotificationMockSent NotificationStatus = "mock_sent"
)

// Delivered is true for statuses that count as sent.
func (s NotificationStatus) Delivered() bool {
	return s == NotificationSuccess || s == NotificationMockSent
}

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
)

func (c Channel) IsValid() bool {
	return c == ChannelEmail || c == ChannelWhatsApp || c == ChannelTelegram
}

type NotificationResult struct {
	Status    NotificationStatus `json:"status"`
	Channel   Channel            `json:"channel"`
	Recipient string             `json:"recipient"`
	MessageID *string            `json:"message_id,omitempty"`
	Error     *string            `json:"error,omitempty"`
}

// NotificationEvent carries everything the channel templates need.
type NotificationEvent struct {
	CandidateID       int64
	CandidateName     string
	CandidateEmail    string
	CandidatePhone    string
	TelegramChatID    string
	JobTitle          string
	ApplicationStatus string
	Message           string
}
