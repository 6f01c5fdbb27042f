package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	NotificationModeLive = "live"
	NotificationModeMock = "mock"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Agent        AgentConfig
	Match        MatchConfig
	Redis        RedisConfig
	Gemini       GeminiConfig
	Notification NotificationConfig
	Worker       WorkerConfig
	Log          LogConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	APIKeySecret string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type AgentConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type MatchConfig struct {
	BatchLimit int
	CacheTTL   time.Duration
}

type RedisConfig struct {
	URL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type NotificationConfig struct {
	Mode          string
	Timeout       time.Duration
	RatePerSecond float64
	SMTP          SMTPConfig
	Twilio        TwilioConfig
	Telegram      TelegramConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string
}

type TelegramConfig struct {
	BotToken string
}

type WorkerConfig struct {
	Concurrency     int
	QueueSize       int
	WorkflowTimeout time.Duration
	PollInterval    time.Duration
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment and default values.")
	}

	env := getEnv("ENV", "development")
	apiKey := getEnv("API_KEY_SECRET", "")

	defaultMode := NotificationModeLive
	if env == "development" {
		defaultMode = NotificationModeMock
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8000"),
			Env:          env,
			APIKeySecret: apiKey,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "bhiv_user"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "bhiv_hr"),
		},
		Agent: AgentConfig{
			URL:     strings.TrimRight(getEnv("AGENT_SERVICE_URL", "http://localhost:9000"), "/"),
			APIKey:  getEnv("AGENT_API_KEY", apiKey),
			Timeout: getEnvAsDuration("AGENT_TIMEOUT", "90s"),
		},
		Match: MatchConfig{
			BatchLimit: getEnvAsInt("MATCH_BATCH_LIMIT", 5),
			CacheTTL:   getEnvAsDuration("MATCH_CACHE_TTL", "5m"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Notification: NotificationConfig{
			Mode:          strings.ToLower(getEnv("NOTIFICATION_MODE", defaultMode)),
			Timeout:       getEnvAsDuration("NOTIFICATION_TIMEOUT", "15s"),
			RatePerSecond: getEnvAsFloat("NOTIFICATION_RATE_PER_SEC", 5),
			SMTP: SMTPConfig{
				Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
				Port:     getEnvAsInt("SMTP_PORT", 465),
				Username: getEnv("GMAIL_EMAIL", ""),
				Password: getEnv("GMAIL_APP_PASSWORD", ""),
			},
			Twilio: TwilioConfig{
				AccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
				AuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
				WhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
			},
			Telegram: TelegramConfig{
				BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			},
		},
		Worker: WorkerConfig{
			Concurrency:     getEnvAsInt("WORKER_CONCURRENCY", 4),
			QueueSize:       getEnvAsInt("WORKER_QUEUE_SIZE", 100),
			WorkflowTimeout: getEnvAsDuration("WORKFLOW_TIMEOUT", "5m"),
			PollInterval:    getEnvAsDuration("WORKFLOW_POLL_INTERVAL", "10s"),
		},
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", env == "development"),
		},
	}
}

// Validate reports the first setting the services cannot start with.
func (c *Config) Validate() error {
	if c.Server.APIKeySecret == "" {
		return errors.New("API_KEY_SECRET is required")
	}
	if c.Notification.Mode != NotificationModeLive && c.Notification.Mode != NotificationModeMock {
		return fmt.Errorf("NOTIFICATION_MODE must be %q or %q, got %q",
			NotificationModeLive, NotificationModeMock, c.Notification.Mode)
	}
	if c.Agent.Timeout <= 0 {
		return errors.New("AGENT_TIMEOUT must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		return errors.New("WORKER_CONCURRENCY must be positive")
	}
	if c.Worker.QueueSize <= 0 {
		return errors.New("WORKER_QUEUE_SIZE must be positive")
	}
	if c.Worker.WorkflowTimeout <= 0 {
		return errors.New("WORKFLOW_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
