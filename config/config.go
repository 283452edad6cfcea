package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ResponseModeOpaque = "opaque"
	ResponseModeJSON   = "json"
)

type Config struct {
	Menu     MenuConfig
	Order    OrderConfig
	DB       DBConfig
	Telegram TelegramConfig
	HTTP     HTTPConfig
	Queue    QueueConfig
	Session  SessionConfig
}

type MenuConfig struct {
	SourceURL    string // published spreadsheet CSV; empty = built-in menu
	FetchTimeout time.Duration
}

type OrderConfig struct {
	WebhookURL    string
	ResponseMode  string // "opaque" or "json"
	SubmitTimeout time.Duration
	ClampToStock  bool
}

type DBConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token string
}

type HTTPConfig struct {
	Port        string
	LogLevel    string
	CORSOrigins []string
}

type QueueConfig struct {
	URL             string // empty = no kitchen notifications
	Queue           string
	ChannelPoolSize int
}

type SessionConfig struct {
	IdleTTL      time.Duration // 0 keeps sessions until restart
	MenuCacheTTL time.Duration // 0 fetches the menu for every new session
}

// Load reads the environment (and .env when present) and validates it.
func Load() (*Config, error) {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads the environment without validating; migrate only needs DB settings.
func Read() *Config {
	_ = godotenv.Load()

	return &Config{
		Menu: MenuConfig{
			SourceURL:    getEnv("MENU_SOURCE_URL", ""),
			FetchTimeout: getEnvSeconds("MENU_FETCH_TIMEOUT", 10),
		},
		Order: OrderConfig{
			WebhookURL:    getEnv("ORDER_WEBHOOK_URL", ""),
			ResponseMode:  strings.ToLower(getEnv("ORDER_RESPONSE_MODE", ResponseModeOpaque)),
			SubmitTimeout: getEnvSeconds("ORDER_SUBMIT_TIMEOUT", 15),
			ClampToStock:  getEnvBool("CART_CLAMP_TO_STOCK", false),
		},
		DB: DBConfig{
			Enabled:  getEnvBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "restaurant"),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TOKEN", ""),
		},
		HTTP: HTTPConfig{
			Port:        getEnv("PORT", "8080"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Queue: QueueConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			Queue:           getEnv("RABBITMQ_QUEUE", "kitchen_orders"),
			ChannelPoolSize: getEnvAsInt("RABBITMQ_CHANNEL_POOL_SIZE", 4),
		},
		Session: SessionConfig{
			IdleTTL:      time.Duration(getEnvAsInt("SESSION_IDLE_TTL", 30)) * time.Minute,
			MenuCacheTTL: getEnvSeconds("MENU_CACHE_TTL", 60),
		},
	}
}

// Validate checks the options every deployment must get right.
func (c *Config) Validate() error {
	if c.Order.WebhookURL == "" {
		return errors.New("ORDER_WEBHOOK_URL not set")
	}
	switch c.Order.ResponseMode {
	case ResponseModeOpaque, ResponseModeJSON:
	default:
		return fmt.Errorf("invalid ORDER_RESPONSE_MODE: %q", c.Order.ResponseMode)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(getEnv(key, ""))
	if v == "" {
		return def
	}
	return v == "1" || strings.EqualFold(v, "true")
}

func getEnvSeconds(key string, def int) time.Duration {
	return time.Duration(getEnvAsInt(key, def)) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
