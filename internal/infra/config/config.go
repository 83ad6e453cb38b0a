package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ResolverAPI    = "api"
	ResolverNative = "native"

	DeliveryLink   = "link"
	DeliveryUpload = "upload"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv  string `envconfig:"APP_ENV" default:"dev"`
	Port    int    `envconfig:"PORT" default:"8080"`
	BotName string `envconfig:"BOT_NAME" default:"YouTube Downloader"`

	Telegram struct {
		Token      string  `envconfig:"TG_BOT_TOKEN" required:"true"`
		WebhookURL string  `envconfig:"TG_WEBHOOK_URL"`
		Secret     string  `envconfig:"TG_WEBHOOK_SECRET"`
		SendRPS    float64 `envconfig:"TG_SEND_RPS" default:"25"`
	} `envconfig:""`

	Resolver struct {
		Mode    string        `envconfig:"RESOLVER_MODE" default:"api"`
		APIURL  string        `envconfig:"RESOLVER_API_URL" default:"https://yt-dl.officialhectormanuel.workers.dev/"`
		Timeout time.Duration `envconfig:"RESOLVE_TIMEOUT" default:"30s"`
	} `envconfig:""`

	Search struct {
		APIKey string `envconfig:"YOUTUBE_API_KEY"`
		Limit  int    `envconfig:"SEARCH_RESULTS_LIMIT" default:"12"`
	} `envconfig:""`

	Delivery struct {
		Mode         string        `envconfig:"DELIVERY_MODE" default:"link"`
		MediaTimeout time.Duration `envconfig:"MEDIA_TIMEOUT" default:"120s"`
	} `envconfig:""`

	Flow struct {
		CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`
		SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"10m"`
		AutoDelete      time.Duration `envconfig:"AUTO_DELETE_DELAY" default:"60s"`
		CancelDelete    time.Duration `envconfig:"CANCEL_DELETE_DELAY" default:"3s"`
		ErrorDelete     time.Duration `envconfig:"ERROR_DELETE_DELAY" default:"10s"`
		LoadingInterval time.Duration `envconfig:"LOADING_INTERVAL" default:"500ms"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`
	PGDSN     string `envconfig:"PG_DSN"`
}

// Parse читает конфиг из окружения и проверяет значения.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Validate проверяет перечислимые значения и сроки.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("TG_BOT_TOKEN is required")
	}
	c.Resolver.Mode = strings.ToLower(strings.TrimSpace(c.Resolver.Mode))
	switch c.Resolver.Mode {
	case ResolverAPI:
		if strings.TrimSpace(c.Resolver.APIURL) == "" {
			return fmt.Errorf("RESOLVER_API_URL is required for resolver mode %q", ResolverAPI)
		}
	case ResolverNative:
	default:
		return fmt.Errorf("unknown RESOLVER_MODE %q", c.Resolver.Mode)
	}

	c.Delivery.Mode = strings.ToLower(strings.TrimSpace(c.Delivery.Mode))
	switch c.Delivery.Mode {
	case DeliveryLink, DeliveryUpload:
	default:
		return fmt.Errorf("unknown DELIVERY_MODE %q", c.Delivery.Mode)
	}

	if c.Search.Limit <= 0 {
		return fmt.Errorf("SEARCH_RESULTS_LIMIT must be positive, got %d", c.Search.Limit)
	}
	if c.Flow.CacheTTL <= 0 || c.Flow.SessionTTL <= 0 {
		return fmt.Errorf("CACHE_TTL and SESSION_TTL must be positive")
	}
	if c.Telegram.SendRPS <= 0 {
		return fmt.Errorf("TG_SEND_RPS must be positive")
	}
	return nil
}

// UseWebhook сообщает, что апдейты приходят через вебхук.
func (c AppConfig) UseWebhook() bool {
	return strings.TrimSpace(c.Telegram.WebhookURL) != ""
}
