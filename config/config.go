package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sjsage522/pricewatcher/internal/alert"
	"sjsage522/pricewatcher/pkg/errors"
)

// Render backends
const (
	RenderRod         = "rod"
	RenderBrowserless = "browserless"
	RenderNone        = "none"
)

// Config represents the application configuration
type Config struct {
	// Environment
	Environment string

	// Scheduler configuration
	CheckInterval    time.Duration
	AutoStart        bool
	RunOnStart       bool
	CheckConcurrency int
	TargetUserID     string

	// Fetch configuration
	FetchTimeout     time.Duration
	Cooldown         time.Duration
	RenderWait       time.Duration
	RenderBackend    string
	ChromeBin        string
	ChromeControlURL string
	BrowserlessAddr  string
	BrowserlessToken string

	// Store configuration
	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	// Memcache configuration
	MemcacheAddr   string
	MemcachePrefix string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Telegram configuration
	TelegramToken  string
	TelegramChatID int64

	// Alerting
	AlertRepeat  alert.RepeatPolicy
	ErrorLogFile string
}

var defaults = map[string]any{
	"PRICEWATCH_ENVIRONMENT":  "development",
	"CHECK_INTERVAL_MINUTES":  30,
	"SCHEDULER_AUTOSTART":     true,
	"RUN_ON_START":            true,
	"CHECK_CONCURRENCY":       4,
	"FETCH_TIMEOUT_SECONDS":   20,
	"COOLDOWN_SECONDS":        300,
	"RENDER_WAIT_SECONDS":     15,
	"RENDER_BACKEND":          RenderRod,
	"BROWSERLESS_ADDR":        "http://localhost:3000",
	"STORE_DRIVER":            "memory",
	"SQLITE_PATH":             "pricewatch.db",
	"MEMCACHE_ADDR":           "localhost:11211",
	"MEMCACHE_PREFIX":         "pricewatch:",
	"REDIS_DB":                0,
	"REDIS_STREAM":            "price_alerts",
	"REDIS_STREAM_COUNT":      1,
	"REDIS_STREAM_MAX_LENGTH": 1000,
	"ALERT_REPEAT":            string(alert.EveryCycle),
	"ERROR_LOG_FILE":          "error.log",
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	policy, err := alert.ParseRepeatPolicy(strings.ToLower(v.GetString("ALERT_REPEAT")))
	if err != nil {
		return nil, errors.NewConfiguration("invalid ALERT_REPEAT", err)
	}

	return &Config{
		Environment:          v.GetString("PRICEWATCH_ENVIRONMENT"),
		CheckInterval:        time.Duration(v.GetInt("CHECK_INTERVAL_MINUTES")) * time.Minute,
		AutoStart:            v.GetBool("SCHEDULER_AUTOSTART"),
		RunOnStart:           v.GetBool("RUN_ON_START"),
		CheckConcurrency:     v.GetInt("CHECK_CONCURRENCY"),
		TargetUserID:         v.GetString("TARGET_USER_ID"),
		FetchTimeout:         time.Duration(v.GetInt("FETCH_TIMEOUT_SECONDS")) * time.Second,
		Cooldown:             time.Duration(v.GetInt("COOLDOWN_SECONDS")) * time.Second,
		RenderWait:           time.Duration(v.GetInt("RENDER_WAIT_SECONDS")) * time.Second,
		RenderBackend:        strings.ToLower(v.GetString("RENDER_BACKEND")),
		ChromeBin:            v.GetString("CHROME_BIN"),
		ChromeControlURL:     v.GetString("CHROME_CONTROL_URL"),
		BrowserlessAddr:      v.GetString("BROWSERLESS_ADDR"),
		BrowserlessToken:     v.GetString("BROWSERLESS_TOKEN"),
		StoreDriver:          strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		SQLitePath:           v.GetString("SQLITE_PATH"),
		MemcacheAddr:         v.GetString("MEMCACHE_ADDR"),
		MemcachePrefix:       v.GetString("MEMCACHE_PREFIX"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisDB:              v.GetInt("REDIS_DB"),
		RedisStream:          v.GetString("REDIS_STREAM"),
		RedisStreamCount:     v.GetInt("REDIS_STREAM_COUNT"),
		RedisStreamMaxLength: v.GetInt("REDIS_STREAM_MAX_LENGTH"),
		TelegramToken:        v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:       v.GetInt64("TELEGRAM_CHAT_ID"),
		AlertRepeat:          policy,
		ErrorLogFile:         v.GetString("ERROR_LOG_FILE"),
	}, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if c.CheckInterval <= 0 {
		return errors.NewConfiguration(fmt.Sprintf("CHECK_INTERVAL_MINUTES must be positive, got %v", c.CheckInterval), nil)
	}
	if c.CheckConcurrency <= 0 {
		return errors.NewConfiguration("CHECK_CONCURRENCY must be positive", nil)
	}
	if c.FetchTimeout <= 0 || c.RenderWait <= 0 {
		return errors.NewConfiguration("FETCH_TIMEOUT_SECONDS and RENDER_WAIT_SECONDS must be positive", nil)
	}

	switch c.RenderBackend {
	case RenderRod, RenderNone:
	case RenderBrowserless:
		if c.BrowserlessAddr == "" {
			return errors.NewConfiguration("BROWSERLESS_ADDR is required for RENDER_BACKEND=browserless", nil)
		}
	default:
		return errors.NewConfiguration(fmt.Sprintf("unknown RENDER_BACKEND %q", c.RenderBackend), nil)
	}

	switch c.StoreDriver {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.NewConfiguration("DATABASE_URL is required for STORE_DRIVER=postgres", nil)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.NewConfiguration("SQLITE_PATH is required for STORE_DRIVER=sqlite", nil)
		}
	default:
		return errors.NewConfiguration(fmt.Sprintf("unknown STORE_DRIVER %q", c.StoreDriver), nil)
	}

	if c.RedisAddr != "" && c.RedisStreamCount <= 0 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be positive", nil)
	}
	return nil
}

// StoreDSN returns the connection string for the selected store driver
func (c *Config) StoreDSN() string {
	if c.StoreDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.DatabaseURL
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
