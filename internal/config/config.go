// Package config loads runtime settings from defaults, an optional YAML
// file named by CONFIG_FILE, and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"port"`
	RunLocal bool   `mapstructure:"run_local"`

	OrdersTable          string        `mapstructure:"orders_table"`
	CountersTable        string        `mapstructure:"counters_table"`
	CustomersTable       string        `mapstructure:"customers_table"`
	SettingsTable        string        `mapstructure:"settings_table"`
	NotificationLogTable string        `mapstructure:"notification_log_table"`
	IdempotencyTable     string        `mapstructure:"idempotency_table"`
	IdempotencyTTL       time.Duration `mapstructure:"idempotency_ttl"`

	TrackingQueueURL    string `mapstructure:"tracking_queue_url"`
	TrackingConcurrency int    `mapstructure:"tracking_concurrency"`
	MetricsNamespace    string `mapstructure:"metrics_namespace"`

	Razorpay RazorpayConfig `mapstructure:"razorpay"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	Courier  CourierConfig  `mapstructure:"courier"`
}

type RazorpayConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type WhatsAppConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	PhoneNumberID string        `mapstructure:"phone_number_id"`
	AccessToken   string        `mapstructure:"access_token"`
	Language      string        `mapstructure:"language"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type CourierConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"port":                     "8080",
	"run_local":                false,
	"orders_table":             "Orders",
	"counters_table":           "Counters",
	"customers_table":          "Customers",
	"settings_table":           "Settings",
	"notification_log_table":   "NotificationLog",
	"idempotency_table":        "IdempotencyKeys",
	"idempotency_ttl":          "48h",
	"tracking_queue_url":       "",
	"tracking_concurrency":     8,
	"metrics_namespace":        "OrderFlow",
	"razorpay.webhook_secret":  "",
	"whatsapp.base_url":        "https://graph.facebook.com/v19.0",
	"whatsapp.phone_number_id": "",
	"whatsapp.access_token":    "",
	"whatsapp.language":        "en",
	"whatsapp.timeout":         "10s",
	"courier.base_url":         "https://track.delhivery.com",
	"courier.token":            "",
	"courier.timeout":          "10s",
}

// Load reads the configuration. Every key can be overridden by its upper
// case environment name with dots replaced by underscores, e.g.
// WHATSAPP_ACCESS_TOKEN.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.TrackingConcurrency <= 0 {
		return nil, fmt.Errorf("tracking_concurrency must be positive, got %d", cfg.TrackingConcurrency)
	}
	return &cfg, nil
}
