// Package config loads storefront settings.
//
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_API_BASE_URL)
// 2. storefront.toml
// 3. Built-in defaults
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	Log     LogConfig
	API     APIConfig
	Shopper ShopperConfig
	Display DisplayConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Rate    RateConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type LogConfig struct {
	Level string
}

// APIConfig points at the remote shop service.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ShopperConfig struct {
	ID string
}

type DisplayConfig struct {
	Locale         string
	CurrencySymbol string
}

// RedisConfig enables the snapshot cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// KafkaConfig enables the intent journal and the event consumer when
// Brokers is non-empty.
type KafkaConfig struct {
	Brokers     []string
	IntentTopic string
	StockTopic  string
	OrderTopic  string
	GroupID     string
}

// RateConfig limits requests per client on the presentation server.
type RateConfig struct {
	Limit float64
	Burst int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("shopper.id", "user123")
	v.SetDefault("display.locale", "ko")
	v.SetDefault("display.currency_symbol", "₩")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.intent_topic", "storefront-intent-topic")
	v.SetDefault("kafka.stock_topic", "stock-topic")
	v.SetDefault("kafka.order_topic", "order-topic")
	v.SetDefault("kafka.group_id", "storefront-group")
	v.SetDefault("rate.limit", 10.0)
	v.SetDefault("rate.burst", 20)
}

// Load reads storefront.toml from the working directory or any of
// searchPaths, then applies environment overrides.
func Load(searchPaths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("storefront")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("api.base_url"), "/"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Shopper: ShopperConfig{
			ID: strings.TrimSpace(v.GetString("shopper.id")),
		},
		Display: DisplayConfig{
			Locale:         v.GetString("display.locale"),
			CurrencySymbol: v.GetString("display.currency_symbol"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitBrokers(v.Get("kafka.brokers")),
			IntentTopic: v.GetString("kafka.intent_topic"),
			StockTopic:  v.GetString("kafka.stock_topic"),
			OrderTopic:  v.GetString("kafka.order_topic"),
			GroupID:     v.GetString("kafka.group_id"),
		},
		Rate: RateConfig{
			Limit: v.GetFloat64("rate.limit"),
			Burst: v.GetInt("rate.burst"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitBrokers accepts a comma separated string (env, flat toml) or a toml array.
func splitBrokers(raw any) []string {
	var parts []string
	switch b := raw.(type) {
	case string:
		parts = strings.Split(b, ",")
	case []string:
		parts = b
	case []any:
		for _, p := range b {
			parts = append(parts, fmt.Sprint(p))
		}
	}

	var brokers []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Shopper.ID == "" {
		return fmt.Errorf("shopper.id is required")
	}
	if c.Rate.Limit <= 0 || c.Rate.Burst <= 0 {
		return fmt.Errorf("rate.limit and rate.burst must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.GroupID == "" {
		return fmt.Errorf("kafka.group_id is required when kafka.brokers is set")
	}
	if c.App.Env == "production" && strings.HasPrefix(c.API.BaseURL, "http://localhost") {
		return fmt.Errorf("api.base_url cannot point at localhost in production")
	}
	return nil
}

// RedisEnabled reports whether the snapshot cache should be wired.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// KafkaEnabled reports whether the journal and consumer should be wired.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// LogLevel parses log.level, falling back to info.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
