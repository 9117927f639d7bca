package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DISPLAY_TIMEZONE must resolve in minimal containers

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/weather-warnings-service/internal/domain"
)

// Cache backends selectable via CACHE_BACKEND.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendValkey = "valkey"
)

// Config holds all service settings, populated from environment variables.
// The env tag names the variable so validation errors point at it.
type Config struct {
	// Warnings defaults, overridable per request.
	APIKey               string `env:"OWM_API_KEY"`
	Location             string `env:"WARNINGS_LOCATION"`
	MaxWarnings          int    `env:"MAX_WARNINGS" validate:"gte=0"`
	CacheLifetimeSeconds int    `env:"CACHE_LIFETIME_SECONDS"`
	Language             string `env:"WARNINGS_LANGUAGE" validate:"len=2"`

	// OpenWeather API.
	Units      string        `env:"OWM_UNITS" validate:"oneof=standard metric imperial"`
	BaseURL    string        `env:"OWM_BASE_URL" validate:"required,url"`
	GeoBaseURL string        `env:"OWM_GEO_BASE_URL" validate:"required,url"`
	Timeout    time.Duration `env:"OWM_TIMEOUT" validate:"gt=0"`

	// Classification and display.
	SeverityStrategy domain.Strategy `env:"SEVERITY_STRATEGY"`
	TimeLayout       string          `env:"DISPLAY_TIME_LAYOUT" validate:"required"`
	TimeZone         *time.Location  `env:"DISPLAY_TIMEZONE"`

	// Result and geocoding caches.
	CacheBackend     string `env:"CACHE_BACKEND" validate:"oneof=memory redis valkey"`
	CacheSize        int    `env:"CACHE_SIZE" validate:"gt=0"`
	GeocodeCacheSize int    `env:"GEOCODE_CACHE_SIZE" validate:"gt=0"`
	RedisAddr        string `env:"REDIS_ADDR" validate:"required_if=CacheBackend redis"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RedisDB          int    `env:"REDIS_DB" validate:"gte=0"`
	ValkeyAddr       string `env:"VALKEY_ADDR" validate:"required_if=CacheBackend valkey"`

	// Alert feed. An empty broker list disables it.
	KafkaBrokers    []string `env:"KAFKA_BROKERS"`
	KafkaAlertTopic string   `env:"KAFKA_ALERT_TOPIC" validate:"required_with=KafkaBrokers"`

	HTTPAddr        string        `env:"HTTP_ADDR" validate:"required"`
	LogLevel        string        `env:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	LogFormat       string        `env:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

// FeedEnabled reports whether alert sets should be published to Kafka.
func (c *Config) FeedEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("OWM_TIMEOUT", "10s"))
	if err != nil {
		return nil, errors.New("invalid OWM_TIMEOUT")
	}

	strategy, err := domain.ParseStrategy(sharedcfg.EnvOrDefault("SEVERITY_STRATEGY", string(domain.StrategyUpstream)))
	if err != nil {
		return nil, fmt.Errorf("invalid SEVERITY_STRATEGY: %w", err)
	}

	tz, err := time.LoadLocation(sharedcfg.EnvOrDefault("DISPLAY_TIMEZONE", "Europe/Berlin"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE: %w", err)
	}

	ints := map[string]int{}
	for key, def := range map[string]int{
		"MAX_WARNINGS":           5,
		"CACHE_LIFETIME_SECONDS": 1800,
		"CACHE_SIZE":             256,
		"GEOCODE_CACHE_SIZE":     1000,
		"REDIS_DB":               0,
	} {
		n, err := envInt(key, def)
		if err != nil {
			return nil, err
		}
		ints[key] = n
	}

	cfg := &Config{
		APIKey:               strings.TrimSpace(os.Getenv("OWM_API_KEY")),
		Location:             strings.TrimSpace(os.Getenv("WARNINGS_LOCATION")),
		MaxWarnings:          ints["MAX_WARNINGS"],
		CacheLifetimeSeconds: ints["CACHE_LIFETIME_SECONDS"],
		Language:             domain.NormalizeLanguage(sharedcfg.EnvOrDefault("WARNINGS_LANGUAGE", domain.DefaultLanguage)),

		Units:      sharedcfg.EnvOrDefault("OWM_UNITS", "metric"),
		BaseURL:    strings.TrimRight(sharedcfg.EnvOrDefault("OWM_BASE_URL", "https://api.openweathermap.org"), "/"),
		GeoBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("OWM_GEO_BASE_URL", "https://api.openweathermap.org"), "/"),
		Timeout:    timeout,

		SeverityStrategy: strategy,
		TimeLayout:       sharedcfg.EnvOrDefault("DISPLAY_TIME_LAYOUT", domain.DefaultTimeLayout),
		TimeZone:         tz,

		CacheBackend:     strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheBackendMemory)),
		CacheSize:        ints["CACHE_SIZE"],
		GeocodeCacheSize: ints["GEOCODE_CACHE_SIZE"],
		RedisAddr:        sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          ints["REDIS_DB"],
		ValkeyAddr:       sharedcfg.EnvOrDefault("VALKEY_ADDR", "localhost:6379"),

		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "weather-warnings"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() func(*Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	return func(cfg *Config) error {
		err := v.Struct(cfg)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("invalid %s (%s)", fe.Field(), fe.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
}

func parseBrokers(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(s)
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, s)
	}
	return n, nil
}
