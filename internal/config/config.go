package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	TeacherVerificationTTL time.Duration
	AnalyticsCacheTTL      time.Duration
	SweepInterval          time.Duration
	MonitorChannel         string
	EventRateLimit         int
	EventRateWindow        time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VIGILO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Vigilo Security API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("verification.ttl", "30m")
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("sweep.interval", "1m")
	v.SetDefault("monitor.channel", "vigilo:security")
	v.SetDefault("event.rate_limit", 120)
	v.SetDefault("event.rate_window", "1m")

	verificationTTL, err := parseDuration(v.GetString("verification.ttl"), "verification ttl")
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := parseDuration(v.GetString("analytics.cache_ttl"), "analytics cache ttl")
	if err != nil {
		return Config{}, err
	}

	sweepInterval, err := parseDuration(v.GetString("sweep.interval"), "sweep interval")
	if err != nil {
		return Config{}, err
	}

	rateWindow, err := parseDuration(v.GetString("event.rate_window"), "event rate window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		TeacherVerificationTTL: verificationTTL,
		AnalyticsCacheTTL:      cacheTTL,
		SweepInterval:          sweepInterval,
		MonitorChannel:         v.GetString("monitor.channel"),
		EventRateLimit:         v.GetInt("event.rate_limit"),
		EventRateWindow:        rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.EventRateLimit <= 0 {
		cfg.EventRateLimit = 120
	}

	return cfg, nil
}

func parseDuration(raw, label string) (time.Duration, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing %s", label)
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", label, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", label)
	}

	return d, nil
}
