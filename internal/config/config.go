package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "SessionGateway"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultSessionTTL     = 30 * 24 * time.Hour
	defaultCookieName     = "session_token"
	defaultOTPTTL         = 5 * time.Minute
	defaultOTPCodeLength  = 6
	defaultOTPMaxAttempts = 5
	defaultOTPGCInterval  = 5 * time.Minute
	defaultUpstreamWait   = 10 * time.Second
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	// Signing key for session credentials. Required, never logged.
	JWTSecret  string
	SessionTTL time.Duration
	CookieName string

	OTPTTL         time.Duration
	OTPCodeLength  int
	OTPMaxAttempts int
	OTPGCInterval  time.Duration

	// Base URL of the upstream resource/identity service.
	UpstreamURL     string
	UpstreamTimeout time.Duration

	// Optional backing stores. When unset the gateway falls back to an
	// in-memory challenge store, which is fine for a single dev instance.
	RedisURL    string
	DatabaseURL string

	ShutdownPeriod time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SessionTTL:      defaultSessionTTL,
		CookieName:      getEnv("SESSION_COOKIE_NAME", defaultCookieName),
		OTPTTL:          defaultOTPTTL,
		OTPCodeLength:   defaultOTPCodeLength,
		OTPMaxAttempts:  defaultOTPMaxAttempts,
		OTPGCInterval:   defaultOTPGCInterval,
		UpstreamURL:     os.Getenv("UPSTREAM_URL"),
		UpstreamTimeout: defaultUpstreamWait,
		RedisURL:        os.Getenv("REDIS_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ShutdownPeriod:  defaultShutdownDelay,
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", cfg.SessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = getDuration("OTP_TTL", cfg.OTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPGCInterval, err = getDuration("OTP_GC_INTERVAL", cfg.OTPGCInterval); err != nil {
		return Config{}, err
	}
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.OTPCodeLength, err = getInt("OTP_CODE_LENGTH", cfg.OTPCodeLength); err != nil {
		return Config{}, err
	}
	if cfg.OTPMaxAttempts, err = getInt("OTP_MAX_ATTEMPTS", cfg.OTPMaxAttempts); err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}
	if cfg.UpstreamURL == "" {
		return Config{}, fmt.Errorf("UPSTREAM_URL must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
