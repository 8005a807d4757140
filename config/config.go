package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars. Missing signing
// or mail credentials are fatal here rather than halfway through a request.
type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret  string
	SessionTTL time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	ResetURLBase string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:         fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:    strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")),
		SessionTTL:   4 * time.Hour,
		SMTPHost:     strings.TrimSpace(os.Getenv("MAIL_HOST")),
		SMTPPort:     587,
		SMTPUsername: strings.TrimSpace(os.Getenv("MAIL_USER")),
		SMTPPassword: os.Getenv("MAIL_PASS"),
		ResetURLBase: fallback(os.Getenv("RESET_URL_BASE"), "http://localhost:5500/frontend/html/index.html"),
	}

	if v := os.Getenv("MAIL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("MAIL_PORT must be a number")
		}
		cfg.SMTPPort = port
	}
	if v := os.Getenv("SESSION_TTL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return nil, errors.New("SESSION_TTL_MINUTES must be a positive number")
		}
		cfg.SessionTTL = time.Duration(minutes) * time.Minute
	}

	cfg.MailFrom = fallback(os.Getenv("MAIL_FROM"), "TheSweetBaker Co. <"+cfg.SMTPUsername+">")

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	if cfg.SMTPHost == "" || cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
		return nil, errors.New("MAIL_HOST, MAIL_USER and MAIL_PASS must be configured")
	}

	return cfg, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
