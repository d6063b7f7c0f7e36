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

// Config зібрана конфігурація сервісу.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	RedisURL    string

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	LogLevel    string
	CORSOrigins []string

	SendRatePerSec float64
	SendBurst      int

	CloseSuperseded bool

	DeliveryQueue            bool
	DeliveryQueueConcurrency int
}

// Load читає .env (якщо він є) та змінні середовища.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getenv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   getenv("JWT_ISSUER", "dmchat-service"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getenv("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(getenv("TOKEN_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("config: TOKEN_TTL: %w", err)
	}
	if cfg.SendRatePerSec, err = strconv.ParseFloat(getenv("SEND_RATE_PER_SEC", "5"), 64); err != nil {
		return nil, fmt.Errorf("config: SEND_RATE_PER_SEC: %w", err)
	}
	if cfg.SendBurst, err = strconv.Atoi(getenv("SEND_BURST", "10")); err != nil {
		return nil, fmt.Errorf("config: SEND_BURST: %w", err)
	}
	if cfg.CloseSuperseded, err = strconv.ParseBool(getenv("WS_CLOSE_SUPERSEDED", "false")); err != nil {
		return nil, fmt.Errorf("config: WS_CLOSE_SUPERSEDED: %w", err)
	}
	if cfg.DeliveryQueue, err = strconv.ParseBool(getenv("DELIVERY_QUEUE", "true")); err != nil {
		return nil, fmt.Errorf("config: DELIVERY_QUEUE: %w", err)
	}
	if cfg.DeliveryQueueConcurrency, err = strconv.Atoi(getenv("DELIVERY_QUEUE_CONCURRENCY", "10")); err != nil {
		return nil, fmt.Errorf("config: DELIVERY_QUEUE_CONCURRENCY: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is not set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
