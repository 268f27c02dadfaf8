package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все настройки приложения
type Config struct {
	Port string
	DSN  string

	// TTL токенов по типу ("access", "refresh")
	TokenTypeTTL map[string]time.Duration

	// Срок действия эскроу-депозита по умолчанию
	EscrowExpireHours int
	// Интервал фонового пересчёта просроченных эскроу
	EscrowSweepInterval time.Duration

	// Redis для кеша чатов (пустой адрес — кеш выключен)
	RedisAddr     string
	ChatCacheSize int64

	// MinIO для изображений товаров и вложений чата
	// (пустой endpoint — in-memory заглушка для dev-режима)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// Load читает .env (если есть) и возвращает заполненный Config
func Load() (*Config, error) {
	// Попробуем загрузить файл .env — если его нет, просто пропускаем
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN must be set")
	}

	cfg := &Config{
		Port: port,
		DSN:  dsn,
		TokenTypeTTL: map[string]time.Duration{
			"access":  envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			"refresh": envDuration("REFRESH_TOKEN_TTL", 720*time.Hour),
		},
		EscrowExpireHours:   envInt("ESCROW_EXPIRE_HOURS", 24),
		EscrowSweepInterval: envDuration("ESCROW_SWEEP_INTERVAL", time.Hour),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		ChatCacheSize:       int64(envInt("CHAT_CACHE_SIZE", 50)),
		MinioEndpoint:       os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:      os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:         os.Getenv("MINIO_BUCKET"),
		MinioUseSSL:         os.Getenv("MINIO_USE_SSL") == "true",
	}
	if cfg.MinioBucket == "" {
		cfg.MinioBucket = "campusmarket"
	}
	return cfg, nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
