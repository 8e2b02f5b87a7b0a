package config

import (
	"fmt"
	"os"
)

const (
	ServiceName = "obs-purchase"

	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds the environment-specific settings. Everything has a local
// default so the service starts on a developer machine without setup.
type Config struct {
	HTTPAddr string
	Storage  string
	MySQLDSN string
	// RedisAddr empty disables the idempotency cache.
	RedisAddr string
}

func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:  getEnvOrDefault("HTTP_ADDR", ":8080"),
		Storage:   getEnvOrDefault("STORAGE", StorageMySQL),
		MySQLDSN:  getEnvOrDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/obs?parseTime=true"),
		RedisAddr: getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
	}

	if cfg.Storage != StorageMySQL && cfg.Storage != StorageMemory {
		return Config{}, fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMySQL, StorageMemory, cfg.Storage)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
