package services

import (
	"log"
	"os"
	"strconv"
	"time"
)

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %s", key, raw, fallback)
		return fallback
	}
	return v
}
