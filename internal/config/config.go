package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// RunPod / ComfyUI generation backend
	RunPodAPIURL string
	RunPodAPIKey string

	// Generation polling (server -> ComfyUI)
	GenerationPollInterval time.Duration
	GenerationMaxAttempts  int

	// Background dispatch
	WorkerCount  int
	QueueSize    int
	StaleJobAge  time.Duration
	ReapInterval time.Duration

	// Admin API
	AdminJWTSecret string

	// Database
	DatabaseURL string

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	cfg := &Config{
		RunPodAPIURL: getEnv("RUNPOD_API_URL", ""),
		RunPodAPIKey: getEnv("RUNPOD_API_KEY", ""),

		GenerationPollInterval: getDurationEnv("GENERATION_POLL_INTERVAL", 2*time.Second),
		GenerationMaxAttempts:  getIntEnv("GENERATION_MAX_ATTEMPTS", 30),

		WorkerCount:  getIntEnv("WORKER_COUNT", 4),
		QueueSize:    getIntEnv("QUEUE_SIZE", 64),
		StaleJobAge:  getDurationEnv("STALE_JOB_AGE", 10*time.Minute),
		ReapInterval: getDurationEnv("REAP_INTERVAL", time.Minute),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.RunPodAPIURL == "" {
		return fmt.Errorf("RUNPOD_API_URL is required")
	}
	if c.RunPodAPIKey == "" {
		return fmt.Errorf("RUNPOD_API_KEY is required")
	}
	if c.AdminJWTSecret == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if c.GenerationMaxAttempts < 1 {
		return fmt.Errorf("GENERATION_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
