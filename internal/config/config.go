package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr           string
	Port                 string
	DatabaseDriver       string
	DatabasePath         string
	DatabaseDSN          string
	SessionSecret        string
	GinMode              string
	AppEnv               string
	LogLevel             string
	SuperRootUserName    string
	SuperRootPassword    string
	ExecutorInterval     time.Duration
	ClaimLease           time.Duration
	VersionAllocAttempts int
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOrDefault("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	driver := strings.ToLower(envOrDefault("DATABASE_DRIVER", "sqlite"))

	return AppConfig{
		ListenAddr:           listenAddr,
		Port:                 port,
		DatabaseDriver:       driver,
		DatabasePath:         envOrDefault("DATABASE_PATH", "tutorialcms.db"),
		DatabaseDSN:          strings.TrimSpace(os.Getenv("DATABASE_DSN")),
		SessionSecret:        envOrDefault("SESSION_SECRET", "tutorialcms-dev-secret"),
		GinMode:              envOrDefault("GIN_MODE", "release"),
		AppEnv:               envOrDefault("APP_ENV", "production"),
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
		SuperRootUserName:    strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword:    strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
		ExecutorInterval:     envDuration("EXECUTOR_INTERVAL", 0),
		ClaimLease:           envDuration("CLAIM_LEASE", 0),
		VersionAllocAttempts: envInt("VERSION_ALLOC_ATTEMPTS", 5),
	}
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// envDuration 解析 time.ParseDuration 格式，非法或负值回退到默认值。
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
