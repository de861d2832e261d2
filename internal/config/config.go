package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Upstream
	HNAPIBaseURL      string
	DataSource        string
	APITimeout        time.Duration
	APIRetryCount     int
	OutboundSSRFGuard bool

	// Comments
	MaxCommentDepth int

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.HNAPIBaseURL = os.Getenv("HN_API_BASE_URL")
	if cfg.HNAPIBaseURL == "" {
		missing = append(missing, "HN_API_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DataSource = getEnvString("DATA_SOURCE", "hackernews")
	cfg.APITimeout = time.Duration(getEnvInt("API_TIMEOUT_MS", 10000)) * time.Millisecond
	cfg.APIRetryCount = getEnvInt("API_RETRY_COUNT", 3)
	cfg.OutboundSSRFGuard = getEnvBool("OUTBOUND_SSRF_GUARD", true)
	cfg.MaxCommentDepth = getEnvInt("MAX_COMMENT_DEPTH", 3)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	// 負値はリトライなし・深さ0として扱う
	if cfg.APIRetryCount < 0 {
		cfg.APIRetryCount = 0
	}
	if cfg.MaxCommentDepth < 0 {
		cfg.MaxCommentDepth = 0
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
