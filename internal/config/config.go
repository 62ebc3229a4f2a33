package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis (선택, 비어 있으면 in-memory rate limit 사용)
	RedisURL string

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Matching
	MatchCooldown            time.Duration // 같은 쌍 재매칭 금지 기간
	MatchLongWait            time.Duration // fallback 허용 대기 시간
	MatchFallbackRequireBoth bool          // fallback 시 양쪽 모두 오래 기다려야 하는지
	MatchRetryDelay          time.Duration // 매칭 실패 시 재시도 지연

	// WebSocket
	WSGracePeriod       time.Duration // 끊김 → 진짜 끊김 판정까지의 유예
	WSReplaceCloseDelay time.Duration // 새 연결로 교체 시 이전 소켓 종료 지연
	WSMessageRateLimit  int64         // 연결당 초당 메시지 허용량
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret:     getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiration: parseDuration(getEnv("JWT_EXPIRATION", "24h"), 24*time.Hour),

		CORSAllowedOrigins: splitEnv(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		MatchCooldown:            parseDuration(getEnv("MATCH_COOLDOWN", "10m"), 10*time.Minute),
		MatchLongWait:            parseDuration(getEnv("MATCH_FALLBACK_WAIT", "2m"), 2*time.Minute),
		MatchFallbackRequireBoth: parseBool(getEnv("MATCH_FALLBACK_REQUIRE_BOTH", "true"), true),
		MatchRetryDelay:          parseDuration(getEnv("MATCH_RETRY_DELAY", "50ms"), 50*time.Millisecond),

		WSGracePeriod:       parseDuration(getEnv("WS_GRACE_PERIOD", "350ms"), 350*time.Millisecond),
		WSReplaceCloseDelay: parseDuration(getEnv("WS_REPLACE_CLOSE_DELAY", "200ms"), 200*time.Millisecond),
		WSMessageRateLimit:  parseInt(getEnv("WS_MESSAGE_RATE_LIMIT", "10"), 10),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitEnv(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseBool(s string, defaultValue bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return b
}

func parseInt(s string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
