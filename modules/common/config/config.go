package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTextModel          = "gemini-2.5-flash"
	DefaultImageModel         = "gemini-2.5-flash-image-preview"
	DefaultPort               = "8080"
	DefaultSessionTTL         = 2 * time.Hour
	DefaultRequestTimeout     = 120 * time.Second
	DefaultRateLimitPerMinute = 10
	DefaultMaxUploadBytes     = 10 << 20
)

// Config - 모든 환경변수를 담는 설정 구조체
type Config struct {
	// Redis (optional, enables shared generation stats)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Gemini API
	GeminiAPIKey     string
	GeminiTextModel  string
	GeminiImageModel string

	// Server
	Port   string
	AppEnv string

	// Workflow
	SessionTTL         time.Duration
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	MaxUploadBytes     int64

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For header
	// is believed when identifying clients for the rate limit.
	TrustedProxies []string
}

// LoadConfig - .env 및 환경변수에서 설정을 읽고 검증합니다.
// The returned Config is meant to be built once at startup and passed down.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("[Config] .env file not found, using environment variables")
	}

	cfg := &Config{
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getEnvBool("REDIS_USE_TLS", false),

		GeminiAPIKey:     strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		GeminiTextModel:  getEnv("GEMINI_TEXT_MODEL", DefaultTextModel),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", DefaultImageModel),

		Port:   getEnv("PORT", DefaultPort),
		AppEnv: getEnv("APP_ENV", "production"),

		SessionTTL:         getEnvDuration("SESSION_TTL", DefaultSessionTTL),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", DefaultRequestTimeout),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", DefaultRateLimitPerMinute),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("text_model", cfg.GeminiTextModel).
		Str("image_model", cfg.GeminiImageModel).
		Bool("redis", cfg.RedisEnabled()).
		Dur("session_ttl", cfg.SessionTTL).
		Msg("✅ [Config] configuration loaded")

	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required: set it in the environment or a .env file")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	for _, p := range c.TrustedProxies {
		if _, err := ParseProxy(p); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
	}
	return nil
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// ParseProxy accepts a single IP ("10.0.0.1") or a CIDR ("10.0.0.0/8").
func ParseProxy(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid proxy %q: %w", s, err)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid proxy %q: %w", s, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// IsDevelopment is true when APP_ENV is "development".
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", raw).Msg("[Config] invalid bool, using default")
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", raw).Msg("[Config] invalid int, using default")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", raw).Msg("[Config] invalid duration, using default")
	}
	return defaultValue
}

// getEnvList - 쉼표로 구분된 값 목록
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
