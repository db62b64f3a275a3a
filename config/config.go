package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// DefaultAPIBaseURL is where the funding backend listens in local development
	DefaultAPIBaseURL = "http://localhost:8000"
	// MaxCacheTTL caps how long a dashboard may show a snapshot without re-fetching
	MaxCacheTTL = 10 * time.Minute
)

type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	// Funding backend
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	// Query cache
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	// Evidence uploads
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	// UploadURLPrefix is the route locally stored evidence is served under
	UploadURLPrefix string `env:"UPLOAD_URL_PREFIX" envDefault:"/evidence/files"`
	// Other
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AppURL         string   `env:"APP_URL" envDefault:"http://localhost:8080"`
	// Cloudflare R2 Storage
	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicURL       string `env:"R2_PUBLIC_URL"`
}

// Load reads .env (if present) and the process environment. Invalid
// configuration is fatal, the same as a missing required secret would be.
func Load() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("[CRITICAL] invalid configuration: %v", err)
	}
	return cfg
}

// Parse is Load without the fatal exit.
func Parse() (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.UploadURLPrefix = strings.TrimRight(strings.TrimSpace(cfg.UploadURLPrefix), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail at first request
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", c.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive, got %s", c.APITimeout)
	}
	if c.CacheTTL <= 0 || c.CacheTTL > MaxCacheTTL {
		return fmt.Errorf("CACHE_TTL must be between 0 and %s, got %s", MaxCacheTTL, c.CacheTTL)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if !strings.HasPrefix(c.UploadURLPrefix, "/") || strings.ContainsAny(c.UploadURLPrefix, "?#*:") {
		return fmt.Errorf("UPLOAD_URL_PREFIX must be an absolute path, got %q", c.UploadURLPrefix)
	}
	if c.UploadURLPrefix == "/static" || strings.HasPrefix(c.UploadURLPrefix, "/static/") {
		return fmt.Errorf("UPLOAD_URL_PREFIX must not be under /static, got %q", c.UploadURLPrefix)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// R2Configured reports whether every R2 credential is present
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}
