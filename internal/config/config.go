package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the gateway and supporting
// services. Throttling values are policy knobs, not constants: deployments
// have run with different cooldowns and ceilings, so everything is
// overridable from the environment.
type Config struct {
	Env        string
	ListenAddr string

	// Upstream image API. The credential never leaves the server process.
	ImageAPIKey    string
	ImageAPIURL    string
	ImageModel     string
	ImageWidth     int
	ImageHeight    int
	ImageStyle     string
	RequestTimeout time.Duration

	// Identity provider session gate. Empty secret disables the gate;
	// IdentityURL, when set, is enforced as the token issuer.
	IdentityJWTSecret string
	IdentityURL       string

	AllowedOrigins []string

	// Server-side gatekeeper policy.
	RateLimitMax      int
	RateLimitWindow   time.Duration
	RateLimitCooldown time.Duration
	DedupWindow       time.Duration
	SweepInterval     time.Duration

	// Client-side guard policy.
	GuardCooldown time.Duration
	SessionQuota  int
	CacheTTL      time.Duration
	CacheCapacity int

	// Optional shared stores and persistence.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MySQLDSN      string

	// Optional S3 share storage for generated images.
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultImageAPIURL = "https://api.getimg.ai/v1/stable-diffusion/text-to-image"

	cfg := Config{
		Env:               strings.ToLower(getEnv("APP_ENV", "production")),
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		ImageAPIURL:       normalizeEndpoint(getEnv("IMAGE_API_URL", defaultImageAPIURL), defaultImageAPIURL),
		ImageModel:        getEnv("IMAGE_MODEL", "pixel-art-diffusion"),
		ImageWidth:        getInt("IMAGE_WIDTH", 512),
		ImageHeight:       getInt("IMAGE_HEIGHT", 512),
		ImageStyle:        getEnv("IMAGE_STYLE", "pixel-art"),
		RequestTimeout:    time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 30)),
		IdentityURL:       getEnv("IDENTITY_URL", ""),
		AllowedOrigins:    getList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitMax:      getInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitCooldown: getDuration("RATE_LIMIT_COOLDOWN", time.Minute),
		DedupWindow:       getDuration("DEDUP_WINDOW", 10*time.Second),
		SweepInterval:     getDuration("SWEEP_INTERVAL", 2*time.Minute),
		GuardCooldown:     getDuration("GUARD_COOLDOWN", 2*time.Second),
		SessionQuota:      getInt("SESSION_QUOTA", 50),
		CacheTTL:          getDuration("CACHE_TTL", 30*time.Minute),
		CacheCapacity:     getInt("CACHE_CAPACITY", 20),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getInt("REDIS_DB", 0),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          os.Getenv("S3_REGION"),
		S3AccessKey:       os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:       os.Getenv("S3_SECRET_KEY"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:    getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:          getEnv("S3_PREFIX", "generations"),
	}

	// A missing credential is not fatal at startup: the handler answers
	// "not configured" per request instead, and never echoes the value.
	cfg.ImageAPIKey = os.Getenv("IMAGE_API_KEY")
	cfg.IdentityJWTSecret = os.Getenv("IDENTITY_JWT_SECRET")
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")

	if cfg.RateLimitMax <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", cfg.RateLimitMax)
	}
	if cfg.CacheCapacity <= 0 {
		return Config{}, fmt.Errorf("CACHE_CAPACITY must be positive, got %d", cfg.CacheCapacity)
	}

	return cfg, nil
}

// S3Enabled reports whether the optional share uploader is fully configured.
func (c Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != "" && c.S3AccessKey != "" &&
		c.S3SecretKey != "" && c.S3PublicBaseURL != ""
}

// normalizeEndpoint ensures the upstream URL is absolute with an https scheme.
// Some deployments configure the bare host, which would otherwise produce
// relative-URL request errors at call time.
func normalizeEndpoint(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return parsed.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// No env file is fine; the process environment is enough.
	return nil
}
