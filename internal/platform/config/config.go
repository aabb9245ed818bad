package config

import (
	"os"
	"strconv"
	"time"
)

// Client captures configuration for the identity client and the session
// refresh loop.
type Client struct {
	// IdentityBaseURL is the root of the hosted identity service.
	IdentityBaseURL string
	// PublicAPIKey authenticates anonymous calls (register, verification).
	PublicAPIKey string

	// RefreshThreshold is the remaining token life below which a proactive
	// refresh is issued.
	RefreshThreshold time.Duration
	// RefreshInterval is the scheduler period for expiry checks.
	RefreshInterval time.Duration
	// ExpiredRedirectDelay is the pause between the session-expired notice
	// and the login redirect, so the notice is seen before navigation.
	ExpiredRedirectDelay time.Duration

	// ResendCooldown throttles verification re-sends.
	ResendCooldown time.Duration
	// DraftTTL bounds how long an in-progress registration draft survives.
	DraftTTL time.Duration

	LogLevel string
	OpsAddr  string
}

// Redis configures the optional Redis backing for token and draft storage.
// An empty URL means in-memory storage.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Client config from environment variables so main stays lean.
func FromEnv() Client {
	base := os.Getenv("IDENTIKIT_IDENTITY_URL")
	if base == "" {
		base = "http://localhost:8788"
	}

	opsAddr := os.Getenv("IDENTIKIT_OPS_ADDR")
	if opsAddr == "" {
		opsAddr = ":9464"
	}

	logLevel := os.Getenv("IDENTIKIT_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return Client{
		IdentityBaseURL:      base,
		PublicAPIKey:         os.Getenv("IDENTIKIT_PUBLIC_API_KEY"),
		RefreshThreshold:     durationEnv("IDENTIKIT_REFRESH_THRESHOLD", 5*time.Minute),
		RefreshInterval:      durationEnv("IDENTIKIT_REFRESH_INTERVAL", 60*time.Second),
		ExpiredRedirectDelay: durationEnv("IDENTIKIT_EXPIRED_REDIRECT_DELAY", 2*time.Second),
		ResendCooldown:       durationEnv("IDENTIKIT_RESEND_COOLDOWN", 60*time.Second),
		DraftTTL:             durationEnv("IDENTIKIT_DRAFT_TTL", 24*time.Hour),
		LogLevel:             logLevel,
		OpsAddr:              opsAddr,
	}
}

// RedisFromEnv builds a Redis config from environment variables.
func RedisFromEnv() Redis {
	return Redis{
		URL:          os.Getenv("IDENTIKIT_REDIS_URL"),
		PoolSize:     intEnv("IDENTIKIT_REDIS_POOL_SIZE", 10),
		MinIdleConns: intEnv("IDENTIKIT_REDIS_MIN_IDLE", 2),
		DialTimeout:  durationEnv("IDENTIKIT_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  durationEnv("IDENTIKIT_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: durationEnv("IDENTIKIT_REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
