package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Store
	StoreBackend       string        // redis | badger | memory
	StoreTimeout       time.Duration // per-operation deadline (ex: 3s)
	MaxConflictRetries int           // optimistic retries before Conflict
	StoreRetryBackoff  time.Duration // initial backoff between store retries
	BadgerPath         string        // badger data directory

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Catalogue
	AdminUsers []string      // user ids allowed to fully delete records
	OrphanTTL  time.Duration // 0 disables the orphan collector
	GCInterval time.Duration // orphan collector interval (default: 24h)
	LegacyKey  string        // redis key of the legacy whole-collection blob
	SeedFile   string        // optional catalogue imported at startup

	// HTTP
	AllowedCIDRS    []string // optional, restrict ops endpoints to these networks
	TrustProxy      bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins     []string // allowed CORS origins
	WriteRatePerMin int      // per-IP write requests per minute, 0 = unlimited
	WriteBurst      int      // per-IP write burst
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("VINYLIB_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("VINYLIB_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("VINYLIB_LOG_LEVEL", "info"),
		PrettyLog: mustBool("VINYLIB_PRETTY_LOG", true),

		// Store settings
		StoreBackend:       strings.ToLower(getenv("VINYLIB_STORE_BACKEND", BackendRedis)),
		StoreTimeout:       mustDuration("VINYLIB_STORE_TIMEOUT", 3*time.Second),
		MaxConflictRetries: getenvInt("VINYLIB_STORE_MAX_CONFLICT_RETRIES", 5),
		StoreRetryBackoff:  mustDuration("VINYLIB_STORE_RETRY_BACKOFF", 50*time.Millisecond),
		BadgerPath:         getenv("VINYLIB_BADGER_PATH", "./data"),

		// Redis settings
		RedisUser:             getenv("VINYLIB_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("VINYLIB_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("VINYLIB_REDIS_PASSWORD", ""),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Catalogue
		AdminUsers: splitAndTrim(getenv("VINYLIB_ADMIN_USERS", "")),
		OrphanTTL:  mustDuration("VINYLIB_ORPHAN_TTL", 0),
		GCInterval: mustDuration("VINYLIB_GC_INTERVAL", 24*time.Hour),
		LegacyKey:  getenv("VINYLIB_LEGACY_KEY", "vinyls"),
		SeedFile:   getenv("VINYLIB_SEED_FILE", ""),

		// Access restrictions
		AllowedCIDRS:    parseAllowedIPs(getenv("VINYLIB_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("VINYLIB_TRUST_PROXY", true),
		CORSOrigins:     splitAndTrim(getenv("VINYLIB_CORS_ORIGINS", "*")),
		WriteRatePerMin: getenvInt("VINYLIB_WRITE_RATE_PER_MIN", 60),
		WriteBurst:      getenvInt("VINYLIB_WRITE_BURST", 20),
	}

	switch cfg.StoreBackend {
	case BackendRedis:
		cfg.RedisAddr = requireEnv("VINYLIB_REDIS_ADDR")
		cfg.RedisDB = getenvInt("VINYLIB_REDIS_DB", 0)
		// Validate Redis password configuration
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: VINYLIB_REDIS_PASSWORD is required when VINYLIB_REDIS_PASSWORD_REQUIRED=true")
		}
	case BackendBadger, BackendMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown VINYLIB_STORE_BACKEND %q (want redis, badger or memory)", cfg.StoreBackend))
	}

	if cfg.MaxConflictRetries < 0 {
		panic(fmt.Sprintf("❌ FATAL: VINYLIB_STORE_MAX_CONFLICT_RETRIES must be >= 0, got %d", cfg.MaxConflictRetries))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// IsAdmin reports whether userID is listed in VINYLIB_ADMIN_USERS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
