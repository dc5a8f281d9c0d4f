package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Resolution pipeline
	ConnectTimeout       time.Duration // per-call connect timeout for redirect probing
	UseLocalCache        bool          // consult/record learned input->resolved mappings
	UseBuiltInCache      bool          // consult the shipped redirector table
	AllowExternalService bool          // allow the remote resolution service
	AllowDarknets        bool          // resolve onion/i2p/lokinet hosts at all
	UserAgent            string        // User-Agent sent on HEAD/GET probes
	MaxBodyBytes         int64         // cap on GET body capture for unfurling

	// Remote resolution service (optional; required when AllowExternalService)
	RemoteEndpoint      string // POST endpoint performing server-side resolution
	RemoteToken         string // bearer token for the endpoint
	RemoteResolvedField string // response field carrying the resolved URL

	// Static bundles
	BuiltinCachePath string        // sqlite db shipped with the app ("" = disabled)
	DirectoryFile    string        // frontend service/instance directory (yaml)
	PreferencesFile  string        // user substitution preferences (yaml, optional)
	DynamicRulesFile string        // live-reloadable substitution rules (yaml, optional)
	SnapshotFile     string        // installed-handler snapshot (yaml)
	ReloadInterval   time.Duration // interval to reload dynamic rules + snapshot

	// Connectivity probe
	ProbeHost    string        // hostname resolved to decide "internet reachable"
	ProbeTimeout time.Duration // timeout for the probe

	// Browser-handling policy for target selection
	BrowserMode      string   // "always_ask" | "none" | "selected" | "whitelisted"
	SelectedBrowser  string   // package for "selected" mode
	BrowserWhitelist []string // packages for "whitelisted" mode

	// Redis (local resolution cache; only required when UseLocalCache)
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries (grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers

	// Per-IP rate limit on the resolution endpoints; each request can fan
	// out into network probes, so abuse is amplified.
	RateBurst     int // bucket capacity
	RateRefillMin int // tokens refilled per IP per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LINKSIFT_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LINKSIFT_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LINKSIFT_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKSIFT_PRETTY_LOG", true),

		// Resolution pipeline
		ConnectTimeout:       mustDuration("LINKSIFT_CONNECT_TIMEOUT", 5*time.Second),
		UseLocalCache:        mustBool("LINKSIFT_LOCAL_CACHE", true),
		UseBuiltInCache:      mustBool("LINKSIFT_BUILTIN_CACHE", true),
		AllowExternalService: mustBool("LINKSIFT_EXTERNAL_SERVICE", false),
		AllowDarknets:        mustBool("LINKSIFT_ALLOW_DARKNETS", false),
		UserAgent:            getenv("LINKSIFT_USER_AGENT", "Mozilla/5.0 (compatible; linksift)"),
		MaxBodyBytes:         int64(getenvInt("LINKSIFT_MAX_BODY_BYTES", 1<<20)),

		RemoteEndpoint:      getenv("LINKSIFT_REMOTE_ENDPOINT", ""),
		RemoteToken:         getenv("LINKSIFT_REMOTE_TOKEN", ""),
		RemoteResolvedField: getenv("LINKSIFT_REMOTE_RESOLVED_FIELD", "resolvedUrl"),

		// Static bundles
		BuiltinCachePath: getenv("LINKSIFT_BUILTIN_CACHE_PATH", ""),
		DirectoryFile:    getenv("LINKSIFT_DIRECTORY_FILE", "/app/directory.yaml"),
		PreferencesFile:  getenv("LINKSIFT_PREFERENCES_FILE", ""),
		DynamicRulesFile: getenv("LINKSIFT_DYNAMIC_RULES_FILE", ""),
		SnapshotFile:     getenv("LINKSIFT_SNAPSHOT_FILE", "/app/handlers.yaml"),
		ReloadInterval:   mustDuration("LINKSIFT_RELOAD_INTERVAL", 24*time.Hour),

		// Connectivity probe
		ProbeHost:    getenv("LINKSIFT_PROBE_HOST", "dns.google"),
		ProbeTimeout: mustDuration("LINKSIFT_PROBE_TIMEOUT", 2*time.Second),

		// Browser-handling policy
		BrowserMode:      getenv("LINKSIFT_BROWSER_MODE", "always_ask"),
		SelectedBrowser:  getenv("LINKSIFT_SELECTED_BROWSER", ""),
		BrowserWhitelist: splitAndTrim(getenv("LINKSIFT_BROWSER_WHITELIST", "")),

		// Redis settings
		RedisAddr:           getenv("LINKSIFT_REDIS_ADDR", ""),
		RedisUser:           getenv("LINKSIFT_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("LINKSIFT_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("LINKSIFT_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("LINKSIFT_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("LINKSIFT_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("LINKSIFT_TRUST_PROXY", false),

		// Rate limiting
		RateBurst:     getenvInt("LINKSIFT_RATE_BURST", 20),
		RateRefillMin: getenvInt("LINKSIFT_RATE_REFILL_PER_MIN", 60),
	}

	// Local cache needs a backing store
	if cfg.UseLocalCache && cfg.RedisAddr == "" {
		panic("❌ FATAL: LINKSIFT_REDIS_ADDR is required when LINKSIFT_LOCAL_CACHE=true")
	}

	// Remote resolution needs an endpoint
	if cfg.AllowExternalService && cfg.RemoteEndpoint == "" {
		panic("❌ FATAL: LINKSIFT_REMOTE_ENDPOINT is required when LINKSIFT_EXTERNAL_SERVICE=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.RemoteToken = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
