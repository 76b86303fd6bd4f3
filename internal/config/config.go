// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the cooldown store, the remote distributor,
// faucet timing, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-faucet-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StoreConfig selects and locates the cooldown store.
type StoreConfig struct {
	Driver string // sqlite|postgres|bolt
	Path   string // file path for sqlite and bolt
	DSN    string // postgres DSN
}

// FaucetConfig holds the claim orchestration policy. It is immutable once
// handed to the orchestrator.
type FaucetConfig struct {
	Cooldown      time.Duration // COOLDOWN_SECONDS
	PollInterval  time.Duration // POLL_INTERVAL
	PollDeadline  time.Duration // POLL_DEADLINE, measured from submission
	ExplorerTxURL string        // EXPLORER_TX_URL prefix, optional
}

// DistributorConfig holds the remote distribution service endpoint and
// partner credential.
type DistributorConfig struct {
	BaseURL string        // QN_API_URL
	APIKey  string        // QN_DISTRIBUTOR_KEY
	Timeout time.Duration // DISTRIBUTOR_TIMEOUT, per HTTP round trip
}

// AccessConfig restricts who may use the faucet. Empty values disable the
// corresponding check.
type AccessConfig struct {
	GuildID   string // GUILD_ID
	ChannelID string // FAUCET_CHANNEL_ID
	RoleID    string // BUILDER_ROLE_ID
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must exceed the poll deadline
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	Store       StoreConfig
	Faucet      FaucetConfig
	Distributor DistributorConfig
	Access      AccessConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	store, faucet, err := LoadStore()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Store:  store,
		Faucet: faucet,

		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		Distributor: DistributorConfig{
			BaseURL: strings.TrimRight(getenv("QN_API_URL", ""), "/"),
			APIKey:  getenv("QN_DISTRIBUTOR_KEY", ""),
			Timeout: getdur("DISTRIBUTOR_TIMEOUT", 5*time.Second),
		},
		Access: AccessConfig{
			GuildID:   strings.TrimSpace(getenv("GUILD_ID", "")),
			ChannelID: strings.TrimSpace(getenv("FAUCET_CHANNEL_ID", "")),
			RoleID:    strings.TrimSpace(getenv("BUILDER_ROLE_ID", "")),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 1.0),
		RateBurst: getint("RATE_BURST", 3),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-faucet-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.Distributor.BaseURL == "" {
		return cfg, errors.New("QN_API_URL is required")
	}
	if strings.TrimSpace(cfg.Distributor.APIKey) == "" {
		return cfg, errors.New("QN_DISTRIBUTOR_KEY is required")
	}
	if cfg.Distributor.Timeout <= 0 {
		return cfg, errors.New("DISTRIBUTOR_TIMEOUT must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// LoadStore reads and validates only the cooldown store and faucet policy
// settings. Offline commands that never call the distribution service use it
// so they do not require distributor credentials.
func LoadStore() (StoreConfig, FaucetConfig, error) {
	store := StoreConfig{
		Driver: strings.ToLower(getenv("STORE_DRIVER", DriverSQLite)),
		Path:   getenv("DB_PATH", "faucet.sqlite"),
		DSN:    getenv("DB_DSN", ""),
	}
	faucet := FaucetConfig{
		Cooldown:      time.Duration(getint("COOLDOWN_SECONDS", 86_400)) * time.Second,
		PollInterval:  getdur("POLL_INTERVAL", 400*time.Millisecond),
		PollDeadline:  getdur("POLL_DEADLINE", 8*time.Second),
		ExplorerTxURL: getenv("EXPLORER_TX_URL", ""),
	}
	if store.Driver == "sqlite3" {
		store.Driver = DriverSQLite
	}

	switch store.Driver {
	case DriverSQLite, DriverBolt:
		if strings.TrimSpace(store.Path) == "" {
			return store, faucet, errors.New("DB_PATH must not be empty")
		}
	case DriverPostgres:
		if strings.TrimSpace(store.DSN) == "" {
			return store, faucet, errors.New("DB_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return store, faucet, errors.New("STORE_DRIVER must be one of: sqlite, postgres, bolt")
	}
	if faucet.Cooldown <= 0 {
		return store, faucet, errors.New("COOLDOWN_SECONDS must be > 0")
	}
	if faucet.PollInterval <= 0 || faucet.PollDeadline <= 0 {
		return store, faucet, errors.New("POLL_INTERVAL and POLL_DEADLINE must be positive durations")
	}
	if faucet.PollInterval > faucet.PollDeadline {
		return store, faucet, errors.New("POLL_INTERVAL must not exceed POLL_DEADLINE")
	}

	return store, faucet, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
