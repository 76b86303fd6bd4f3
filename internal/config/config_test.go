package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// setRequired sets the variables that have no usable default.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("QN_API_URL", "https://distributor.example/api/")
	t.Setenv("QN_DISTRIBUTOR_KEY", "partner-key")
}

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	setRequired(t)
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.Path != "faucet.sqlite" {
		t.Fatalf("store defaults unexpected: %+v", cfg.Store)
	}
	f := cfg.Faucet
	if f.Cooldown != 86_400*time.Second || f.PollInterval != 400*time.Millisecond || f.PollDeadline != 8*time.Second {
		t.Fatalf("faucet defaults unexpected: %+v", f)
	}
	// trailing slash trimmed so endpoint joins stay clean
	if cfg.Distributor.BaseURL != "https://distributor.example/api" || cfg.Distributor.Timeout != 5*time.Second {
		t.Fatalf("distributor defaults unexpected: %+v", cfg.Distributor)
	}
	if cfg.Access != (AccessConfig{}) {
		t.Fatalf("access should be open by default: %+v", cfg.Access)
	}
}

func TestLoad_Success_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v2/")

	t.Setenv("STORE_DRIVER", "BOLT")
	t.Setenv("DB_PATH", "claims.bolt")
	t.Setenv("COOLDOWN_SECONDS", "3600")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("POLL_DEADLINE", "5s")
	t.Setenv("EXPLORER_TX_URL", "https://testnet.fluentscan.xyz/tx/")
	t.Setenv("DISTRIBUTOR_TIMEOUT", "2s")
	t.Setenv("GUILD_ID", " g1 ")
	t.Setenv("FAUCET_CHANNEL_ID", "c1")
	t.Setenv("BUILDER_ROLE_ID", "r1")

	t.Setenv("RATE_RPS", "x")      // -> default 1.0
	t.Setenv("RATE_BURST", "nope") // -> default 3

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.Store.Driver != DriverBolt || cfg.Store.Path != "claims.bolt" {
		t.Fatalf("store unexpected: %+v", cfg.Store)
	}
	want := FaucetConfig{
		Cooldown:      time.Hour,
		PollInterval:  250 * time.Millisecond,
		PollDeadline:  5 * time.Second,
		ExplorerTxURL: "https://testnet.fluentscan.xyz/tx/",
	}
	if cfg.Faucet != want {
		t.Fatalf("faucet unexpected: %+v", cfg.Faucet)
	}
	if cfg.Distributor.Timeout != 2*time.Second || cfg.Distributor.APIKey != "partner-key" {
		t.Fatalf("distributor unexpected: %+v", cfg.Distributor)
	}
	if cfg.Access != (AccessConfig{GuildID: "g1", ChannelID: "c1", RoleID: "r1"}) {
		t.Fatalf("access unexpected: %+v", cfg.Access)
	}
	if cfg.RateRPS != 1.0 || cfg.RateBurst != 3 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_SQLite3AliasNormalized(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_DRIVER", "sqlite3")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Fatalf("driver = %q; want sqlite", cfg.Store.Driver)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes <= 0", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"postgres without DSN", map[string]string{"STORE_DRIVER": "postgres"}, "DB_DSN"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}, "STORE_DRIVER"},
		{"cooldown zero", map[string]string{"COOLDOWN_SECONDS": "0"}, "COOLDOWN_SECONDS"},
		{"poll interval zero", map[string]string{"POLL_INTERVAL": "0s"}, "POLL_INTERVAL"},
		{"interval beyond deadline", map[string]string{"POLL_INTERVAL": "9s"}, "must not exceed"},
		{"missing api url", map[string]string{"QN_API_URL": ""}, "QN_API_URL"},
		{"missing api key", map[string]string{"QN_DISTRIBUTOR_KEY": " "}, "QN_DISTRIBUTOR_KEY"},
		{"distributor timeout zero", map[string]string{"DISTRIBUTOR_TIMEOUT": "0s"}, "DISTRIBUTOR_TIMEOUT"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"otel sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected error containing %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoadStore_NoDistributorRequired(t *testing.T) {
	t.Setenv("QN_API_URL", "")
	t.Setenv("STORE_DRIVER", "bolt")
	t.Setenv("DB_PATH", "/tmp/claims.db")
	t.Setenv("COOLDOWN_SECONDS", "60")

	store, faucet, err := LoadStore()
	if err != nil {
		t.Fatalf("LoadStore() error: %v", err)
	}
	if store.Driver != DriverBolt || store.Path != "/tmp/claims.db" || faucet.Cooldown != time.Minute {
		t.Fatalf("unexpected: %+v %+v", store, faucet)
	}

	t.Setenv("STORE_DRIVER", "mongo")
	if _, _, err := LoadStore(); !containsErr(err, "STORE_DRIVER") {
		t.Fatalf("expected driver error, got %v", err)
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		t.Setenv("B_T", v)
		if !getbool("B_T", false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for _, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		t.Setenv("B_F", v)
		if getbool("B_F", true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	want := []string{"a", "b", "c"}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}

	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

// Ensure tests don't leak env to others.
func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "QN_API_URL", "QN_DISTRIBUTOR_KEY", "STORE_DRIVER", "GUILD_ID"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
