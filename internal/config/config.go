// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// logging, the managed datastore credentials, and the credentials of every
// third-party gateway (SMS, payment, LLM) the backend talks to.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/designai/studio-backend/internal/sysutil"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "studio-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SupabaseConfig holds the managed datastore and auth credentials.
type SupabaseConfig struct {
	URL            string // SUPABASE_URL / NEXT_PUBLIC_SUPABASE_URL
	ServiceRoleKey string // SUPABASE_SERVICE_ROLE_KEY (privileged)
	AnonKey        string // SUPABASE_ANON_KEY, defaults to the service role key
	JWTSecret      string // SUPABASE_JWT_SECRET, enables local token checks

	// ShadowPasswordSalt (SHADOW_PASSWORD_SALT) derives the auth-server
	// password of phone accounts. Phone register, login and reset answer
	// 503 while it is empty.
	ShadowPasswordSalt string
}

// SMSConfig holds the SmsBao account.
type SMSConfig struct {
	User     string
	Pass     string
	BaseURL  string
	Interval time.Duration // minimum gap between two codes for one phone
	CodeTTL  time.Duration
}

// Enabled reports whether an SMS account is configured. Without one the
// send-code flow runs in dev mode and only logs the code.
func (s SMSConfig) Enabled() bool { return strings.TrimSpace(s.User) != "" }

// LLMConfig holds the GLM chat-completion settings.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// PaymentConfig holds the Xunhu payment gateway settings.
type PaymentConfig struct {
	AppID     string
	AppSecret string
	APIURL    string
	NotifyURL string
	ReturnURL string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Datastore
	DBDriver    string // DB_DRIVER: postgres (default) or sqlite
	DatabaseURL string // Postgres DSN of the Supabase database, required for postgres
	DBPath      string // SQLite file, used only with DB_DRIVER=sqlite

	// Upstreams
	Supabase          SupabaseConfig
	SMS               SMSConfig
	LLM               LLMConfig
	Payment           PaymentConfig
	PublicBaseURL     string
	HTTPClientTimeout time.Duration

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MissingError reports required configuration keys that are absent.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required environment variables: %v", e.Keys)
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
// Values from .env.local / .env are applied first when those files exist;
// variables already present in the process environment win.
func Load() (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}

	serviceRole := getenv("SUPABASE_SERVICE_ROLE_KEY", "")
	publicBase := strings.TrimRight(sysutil.FirstNonEmpty(os.Getenv("PUBLIC_BASE_URL"), os.Getenv("NEXT_PUBLIC_BASE_URL")), "/")

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Datastore
		DBDriver:    strings.ToLower(strings.TrimSpace(getenv("DB_DRIVER", "postgres"))),
		DatabaseURL: strings.TrimSpace(getenv("DATABASE_URL", "")),
		DBPath:      getenv("DB_PATH", "app.db"),

		Supabase: SupabaseConfig{
			URL:            strings.TrimRight(strings.TrimSpace(sysutil.FirstNonEmpty(os.Getenv("SUPABASE_URL"), os.Getenv("NEXT_PUBLIC_SUPABASE_URL"))), "/"),
			ServiceRoleKey: strings.TrimSpace(serviceRole),
			AnonKey:        strings.TrimSpace(getenv("SUPABASE_ANON_KEY", serviceRole)),
			JWTSecret:      strings.TrimSpace(getenv("SUPABASE_JWT_SECRET", "")),

			ShadowPasswordSalt: getenv("SHADOW_PASSWORD_SALT", ""),
		},
		SMS: SMSConfig{
			User:     strings.TrimSpace(getenv("SMSBAO_USER", "")),
			Pass:     getenv("SMSBAO_PASS", ""),
			BaseURL:  strings.TrimRight(getenv("SMSBAO_BASE_URL", "http://api.smsbao.com"), "/"),
			Interval: getdur("SEND_CODE_INTERVAL", 60*time.Second),
			CodeTTL:  getdur("CODE_TTL", 5*time.Minute),
		},
		LLM: LLMConfig{
			APIKey:      strings.TrimSpace(getenv("GLM_API_KEY", "")),
			BaseURL:     strings.TrimRight(getenv("GLM_BASE_URL", "https://open.bigmodel.cn/api/paas/v4"), "/"),
			Model:       getenv("GLM_MODEL", "glm-4"),
			Temperature: getfloat("GLM_TEMPERATURE", 0.7),
			Timeout:     getdur("GLM_TIMEOUT", 60*time.Second),
		},
		Payment: PaymentConfig{
			AppID:     strings.TrimSpace(getenv("XUNHU_APP_ID", "")),
			AppSecret: strings.TrimSpace(getenv("XUNHU_APP_SECRET", "")),
			APIURL:    getenv("XUNHU_API_URL", "https://api.xunhupay.com/payment/do.html"),
			NotifyURL: getenv("XUNHU_NOTIFY_URL", publicBase+"/api/payment/notify"),
			ReturnURL: getenv("XUNHU_RETURN_URL", publicBase+"/pricing?status=success"),
		},
		PublicBaseURL:     publicBase,
		HTTPClientTimeout: getdur("HTTP_CLIENT_TIMEOUT", 15*time.Second),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "studio-backend"),
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

	// --- required credentials ---
	var missing []string
	if cfg.Supabase.URL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if cfg.Supabase.ServiceRoleKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}
	if cfg.DBDriver != "sqlite" && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return cfg, &MissingError{Keys: missing}
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
	switch cfg.DBDriver {
	case "postgres":
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty when DB_DRIVER=sqlite")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: postgres, sqlite")
	}
	if cfg.HTTPClientTimeout <= 0 || cfg.LLM.Timeout <= 0 {
		return cfg, errors.New("HTTP_CLIENT_TIMEOUT and GLM_TIMEOUT must be positive durations")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 1 {
		return cfg, errors.New("GLM_TEMPERATURE must be between 0 and 1")
	}
	if cfg.SMS.Interval < 0 || cfg.SMS.CodeTTL <= 0 {
		return cfg, errors.New("SEND_CODE_INTERVAL must be >= 0 and CODE_TTL > 0")
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
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// loadEnvFiles applies .env.local and .env (in that order) without
// overriding variables that are already set. Missing files are skipped.
func loadEnvFiles() error {
	for _, path := range envFileCandidates() {
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
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return nil
}

func envFileCandidates() []string {
	if custom := strings.TrimSpace(os.Getenv("CONFIG_ENV_PATH")); custom != "" {
		return []string{custom}
	}
	return []string{".env.local", ".env"}
}

// ---- helpers ----

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
		if sysutil.IsTruthy(v) {
			return true
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
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
