package config

import (
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config centralises runtime configuration. Values come from defaults, then
// an optional YAML file, then .env, then the process environment.
type Config struct {
	HTTPPort        string   `yaml:"http_port"`
	Storage         string   `yaml:"storage"`
	DatabaseURL     string   `yaml:"database_url"`
	AllowedOrigins  []string `yaml:"cors_allowed_origins"`
	ReadTimeoutSec  int      `yaml:"http_read_timeout"`
	WriteTimeoutSec int      `yaml:"http_write_timeout"`
	IdleTimeoutSec  int      `yaml:"http_idle_timeout"`

	JWTSecret string        `yaml:"jwt_secret"`
	JWTIssuer string        `yaml:"jwt_issuer"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`

	BcryptCost           int           `yaml:"bcrypt_cost"`
	SessionWarnThreshold time.Duration `yaml:"session_warn_threshold"`
	RegistrationDomain   string        `yaml:"registration_email_domain"`
	ProtectedAdminEmail  string        `yaml:"protected_admin_email"`
	UnifyLoginErrors     bool          `yaml:"unify_login_errors"`

	RedisURL         string        `yaml:"redis_url"`
	LoginMaxAttempts int           `yaml:"login_max_attempts"`
	LoginCooldown    time.Duration `yaml:"login_cooldown"`
	LoginThrottleIP  bool          `yaml:"login_throttle_ip"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used before any source is applied.
func Default() Config {
	return Config{
		HTTPPort:             "8080",
		Storage:              StoragePostgres,
		AllowedOrigins:       []string{"*"},
		ReadTimeoutSec:       15,
		WriteTimeoutSec:      15,
		IdleTimeoutSec:       60,
		JWTIssuer:            "forum",
		JWTTTL:               24 * time.Hour,
		BcryptCost:           10,
		SessionWarnThreshold: 30 * time.Minute,
		ProtectedAdminEmail:  "admin@forum.local",
		LoginMaxAttempts:     5,
		LoginCooldown:        15 * time.Minute,
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

// Load reads configuration. path names an optional YAML file; when empty,
// FORUM_CONFIG is consulted.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("FORUM_CONFIG")
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPPort = getEnv("HTTP_PORT", getEnv("PORT", cfg.HTTPPort))
	cfg.Storage = strings.ToLower(getEnv("STORAGE", cfg.Storage))
	if url := resolveDatabaseURL(); url != "" {
		cfg.DatabaseURL = url
	}
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = splitCSV(origins)
	}
	cfg.ReadTimeoutSec = getIntEnv("HTTP_READ_TIMEOUT", cfg.ReadTimeoutSec)
	cfg.WriteTimeoutSec = getIntEnv("HTTP_WRITE_TIMEOUT", cfg.WriteTimeoutSec)
	cfg.IdleTimeoutSec = getIntEnv("HTTP_IDLE_TIMEOUT", cfg.IdleTimeoutSec)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.JWTTTL = getDurationEnv("JWT_TTL", cfg.JWTTTL)

	cfg.BcryptCost = getIntEnv("BCRYPT_COST", cfg.BcryptCost)
	cfg.SessionWarnThreshold = getDurationEnv("SESSION_WARN_THRESHOLD", cfg.SessionWarnThreshold)
	cfg.RegistrationDomain = getEnv("REGISTRATION_EMAIL_DOMAIN", cfg.RegistrationDomain)
	cfg.ProtectedAdminEmail = getEnv("PROTECTED_ADMIN_EMAIL", cfg.ProtectedAdminEmail)
	cfg.UnifyLoginErrors = getBoolEnv("UNIFY_LOGIN_ERRORS", cfg.UnifyLoginErrors)

	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.LoginMaxAttempts = getIntEnv("LOGIN_MAX_ATTEMPTS", cfg.LoginMaxAttempts)
	cfg.LoginCooldown = getDurationEnv("LOGIN_COOLDOWN", cfg.LoginCooldown)
	cfg.LoginThrottleIP = getBoolEnv("LOGIN_THROTTLE_IP", cfg.LoginThrottleIP)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
}

// Validate reports missing or inconsistent settings.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database configuration missing: provide DATABASE_URL or PG* env vars"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE %q", c.Storage))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.LoginMaxAttempts <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be positive"))
	}
	return errors.Join(errs...)
}

// Timeouts returns the HTTP server read, write and idle timeouts.
func (c Config) Timeouts() (read, write, idle time.Duration) {
	return time.Duration(c.ReadTimeoutSec) * time.Second,
		time.Duration(c.WriteTimeoutSec) * time.Second,
		time.Duration(c.IdleTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return []string{"*"}
	}
	return parts
}

// resolveDatabaseURL prefers an explicit URL and falls back to libpq style PG* variables.
func resolveDatabaseURL() string {
	for _, key := range []string{"DATABASE_URL", "POSTGRES_URL", "PGURL"} {
		if url := coerceDatabaseURL(os.Getenv(key)); url != "" {
			return url
		}
	}
	if path := os.Getenv("DATABASE_URL_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if url := coerceDatabaseURL(string(data)); url != "" {
				return url
			}
		}
	}

	host := firstNonEmpty(os.Getenv("PGHOST"), os.Getenv("POSTGRES_HOST"))
	user := firstNonEmpty(os.Getenv("PGUSER"), os.Getenv("POSTGRES_USER"))
	if host == "" || user == "" {
		return ""
	}
	password := firstNonEmpty(os.Getenv("PGPASSWORD"), os.Getenv("POSTGRES_PASSWORD"))
	database := firstNonEmpty(os.Getenv("PGDATABASE"), os.Getenv("POSTGRES_DB"), user)
	port := firstNonEmpty(os.Getenv("PGPORT"), os.Getenv("POSTGRES_PORT"), "5432")
	sslMode := firstNonEmpty(os.Getenv("PGSSLMODE"), "disable")

	dsn := &neturl.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + database,
		User:   neturl.User(user),
	}
	if password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}
	query := dsn.Query()
	query.Set("sslmode", sslMode)
	dsn.RawQuery = query.Encode()
	return dsn.String()
}

func coerceDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "postgres://"):
		return raw
	case strings.HasPrefix(raw, "postgresql://"):
		return "postgres://" + strings.TrimPrefix(raw, "postgresql://")
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
