package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Redis         RedisConfig         `mapstructure:"redis"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Email         EmailConfig         `mapstructure:"email"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	Name        string `mapstructure:"name"`
	FrontendURL string `mapstructure:"frontend_url"`
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	CookieSecure         bool          `mapstructure:"cookie_secure"`
	CookieDomain         string        `mapstructure:"cookie_domain"`
	Argon2               Argon2Config  `mapstructure:"argon2"`
}

type Argon2Config struct {
	MemoryKB    uint32 `mapstructure:"memory_kb"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type RedisConfig struct {
	Addr               string        `mapstructure:"addr"`
	Password           string        `mapstructure:"password"`
	DB                 int           `mapstructure:"db"`
	LoginAttemptLimit  int           `mapstructure:"login_attempt_limit"`
	LoginAttemptWindow time.Duration `mapstructure:"login_attempt_window"`
}

type RateLimitConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	PerSecond int  `mapstructure:"per_second"`
	Burst     int  `mapstructure:"burst"`
}

type EmailConfig struct {
	APIURL      string        `mapstructure:"api_url"`
	APIKey      string        `mapstructure:"api_key"`
	FromAddress string        `mapstructure:"from_address"`
	FromName    string        `mapstructure:"from_name"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Workers     int           `mapstructure:"workers"`
	QueueSize   int           `mapstructure:"queue_size"`
}

type AuditConfig struct {
	RetentionDays       int    `mapstructure:"retention_days"`
	MaintenanceSchedule string `mapstructure:"maintenance_schedule"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ApplyDefaults fills zero values that have a sensible default.
func (c *Config) ApplyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.App.Name == "" {
		c.App.Name = "SaaS Starter Kit"
	}
	if c.App.FrontendURL == "" {
		c.App.FrontendURL = "http://localhost:5173"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Security.AccessTokenDuration == 0 {
		c.Security.AccessTokenDuration = 15 * time.Minute
	}
	if c.Security.RefreshTokenDuration == 0 {
		c.Security.RefreshTokenDuration = 7 * 24 * time.Hour
	}
	if c.Security.Argon2.MemoryKB == 0 {
		c.Security.Argon2 = Argon2Config{MemoryKB: 19 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	}
	if c.Redis.LoginAttemptLimit == 0 {
		c.Redis.LoginAttemptLimit = 5
	}
	if c.Redis.LoginAttemptWindow == 0 {
		c.Redis.LoginAttemptWindow = 15 * time.Minute
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.Email.FromName == "" {
		c.Email.FromName = c.App.Name
	}
	if c.Email.APIURL == "" {
		c.Email.APIURL = "https://api.resend.com/emails"
	}
	if c.Email.Timeout == 0 {
		c.Email.Timeout = 10 * time.Second
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 90
	}
	if c.Audit.MaintenanceSchedule == "" {
		c.Audit.MaintenanceSchedule = "@every 1h"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// LoadConfigFromEnv builds the config from plain environment variables for container deployments.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		App: AppConfig{
			Env:         getEnv("APP_ENV", "production"),
			Name:        getEnv("APP_NAME", "SaaS Starter Kit"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			AccessTokenSecret:    getEnv("JWT_ACCESS_SECRET", ""),
			RefreshTokenSecret:   getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			CookieSecure:         getEnv("COOKIE_SECURE", "true") == "true",
			CookieDomain:         getEnv("COOKIE_DOMAIN", ""),
		},
		Redis: RedisConfig{
			Addr:               getEnv("REDIS_ADDR", "localhost:6379"),
			Password:           getEnv("REDIS_PASSWORD", ""),
			DB:                 getEnvAsInt("REDIS_DB", 0),
			LoginAttemptLimit:  getEnvAsInt("LOGIN_ATTEMPT_LIMIT", 5),
			LoginAttemptWindow: getEnvAsDuration("LOGIN_ATTEMPT_WINDOW", 15*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:   getEnv("RATE_LIMIT_ENABLED", "true") == "true",
			PerSecond: getEnvAsInt("RATE_LIMIT_PER_SECOND", 10),
			Burst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Email: EmailConfig{
			APIURL:      getEnv("EMAIL_API_URL", "https://api.resend.com/emails"),
			APIKey:      getEnv("EMAIL_API_KEY", ""),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
			FromName:    getEnv("EMAIL_FROM_NAME", "SaaS Starter Kit"),
			Timeout:     getEnvAsDuration("EMAIL_TIMEOUT", 10*time.Second),
			Workers:     getEnvAsInt("EMAIL_WORKERS", 2),
			QueueSize:   getEnvAsInt("EMAIL_QUEUE_SIZE", 100),
		},
		Audit: AuditConfig{
			RetentionDays:       getEnvAsInt("AUDIT_RETENTION_DAYS", 90),
			MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "@every 1h"),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	var errs []string
	if len(c.AccessTokenSecret) < 32 {
		errs = append(errs, "access_token_secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		errs = append(errs, "refresh_token_secret must be at least 32 characters")
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, "access and refresh secrets must differ")
	}
	if c.AccessTokenDuration > time.Hour {
		errs = append(errs, "access_token_duration must not exceed 1h")
	}
	if c.RefreshTokenDuration < c.AccessTokenDuration {
		errs = append(errs, "refresh_token_duration must be >= access_token_duration")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, ", "))
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
