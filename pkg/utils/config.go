package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	S3        S3Config
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Debug       bool
	LogPath     string
	StoreDriver string // postgres | memory
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustProxy bool
}

type DatabaseConfig struct {
	Host           string
	Port           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	MaxConns       int32
	ConnectRetries uint64
}

// URL returns a postgres:// connection string usable by both pgx and migrate.
func (c DatabaseConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

func (c JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

type AuthConfig struct {
	BcryptCost       int
	HashWorkers      int
	LockoutThreshold int
	LockoutDuration  time.Duration
	ResetTokenTTL    time.Duration
	VerifyTokenTTL   time.Duration
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	BaseURL  string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether presigned uploads can be offered.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != ""
}

type JobsConfig struct {
	TokenCleanupSchedule string
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "marketplace-api")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "marketplace")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("JWT_EXPIRY_HOURS", 168)
	v.SetDefault("AUTH_BCRYPT_COST", 12)
	v.SetDefault("AUTH_HASH_WORKERS", 0)
	v.SetDefault("AUTH_LOCKOUT_THRESHOLD", 5)
	v.SetDefault("AUTH_LOCKOUT_DURATION", "2h")
	v.SetDefault("AUTH_RESET_TOKEN_TTL", "10m")
	v.SetDefault("AUTH_VERIFY_TOKEN_TTL", "24h")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("EMAIL_FROM", "no-reply@marketplace.local")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("JOBS_TOKEN_CLEANUP_SCHEDULE", "@every 15m")

	// .env is optional; plain environment variables are enough
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Port:        v.GetString("PORT"),
			Debug:       v.GetBool("DEBUG"),
			LogPath:     v.GetString("LOG_PATH"),
			StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
			TrustProxy:  v.GetBool("TRUST_PROXY"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			Name:           v.GetString("DB_NAME"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASS"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxConns:       v.GetInt32("DB_MAX_CONNS"),
			ConnectRetries: v.GetUint64("DB_CONNECT_RETRIES"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Auth: AuthConfig{
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			HashWorkers:      v.GetInt("AUTH_HASH_WORKERS"),
			LockoutThreshold: v.GetInt("AUTH_LOCKOUT_THRESHOLD"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
			ResetTokenTTL:    v.GetDuration("AUTH_RESET_TOKEN_TTL"),
			VerifyTokenTTL:   v.GetDuration("AUTH_VERIFY_TOKEN_TTL"),
		},
		Email: EmailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("EMAIL_FROM"),
			BaseURL:  v.GetString("CLIENT_URL"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		S3: S3Config{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			Region:    v.GetString("S3_REGION"),
			Bucket:    v.GetString("S3_BUCKET"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
		},
		Jobs: JobsConfig{
			TokenCleanupSchedule: v.GetString("JOBS_TOKEN_CLEANUP_SCHEDULE"),
		},
	}

	return config, nil
}

// Validate rejects settings the server cannot run safely with.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.JWT.ExpiryHours <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY_HOURS must be positive"))
	}
	if c.Auth.LockoutThreshold < 1 {
		errs = append(errs, errors.New("AUTH_LOCKOUT_THRESHOLD must be at least 1"))
	}
	if c.Auth.LockoutDuration <= 0 || c.Auth.ResetTokenTTL <= 0 || c.Auth.VerifyTokenTTL <= 0 {
		errs = append(errs, errors.New("lockout duration and token TTLs must be positive"))
	}
	switch c.App.StoreDriver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.App.StoreDriver))
	}

	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
