package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Port            string        `env:"PORT,             default=3000"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	APIPrefix       string        `env:"API_PREFIX,       default=api"`
	APIVersion      string        `env:"API_VERSION,      default=v1"`
	CORSOrigins     []string      `env:"CORS_ORIGINS,     default=*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	JWT      JWTConfig
	R2       R2Config
	Upload   UploadConfig
	Throttle ThrottleConfig
}

type DatabaseConfig struct {
	Driver       string `env:"DB_DRIVER,         default=postgres"`
	URL          string `env:"DATABASE_URL"`
	AutoMigrate  bool   `env:"DB_AUTO_MIGRATE,   default=true"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS, default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=vitalog"`
}

// RedisConfig is optional; an empty Addr selects the in-process rate limiter.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type JWTConfig struct {
	Secret        string `env:"JWT_SECRET"`
	AccessExpiry  string `env:"JWT_ACCESS_EXPIRY,  default=15m"`
	RefreshExpiry string `env:"JWT_REFRESH_EXPIRY, default=7d"`
}

type R2Config struct {
	AccountID       string `env:"R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	PublicURL       string `env:"R2_PUBLIC_URL"`
	Endpoint        string `env:"R2_ENDPOINT"`
	Region          string `env:"R2_REGION,       default=auto"`
	MaxAttempts     int    `env:"R2_MAX_ATTEMPTS, default=1"`
}

type UploadConfig struct {
	MaxFileSize      int64    `env:"MAX_FILE_SIZE,      default=10485760"`
	AllowedMimeTypes []string `env:"ALLOWED_MIME_TYPES, default=image/jpeg,image/png,image/gif,image/webp,application/pdf"`
	MaxFiles         int      `env:"UPLOAD_MAX_FILES,   default=10"`
	Concurrency      int      `env:"UPLOAD_CONCURRENCY, default=4"`
}

type ThrottleConfig struct {
	TTL   int `env:"THROTTLE_TTL,   default=60"`
	Limit int `env:"THROTTLE_LIMIT, default=100"`
}

// Window returns the throttle window as a duration.
func (t ThrottleConfig) Window() time.Duration {
	return time.Duration(t.TTL) * time.Second
}

// RoutePrefix is the path every API route is mounted under, e.g. "/api/v1".
func (c *Config) RoutePrefix() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{c.APIPrefix, c.APIVersion} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	return "/" + strings.Join(parts, "/")
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch cfg.Database.Driver {
	case DriverPostgres, DriverMongo:
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	return &cfg, nil
}
