package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const devJWTSecret = "dev_secret_key_minimum_32_characters_long_for_local_only"

type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	ServerAddr string `envconfig:"SERVER_ADDR" default:":8080"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"desa"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"./migrations"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	SessionCookie  string        `envconfig:"SESSION_COOKIE" default:"desa_session"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionBackend string        `envconfig:"SESSION_BACKEND" default:"database"`
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CookieSecure   bool          `envconfig:"COOKIE_SECURE" default:"false"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"15m"`

	StorageMode      string `envconfig:"STORAGE_MODE" default:"local"`
	UploadDir        string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	UploadPublicPath string `envconfig:"UPLOAD_PUBLIC_PATH" default:"/uploads"`
	S3Bucket         string `envconfig:"S3_BUCKET"`
	S3Region         string `envconfig:"S3_REGION"`
	CloudFrontURL    string `envconfig:"CLOUDFRONT_URL"`
	MaxImageSize     int64  `envconfig:"MAX_IMAGE_SIZE" default:"5242880"`
	MaxDocumentSize  int64  `envconfig:"MAX_DOCUMENT_SIZE" default:"10485760"`

	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL" default:"http://localhost:8080/api/auth/google/callback"`

	BootstrapAdminEmail    string `envconfig:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
	BootstrapAdminName     string `envconfig:"BOOTSTRAP_ADMIN_NAME" default:"Super Admin"`

	CORSOrigins      string `envconfig:"CORS_ORIGINS" default:"*"`
	LoginRateLimit   int    `envconfig:"LOGIN_RATE_LIMIT" default:"5"`
	MessageRateLimit int    `envconfig:"MESSAGE_RATE_LIMIT" default:"5"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = devJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET environment variable is required")
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("config: JWT_SECRET must be at least 32 characters long (current: %d)", len(c.JWTSecret))
		}
		if c.JWTSecret == devJWTSecret {
			return fmt.Errorf("config: cannot use development JWT secret in production")
		}
		if c.DBPassword == "" {
			return fmt.Errorf("config: DB_PASSWORD is required in production")
		}
	}

	switch c.SessionBackend {
	case "database", "redis":
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	switch c.StorageMode {
	case "local":
	case "s3":
		if c.S3Bucket == "" || c.S3Region == "" {
			return fmt.Errorf("config: STORAGE_MODE=s3 requires S3_BUCKET and S3_REGION")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_MODE %q", c.StorageMode)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.AppEnv, "production")
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}
