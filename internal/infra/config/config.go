package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type StripeConfig struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type PlunkConfig struct {
	APIKey  string        `env:"API_KEY"`
	BaseURL string        `env:"API_URL" envDefault:"https://api.useplunk.com/v1"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	// Sequences maps policy sequence names to automation IDs (nome:id,nome:id).
	Sequences map[string]string `env:"SEQUENCES"`
}

type SMTPConfig struct {
	Host         string `env:"HOST"`
	Port         int    `env:"PORT" envDefault:"587"`
	User         string `env:"USER"`
	Password     string `env:"PASS"`
	From         string `env:"FROM" envDefault:"no-reply@overnightmvp.com"`
	TemplatesDir string `env:"TEMPLATES_DIR" envDefault:"templates"`
}

type GA4Config struct {
	MeasurementID string `env:"MEASUREMENT_ID"`
	APISecret     string `env:"API_SECRET"`
	Endpoint      string `env:"ENDPOINT" envDefault:"https://www.google-analytics.com/mp/collect"`
}

type DownloadConfig struct {
	Secret       string        `env:"TOKEN_SECRET"`
	TTL          time.Duration `env:"TOKEN_TTL" envDefault:"72h"`
	AssetBaseURL string        `env:"ASSET_BASE_URL"`
}

// S3Config aponta para o bucket dos materiais de lead magnet. Sem bucket,
// os downloads redirecionam para DOWNLOAD_ASSET_BASE_URL.
type S3Config struct {
	Bucket       string        `env:"BUCKET"`
	Region       string        `env:"REGION" envDefault:"us-east-1"`
	Endpoint     string        `env:"ENDPOINT"`
	AccessKey    string        `env:"ACCESS_KEY"`
	SecretKey    string        `env:"SECRET_KEY"`
	UsePathStyle bool          `env:"USE_PATH_STYLE" envDefault:"false"`
	Prefix       string        `env:"PREFIX" envDefault:"lead-magnets/"`
	PresignTTL   time.Duration `env:"PRESIGN_TTL" envDefault:"15m"`
}

type Config struct {
	Env            string   `env:"APP_ENV" envDefault:"development"`
	Port           string   `env:"PORT" envDefault:"8080"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	Diagnostic     bool     `env:"DIAGNOSTIC_MODE" envDefault:"false"`
	BaseURL        string   `env:"BASE_URL" envDefault:"http://localhost:8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	SystemToken    string   `env:"SYSTEM_TOKEN"`
	PolicyFile     string   `env:"POLICY_FILE"`

	CallTimeout      time.Duration `env:"ORCHESTRATOR_CALL_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL   time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"168h"`
	PurgeInterval    time.Duration `env:"IDEMPOTENCY_PURGE_INTERVAL" envDefault:"10m"`
	BatchParallelism int           `env:"BATCH_PARALLELISM" envDefault:"8"`

	// StoreBackend escolhe onde ficam progresso e idempotência.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	// RateLimitBackend is memory or redis.
	RateLimitBackend string `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	DatabaseURL      string `env:"DATABASE_URL"`
	RedisURL         string `env:"REDIS_URL"`
	RabbitMQURL      string `env:"RABBITMQ_URL"`

	// TransactionalTransport is plunk or smtp.
	TransactionalTransport string `env:"EMAIL_TRANSACTIONAL" envDefault:"plunk"`

	Stripe     StripeConfig   `envPrefix:"STRIPE_"`
	Plunk      PlunkConfig    `envPrefix:"PLUNK_"`
	SMTP       SMTPConfig     `envPrefix:"SMTP_"`
	GA4        GA4Config      `envPrefix:"GA4_"`
	Download   DownloadConfig `envPrefix:"DOWNLOAD_"`
	S3         S3Config       `envPrefix:"S3_"`
	RateLimits RateLimits     `envPrefix:"RATE_"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DiagnosticMode is never on in production, whatever DIAGNOSTIC_MODE says.
func (c *Config) DiagnosticMode() bool {
	return c.Diagnostic && !c.IsProduction()
}

func (c *Config) validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	if c.RateLimitBackend == BackendRedis && c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required for the redis rate limiter"))
	}
	if c.TransactionalTransport == "smtp" && c.SMTP.Host == "" {
		errs = append(errs, errors.New("SMTP_HOST is required when EMAIL_TRANSACTIONAL=smtp"))
	}
	if c.S3.Bucket != "" && (c.S3.AccessKey == "" || c.S3.SecretKey == "") {
		errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_BUCKET is set"))
	}
	if c.CallTimeout <= 0 {
		errs = append(errs, errors.New("ORCHESTRATOR_CALL_TIMEOUT must be positive"))
	}
	if c.IsProduction() && c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required in production"))
	}
	return errors.Join(errs...)
}
