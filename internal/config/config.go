package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DB DBConfig `ignored:"true"`

	ProviderBaseURL   string        `envconfig:"PROVIDER_BASE_URL" default:"https://api.paystack.co"`
	ProviderSecretKey string        `envconfig:"PROVIDER_SECRET_KEY"`
	ProviderTimeout   time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`
	ProviderMock      bool          `envconfig:"PROVIDER_MOCK" default:"false"`
	WebhookSecret     string        `envconfig:"WEBHOOK_SECRET"`
	Currency          string        `envconfig:"CURRENCY" default:"NGN"`

	CallbackURL string `envconfig:"CALLBACK_URL" default:"http://localhost:8080/api/payments/confirm"`
	SuccessURL  string `envconfig:"SUCCESS_URL" default:"http://localhost:3000/checkout/success"`
	FailureURL  string `envconfig:"FAILURE_URL" default:"http://localhost:3000/checkout/failed"`

	AdminEmail    string        `envconfig:"ADMIN_EMAIL" default:"admin@localhost"`
	NotifyTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"15s"`

	JWTSecret   string   `envconfig:"JWT_SECRET"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	RateRPS     float64  `envconfig:"RATE_RPS" default:"5"`
	RateBurst   int      `envconfig:"RATE_BURST" default:"10"`

	// the provider delivers webhooks from a handful of addresses
	WebhookRateRPS   float64 `envconfig:"WEBHOOK_RATE_RPS" default:"200"`
	WebhookRateBurst int     `envconfig:"WEBHOOK_RATE_BURST" default:"400"`

	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	SweepMinAge   time.Duration `envconfig:"SWEEP_MIN_AGE" default:"15m"`
	SweepMaxAge   time.Duration `envconfig:"SWEEP_MAX_AGE" default:"72h"`
	SweepBatch    int           `envconfig:"SWEEP_BATCH" default:"50"`
}

type DBConfig struct {
	Database string `envconfig:"BLUEPRINT_DB_DATABASE" default:"orders"`
	Password string `envconfig:"BLUEPRINT_DB_PASSWORD"`
	Username string `envconfig:"BLUEPRINT_DB_USERNAME" default:"postgres"`
	Port     string `envconfig:"BLUEPRINT_DB_PORT" default:"5432"`
	Host     string `envconfig:"BLUEPRINT_DB_HOST" default:"localhost"`
	Schema   string `envconfig:"BLUEPRINT_DB_SCHEMA" default:"public"`
}

func (c DBConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Schema,
	)
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	db, err := LoadDB()
	if err != nil {
		return nil, err
	}
	cfg.DB = db
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDB reads only the BLUEPRINT_DB_* settings.
func LoadDB() (DBConfig, error) {
	_ = godotenv.Load()

	var db DBConfig
	err := envconfig.Process("", &db)
	return db, err
}

func (c *Config) validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !c.ProviderMock && c.ProviderSecretKey == "" {
		return fmt.Errorf("PROVIDER_SECRET_KEY is required unless PROVIDER_MOCK is set")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	return nil
}
