package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	Referral     ReferralConfig
	Webhook      WebhookConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SMILESHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"SMILESHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SMILESHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SMILESHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SMILESHOP_DB_DSN"`
	Driver string `envconfig:"SMILESHOP_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SMILESHOP_DB_HOST"`
	Port     int    `envconfig:"SMILESHOP_DB_PORT" default:"5432"`
	User     string `envconfig:"SMILESHOP_DB_USER"`
	Password string `envconfig:"SMILESHOP_DB_PASSWORD"`
	Name     string `envconfig:"SMILESHOP_DB_NAME"`
	SSLMode  string `envconfig:"SMILESHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SMILESHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SMILESHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SMILESHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SMILESHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SMILESHOP_REDIS_URL"`
	Address      string        `envconfig:"SMILESHOP_REDIS_ADDR"`
	Password     string        `envconfig:"SMILESHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SMILESHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SMILESHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SMILESHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SMILESHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SMILESHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SMILESHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SMILESHOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SMILESHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SMILESHOP_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RazorpayConfig struct {
	KeyID         string `envconfig:"SMILESHOP_RAZORPAY_KEY_ID" required:"true"`
	KeySecret     string `envconfig:"SMILESHOP_RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret string `envconfig:"SMILESHOP_RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string `envconfig:"SMILESHOP_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Currency      string `envconfig:"SMILESHOP_RAZORPAY_CURRENCY" default:"INR"`
}

type ReferralConfig struct {
	RewardCents int `envconfig:"SMILESHOP_REFERRAL_REWARD_CENTS" default:"15000"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SMILESHOP_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SMILESHOP_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"SMILESHOP_DB_HOST": db.Host,
		"SMILESHOP_DB_USER": db.User,
		"SMILESHOP_DB_NAME": db.Name,
	}
	for _, key := range []string{"SMILESHOP_DB_HOST", "SMILESHOP_DB_USER", "SMILESHOP_DB_NAME"} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either SMILESHOP_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
