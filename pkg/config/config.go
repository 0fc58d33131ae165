package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Quote        QuoteConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Quote.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MAKELAR_APP_ENV" required:"true"`
	Port         string `envconfig:"MAKELAR_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MAKELAR_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"MAKELAR_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"MAKELAR_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"MAKELAR_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"MAKELAR_DB_DSN"`
	Driver     string `envconfig:"MAKELAR_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"MAKELAR_DB_SQLITE_PATH" default:"makelar.db"`

	LegacyHost     string `envconfig:"MAKELAR_DB_HOST"`
	LegacyPort     int    `envconfig:"MAKELAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MAKELAR_DB_USER"`
	LegacyPassword string `envconfig:"MAKELAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"MAKELAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"MAKELAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MAKELAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAKELAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MAKELAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MAKELAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MAKELAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MAKELAR_REDIS_ADDR"`
	Password     string        `envconfig:"MAKELAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"MAKELAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MAKELAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MAKELAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MAKELAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MAKELAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MAKELAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MAKELAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MAKELAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MAKELAR_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MAKELAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MAKELAR_AUTO_MIGRATE" default:"false"`
}

type QuoteConfig struct {
	DefaultExpiryDays int           `envconfig:"MAKELAR_QUOTE_DEFAULT_EXPIRY_DAYS" default:"30"`
	ActiveStatuses    []string      `envconfig:"MAKELAR_QUOTE_ACTIVE_STATUSES" default:"open,sent,countered"`
	PairLockTTL       time.Duration `envconfig:"MAKELAR_QUOTE_PAIR_LOCK_TTL" default:"10s"`
}

// DefaultExpiry returns the quote validity window applied when none is given.
func (q QuoteConfig) DefaultExpiry() time.Duration {
	return time.Duration(q.DefaultExpiryDays) * 24 * time.Hour
}

func (q QuoteConfig) validate() error {
	if q.DefaultExpiryDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvQuoteExpiryDays)
	}
	return nil
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"MAKELAR_CRON_INTERVAL" default:"1m"`
	LockTTL              time.Duration `envconfig:"MAKELAR_CRON_LOCK_TTL" default:"5m"`
	QuoteExpiryBatchSize int           `envconfig:"MAKELAR_CRON_QUOTE_EXPIRY_BATCH_SIZE" default:"200"`
	SLABatchSize         int           `envconfig:"MAKELAR_CRON_SLA_BATCH_SIZE" default:"200"`
	OutboxRetentionDays  int           `envconfig:"MAKELAR_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MAKELAR_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	QuoteTopic   string `envconfig:"MAKELAR_PUBSUB_QUOTE_TOPIC" default:"makelar-quote-events"`
	OrderTopic   string `envconfig:"MAKELAR_PUBSUB_ORDER_TOPIC" default:"makelar-order-events"`
	PaymentTopic string `envconfig:"MAKELAR_PUBSUB_PAYMENT_TOPIC" default:"makelar-payment-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MAKELAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MAKELAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MAKELAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RateLimitConfig bounds authenticated API traffic per tenant and per user
// within a fixed window. A zero limit disables that counter.
type RateLimitConfig struct {
	Window      time.Duration `envconfig:"MAKELAR_RATE_LIMIT_WINDOW" default:"1m"`
	TenantLimit int           `envconfig:"MAKELAR_RATE_LIMIT_TENANT" default:"600"`
	UserLimit   int           `envconfig:"MAKELAR_RATE_LIMIT_USER" default:"120"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
