package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is passed to envconfig; every variable already carries the
// MERCATO_ prefix in its tag, so the prefix itself stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Cron      CronConfig
	Lifecycle LifecycleConfig
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
	Env          string `envconfig:"MERCATO_APP_ENV" default:"dev"`
	Port         string `envconfig:"MERCATO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MERCATO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERCATO_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"MERCATO_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MERCATO_DB_DSN"`

	Host     string `envconfig:"MERCATO_DB_HOST"`
	Port     int    `envconfig:"MERCATO_DB_PORT" default:"5432"`
	User     string `envconfig:"MERCATO_DB_USER"`
	Password string `envconfig:"MERCATO_DB_PASSWORD"`
	Name     string `envconfig:"MERCATO_DB_NAME"`
	SSLMode  string `envconfig:"MERCATO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERCATO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCATO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCATO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCATO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either MERCATO_DB_DSN or MERCATO_DB_HOST/USER/NAME must be set")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	Address      string        `envconfig:"MERCATO_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"MERCATO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCATO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCATO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCATO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCATO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCATO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERCATO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MERCATO_CRON_INTERVAL" default:"15m"`
	LockKey  string        `envconfig:"MERCATO_CRON_LOCK_KEY" default:"mercato:cron:lock"`
	LockTTL  time.Duration `envconfig:"MERCATO_CRON_LOCK_TTL" default:"30m"`
	Port     string        `envconfig:"MERCATO_CRON_METRICS_PORT" default:"9090"`
}

// LifecycleConfig tunes order lifecycle behavior.
type LifecycleConfig struct {
	// DisputeWindow is how long after delivery a buyer may dispute before
	// the sweep auto-completes the order.
	DisputeWindow time.Duration `envconfig:"MERCATO_DISPUTE_WINDOW" default:"48h"`
	// DefaultCommissionRate is the platform fallback, percent (e.g. "10").
	DefaultCommissionRate string `envconfig:"MERCATO_DEFAULT_COMMISSION_RATE" default:"10"`
	// PaymentWebhookSecret guards the payment callback endpoint. Empty
	// disables the check, which only dev setups should do.
	PaymentWebhookSecret string `envconfig:"MERCATO_PAYMENT_WEBHOOK_SECRET" default:""`
}
