package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App      AppConfig
	Commerce CommerceConfig
	Storage  StorageConfig
	DB       DBConfig
	Redis    RedisConfig
	Session  SessionConfig
	Checkout CheckoutConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Storage.UsesSQL() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs error
	if _, err := url.ParseRequestURI(c.Commerce.BaseURL); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%s must be an absolute url: %w", EnvCommerceBaseURL, err))
	}
	if c.Commerce.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvCommerceTimeout))
	}
	switch c.Storage.Driver {
	case StorageDriverMemory, StorageDriverSQL:
	case StorageDriverRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s or %s required for redis storage", EnvRedisURL, EnvRedisAddr))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch strings.ToLower(c.Checkout.MinimumOrderPolicy) {
	case MinimumOrderAdvisory, MinimumOrderEnforce:
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown minimum order policy %q", c.Checkout.MinimumOrderPolicy))
	}
	if c.Checkout.DefaultPlatformFeePercent < 0 {
		errs = multierr.Append(errs, errors.New("default platform fee percent cannot be negative"))
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required", EnvSessionSecret))
	}
	return errs
}

type AppConfig struct {
	Env           string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port          string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel      string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"STOREFRONT_PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// CommerceConfig points at the remote commerce API that owns stores, products and orders.
type CommerceConfig struct {
	BaseURL         string        `envconfig:"STOREFRONT_COMMERCE_BASE_URL" required:"true"`
	APIKey          string        `envconfig:"STOREFRONT_COMMERCE_API_KEY"`
	Timeout         time.Duration `envconfig:"STOREFRONT_COMMERCE_TIMEOUT" default:"15s"`
	BreakerFailures uint32        `envconfig:"STOREFRONT_COMMERCE_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"STOREFRONT_COMMERCE_BREAKER_TIMEOUT" default:"30s"`
}

type StorageConfig struct {
	Driver  string        `envconfig:"STOREFRONT_STORAGE_DRIVER" default:"redis"`
	CartTTL time.Duration `envconfig:"STOREFRONT_STORAGE_CART_TTL" default:"720h"`

	// AutoMigrate applies the embedded migrations on boot when carts live in SQL.
	AutoMigrate   bool          `envconfig:"STOREFRONT_STORAGE_AUTO_MIGRATE" default:"false"`
	PurgeInterval time.Duration `envconfig:"STOREFRONT_STORAGE_PURGE_INTERVAL" default:"1h"`
}

// UsesSQL reports whether carts live in the relational backend.
func (s StorageConfig) UsesSQL() bool {
	return strings.EqualFold(s.Driver, StorageDriverSQL)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the DB driver targets an embedded sqlite file.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig signs the anonymous shopper cookie that partitions cart storage.
type SessionConfig struct {
	Secret     string        `envconfig:"STOREFRONT_SESSION_SECRET"`
	Issuer     string        `envconfig:"STOREFRONT_SESSION_ISSUER" default:"storefront"`
	CookieName string        `envconfig:"STOREFRONT_SESSION_COOKIE" default:"sf_shopper"`
	TTL        time.Duration `envconfig:"STOREFRONT_SESSION_TTL" default:"8760h"`
	Secure     bool          `envconfig:"STOREFRONT_SESSION_SECURE" default:"true"`
}

type CheckoutConfig struct {
	MinimumOrderPolicy        string        `envconfig:"STOREFRONT_CHECKOUT_MINIMUM_ORDER_POLICY" default:"advisory"`
	DefaultPlatformFeePercent float64       `envconfig:"STOREFRONT_CHECKOUT_PLATFORM_FEE_PERCENT" default:"3"`
	ReconcileTTL              time.Duration `envconfig:"STOREFRONT_CHECKOUT_RECONCILE_TTL" default:"720h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
