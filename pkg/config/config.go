package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "COMMERCE_SYNC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "COMMERCE_SYNC_APP_ENV"
	EnvPort     = "COMMERCE_SYNC_APP_PORT"
	EnvDBDSN    = "COMMERCE_SYNC_DB_DSN"
	EnvDBHost   = "COMMERCE_SYNC_DB_HOST"
	EnvDBUser   = "COMMERCE_SYNC_DB_USER"
	EnvDBName   = "COMMERCE_SYNC_DB_NAME"
	EnvRedisURL = "COMMERCE_SYNC_REDIS_URL"

	EnvShopifyWebhookSecret = "COMMERCE_SYNC_SHOPIFY_WEBHOOK_SECRET"
	EnvCurrencyAPIKey       = "COMMERCE_SYNC_CURRENCY_API_KEY"
	EnvForceFullBackfill    = "COMMERCE_SYNC_FORCE_FULL_BACKFILL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Shopify      ShopifyConfig
	Currency     CurrencyConfig
	Sync         SyncConfig
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
	Env          string `envconfig:"COMMERCE_SYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"COMMERCE_SYNC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COMMERCE_SYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMMERCE_SYNC_LOG_WARN_STACK" default:"false"`
	// AdminToken guards /api/admin. Empty disables the admin routes.
	AdminToken string `envconfig:"COMMERCE_SYNC_ADMIN_TOKEN"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COMMERCE_SYNC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COMMERCE_SYNC_DB_DSN"`
	Driver string `envconfig:"COMMERCE_SYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COMMERCE_SYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"COMMERCE_SYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COMMERCE_SYNC_DB_USER"`
	LegacyPassword string `envconfig:"COMMERCE_SYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"COMMERCE_SYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"COMMERCE_SYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMMERCE_SYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMMERCE_SYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMMERCE_SYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMMERCE_SYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COMMERCE_SYNC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COMMERCE_SYNC_REDIS_ADDR"`
	Password     string        `envconfig:"COMMERCE_SYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMMERCE_SYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMMERCE_SYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMMERCE_SYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMMERCE_SYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMMERCE_SYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMMERCE_SYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COMMERCE_SYNC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COMMERCE_SYNC_AUTO_MIGRATE" default:"false"`
}

// ShopifyConfig holds the Admin API and webhook settings shared by every store.
type ShopifyConfig struct {
	APIVersion     string        `envconfig:"COMMERCE_SYNC_SHOPIFY_API_VERSION" default:"2024-10"`
	WebhookSecret  string        `envconfig:"COMMERCE_SYNC_SHOPIFY_WEBHOOK_SECRET"`
	RequestTimeout time.Duration `envconfig:"COMMERCE_SYNC_SHOPIFY_REQUEST_TIMEOUT" default:"30s"`
	// BaseURL overrides https://<shop> for every request. Only used against fakes.
	BaseURL string `envconfig:"COMMERCE_SYNC_SHOPIFY_BASE_URL"`
}

type CurrencyConfig struct {
	APIURL            string        `envconfig:"COMMERCE_SYNC_CURRENCY_API_URL" default:"https://api.currencyfreaks.com/v2.0/rates/latest"`
	APIKey            string        `envconfig:"COMMERCE_SYNC_CURRENCY_API_KEY"`
	ReferenceCurrency string        `envconfig:"COMMERCE_SYNC_REFERENCE_CURRENCY" default:"USD"`
	Timeout           time.Duration `envconfig:"COMMERCE_SYNC_CURRENCY_TIMEOUT" default:"5s"`
	CacheTTL          time.Duration `envconfig:"COMMERCE_SYNC_CURRENCY_CACHE_TTL" default:"1h"`
}

// Reference returns the normalized reference currency code.
func (c CurrencyConfig) Reference() string {
	ref := strings.ToUpper(strings.TrimSpace(c.ReferenceCurrency))
	if ref == "" {
		return "USD"
	}
	return ref
}

type SyncConfig struct {
	ForceFullBackfill      bool          `envconfig:"COMMERCE_SYNC_FORCE_FULL_BACKFILL" default:"false"`
	BackorderLockTTL       time.Duration `envconfig:"COMMERCE_SYNC_BACKORDER_LOCK_TTL" default:"60s"`
	WebhookTimeout         time.Duration `envconfig:"COMMERCE_SYNC_WEBHOOK_TIMEOUT" default:"25s"`
	WebhookIdempotencyTTL  time.Duration `envconfig:"COMMERCE_SYNC_WEBHOOK_IDEMPOTENCY_TTL" default:"48h"`
	BackfillTimeout        time.Duration `envconfig:"COMMERCE_SYNC_BACKFILL_TIMEOUT" default:"30m"`
	WebhookMaxPayloadBytes int64         `envconfig:"COMMERCE_SYNC_WEBHOOK_MAX_PAYLOAD_BYTES" default:"2097152"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
