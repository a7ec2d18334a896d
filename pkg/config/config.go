package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Lifecycle    LifecycleConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Lifecycle.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PORTFOLIOS_APP_ENV" required:"true"`
	Port         string `envconfig:"PORTFOLIOS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PORTFOLIOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PORTFOLIOS_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PORTFOLIOS_LOG_FORMAT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PORTFOLIOS_SERVICE_KIND" default:"cli"`
}

type DBConfig struct {
	DSN    string `envconfig:"PORTFOLIOS_DB_DSN"`
	Driver string `envconfig:"PORTFOLIOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PORTFOLIOS_DB_HOST"`
	LegacyPort     int    `envconfig:"PORTFOLIOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PORTFOLIOS_DB_USER"`
	LegacyPassword string `envconfig:"PORTFOLIOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"PORTFOLIOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"PORTFOLIOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PORTFOLIOS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PORTFOLIOS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PORTFOLIOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PORTFOLIOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PORTFOLIOS_REDIS_URL"`
	Address      string        `envconfig:"PORTFOLIOS_REDIS_ADDR"`
	Password     string        `envconfig:"PORTFOLIOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"PORTFOLIOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PORTFOLIOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PORTFOLIOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PORTFOLIOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PORTFOLIOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PORTFOLIOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PORTFOLIOS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PORTFOLIOS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PORTFOLIOS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PORTFOLIOS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersSubscription     string `envconfig:"PORTFOLIOS_PUBSUB_ORDERS_SUBSCRIPTION" default:"orders-portfolio-hook"`
	MaxOutstandingMessages int    `envconfig:"PORTFOLIOS_PUBSUB_MAX_OUTSTANDING" default:"100"`
	NumGoroutines          int    `envconfig:"PORTFOLIOS_PUBSUB_NUM_GOROUTINES" default:"1"`
}

// LifecycleConfig holds the toggles and limits handed to each portfolio operator.
type LifecycleConfig struct {
	Timezone                 string `envconfig:"PORTFOLIOS_LIFECYCLE_TIMEZONE" default:"UTC"`
	SyncEnabled              bool   `envconfig:"PORTFOLIOS_SYNC_ENABLED" default:"true"`
	SyncBackfill             bool   `envconfig:"PORTFOLIOS_SYNC_BACKFILL" default:"false"`
	CloseCycleEnabled        bool   `envconfig:"PORTFOLIOS_CLOSE_CYCLE_ENABLED" default:"true"`
	MigrateUnassignedEnabled bool   `envconfig:"PORTFOLIOS_MIGRATE_UNASSIGNED_ENABLED" default:"true"`
	MigrateUnassignedLimit   int    `envconfig:"PORTFOLIOS_MIGRATE_UNASSIGNED_LIMIT" default:"100"`
}

// Location resolves the calendar used for purchase window math.
func (l LifecycleConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(l.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvLifecycleTimezone, name, err)
	}
	return loc, nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PORTFOLIOS_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"PORTFOLIOS_CRON_LOCK_TTL" default:"6h"`
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
