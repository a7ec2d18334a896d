package config

const EnvPrefix = "PORTFOLIOS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv            = "PORTFOLIOS_APP_ENV"
	EnvPort              = "PORTFOLIOS_APP_PORT"
	EnvLogLevel          = "PORTFOLIOS_LOG_LEVEL"
	EnvDBDSN             = "PORTFOLIOS_DB_DSN"
	EnvDBHost            = "PORTFOLIOS_DB_HOST"
	EnvDBUser            = "PORTFOLIOS_DB_USER"
	EnvDBName            = "PORTFOLIOS_DB_NAME"
	EnvDBPassword        = "PORTFOLIOS_DB_PASSWORD"
	EnvRedisURL          = "PORTFOLIOS_REDIS_URL"
	EnvGCPProjectID      = "PORTFOLIOS_GCP_PROJECT_ID"
	EnvPubSubOrdersSub   = "PORTFOLIOS_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvLifecycleTimezone = "PORTFOLIOS_LIFECYCLE_TIMEZONE"
	EnvSyncBackfill      = "PORTFOLIOS_SYNC_BACKFILL"
	EnvMigrateLimit      = "PORTFOLIOS_MIGRATE_UNASSIGNED_LIMIT"
	EnvCronInterval      = "PORTFOLIOS_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
