package config

const (
	EnvPrefix = "SOLEDROP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:soledrop.db?_foreign_keys=on&_busy_timeout=5000"

	EnvAppEnv         = "SOLEDROP_APP_ENV"
	EnvPort           = "SOLEDROP_APP_PORT"
	EnvLogLevel       = "SOLEDROP_LOG_LEVEL"
	EnvDBDSN          = "SOLEDROP_DB_DSN"
	EnvDBDriver       = "SOLEDROP_DB_DRIVER"
	EnvDBHost         = "SOLEDROP_DB_HOST"
	EnvDBUser         = "SOLEDROP_DB_USER"
	EnvDBPassword     = "SOLEDROP_DB_PASSWORD"
	EnvDBName         = "SOLEDROP_DB_NAME"
	EnvTxMaxWait      = "SOLEDROP_TX_MAX_WAIT"
	EnvTxTimeout      = "SOLEDROP_TX_TIMEOUT"
	EnvRedisURL       = "SOLEDROP_REDIS_URL"
	EnvJWTSecret      = "SOLEDROP_JWT_SECRET"
	EnvJWTIssuer      = "SOLEDROP_JWT_ISSUER"
	EnvGCPProjectID   = "SOLEDROP_GCP_PROJECT_ID"
	EnvGCSBucket      = "SOLEDROP_GCS_BUCKET_NAME"
	EnvUseSQLite      = "SOLEDROP_USE_SQLITE"
	EnvCatalogTopic   = "SOLEDROP_PUBSUB_CATALOG_TOPIC"
	EnvCORSOrigins    = "SOLEDROP_CORS_ALLOWED_ORIGINS"
	EnvMaxUploadMB    = "SOLEDROP_MAX_UPLOAD_MB"
	EnvOutboxBatch    = "SOLEDROP_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollMS   = "SOLEDROP_OUTBOX_PUBLISH_POLL_MS"
	EnvOutboxMaxTries = "SOLEDROP_OUTBOX_MAX_ATTEMPTS"
	EnvCronInterval   = "SOLEDROP_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
