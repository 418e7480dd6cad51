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
	Service      ServiceConfig
	DB           DBConfig
	Tx           TxConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Media        MediaConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = defaultSQLiteDSN
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.Tx.MaxWait <= 0 || cfg.Tx.Timeout <= 0 {
		return nil, fmt.Errorf("%s and %s must be positive", EnvTxMaxWait, EnvTxTimeout)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOLEDROP_APP_ENV" required:"true"`
	Port         string `envconfig:"SOLEDROP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOLEDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOLEDROP_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SOLEDROP_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOLEDROP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOLEDROP_DB_DSN"`
	Driver string `envconfig:"SOLEDROP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOLEDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"SOLEDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOLEDROP_DB_USER"`
	LegacyPassword string `envconfig:"SOLEDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOLEDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOLEDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOLEDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOLEDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOLEDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOLEDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"SOLEDROP_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// TxConfig bounds every catalog mutation: MaxWait covers acquiring a connection
// and opening the transaction, Timeout covers the work done inside it.
type TxConfig struct {
	MaxWait time.Duration `envconfig:"SOLEDROP_TX_MAX_WAIT" default:"2s"`
	Timeout time.Duration `envconfig:"SOLEDROP_TX_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL            string        `envconfig:"SOLEDROP_REDIS_URL"`
	Address        string        `envconfig:"SOLEDROP_REDIS_ADDR"`
	Password       string        `envconfig:"SOLEDROP_REDIS_PASSWORD"`
	DB             int           `envconfig:"SOLEDROP_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"SOLEDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"SOLEDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"SOLEDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"SOLEDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"SOLEDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"SOLEDROP_IDEMPOTENCY_TTL" default:"24h"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"SOLEDROP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOLEDROP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOLEDROP_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SOLEDROP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SOLEDROP_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SOLEDROP_CORS_ALLOWED_ORIGINS" default:"*"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SOLEDROP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SOLEDROP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SOLEDROP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string        `envconfig:"SOLEDROP_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string        `envconfig:"SOLEDROP_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	CacheControl  string        `envconfig:"SOLEDROP_GCS_CACHE_CONTROL" default:"public, max-age=31536000"`
	UploadTimeout time.Duration `envconfig:"SOLEDROP_GCS_UPLOAD_TIMEOUT" default:"30s"`
}

type MediaConfig struct {
	MaxUploadMB    int `envconfig:"SOLEDROP_MAX_UPLOAD_MB" default:"50"`
	MaxFiles       int `envconfig:"SOLEDROP_MEDIA_MAX_FILES" default:"12"`
	ImageMaxWidth  int `envconfig:"SOLEDROP_MEDIA_IMAGE_MAX_WIDTH" default:"1920"`
	ImageMaxHeight int `envconfig:"SOLEDROP_MEDIA_IMAGE_MAX_HEIGHT" default:"1920"`
	ImageQuality   int `envconfig:"SOLEDROP_MEDIA_IMAGE_QUALITY" default:"82"`
}

// MaxUploadBytes converts MaxUploadMB into a byte budget for multipart parsing.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 0
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	CatalogTopic   string        `envconfig:"SOLEDROP_PUBSUB_CATALOG_TOPIC" default:"soledrop-catalog-events"`
	EmulatorHost   string        `envconfig:"SOLEDROP_PUBSUB_EMULATOR_HOST"`
	BatchDelay     time.Duration `envconfig:"SOLEDROP_PUBSUB_BATCH_DELAY" default:"10ms"`
	BatchCount     int           `envconfig:"SOLEDROP_PUBSUB_BATCH_COUNT" default:"100"`
	PublishTimeout time.Duration `envconfig:"SOLEDROP_PUBSUB_PUBLISH_TIMEOUT" default:"60s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SOLEDROP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SOLEDROP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SOLEDROP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"SOLEDROP_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"SOLEDROP_CRON_LOCK_TTL" default:"55m"`
	JobTimeout          time.Duration `envconfig:"SOLEDROP_CRON_JOB_TIMEOUT" default:"10m"`
	OutboxRetentionDays int           `envconfig:"SOLEDROP_CRON_OUTBOX_RETENTION_DAYS" default:"14"`
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
