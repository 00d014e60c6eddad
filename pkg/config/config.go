package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	Checkout      CheckoutConfig
	Mail          MailConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"COLOGNEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"COLOGNEHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COLOGNEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COLOGNEHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COLOGNEHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COLOGNEHUB_DB_DSN"`
	Driver string `envconfig:"COLOGNEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COLOGNEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"COLOGNEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COLOGNEHUB_DB_USER"`
	LegacyPassword string `envconfig:"COLOGNEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"COLOGNEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"COLOGNEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COLOGNEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COLOGNEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COLOGNEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COLOGNEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COLOGNEHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COLOGNEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"COLOGNEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"COLOGNEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COLOGNEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COLOGNEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COLOGNEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COLOGNEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COLOGNEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"COLOGNEHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"COLOGNEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"COLOGNEHUB_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"COLOGNEHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COLOGNEHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COLOGNEHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COLOGNEHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COLOGNEHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COLOGNEHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"COLOGNEHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"COLOGNEHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"COLOGNEHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"COLOGNEHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"COLOGNEHUB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"COLOGNEHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COLOGNEHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COLOGNEHUB_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"COLOGNEHUB_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"COLOGNEHUB_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COLOGNEHUB_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"COLOGNEHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COLOGNEHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"COLOGNEHUB_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"COLOGNEHUB_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type StripeConfig struct {
	SecretKey     string `envconfig:"COLOGNEHUB_STRIPE_SECRET_KEY" required:"true"`
	WebhookSecret string `envconfig:"COLOGNEHUB_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env           string `envconfig:"COLOGNEHUB_STRIPE_ENV" default:"test"`
	Currency      string `envconfig:"COLOGNEHUB_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	PendingOrderTTL    time.Duration `envconfig:"COLOGNEHUB_CHECKOUT_PENDING_ORDER_TTL" default:"24h"`
	FreeShippingCents  int64         `envconfig:"COLOGNEHUB_CHECKOUT_FREE_SHIPPING_CENTS" default:"50000"`
	FlatShippingCents  int64         `envconfig:"COLOGNEHUB_CHECKOUT_FLAT_SHIPPING_CENTS" default:"999"`
	TaxRateBasisPoints int64         `envconfig:"COLOGNEHUB_CHECKOUT_TAX_RATE_BPS" default:"800"`
}

type MailConfig struct {
	FromAddress string        `envconfig:"COLOGNEHUB_MAIL_FROM" default:"no-reply@thecolognehub.com"`
	CodeTTL     time.Duration `envconfig:"COLOGNEHUB_MAIL_CODE_TTL" default:"15m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COLOGNEHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COLOGNEHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COLOGNEHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
