package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "WATCHLIST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "WATCHLIST_APP_ENV"
	EnvPort       = "WATCHLIST_APP_PORT"
	EnvLogLevel   = "WATCHLIST_LOG_LEVEL"
	EnvDBDSN      = "WATCHLIST_DB_DSN"
	EnvDBDriver   = "WATCHLIST_DB_DRIVER"
	EnvDBHost     = "WATCHLIST_DB_HOST"
	EnvDBPort     = "WATCHLIST_DB_PORT"
	EnvDBUser     = "WATCHLIST_DB_USER"
	EnvDBPassword = "WATCHLIST_DB_PASSWORD"
	EnvDBName     = "WATCHLIST_DB_NAME"
	EnvDBSSLMode  = "WATCHLIST_DB_SSLMODE"
	EnvRedisURL   = "WATCHLIST_REDIS_URL"
	EnvRedisAddr  = "WATCHLIST_REDIS_ADDR"
	EnvJWTSecret  = "WATCHLIST_JWT_SECRET"
	EnvJWTIssuer  = "WATCHLIST_JWT_ISSUER"
	EnvJWTExpMins = "WATCHLIST_JWT_EXPIRATION_MINUTES"
	EnvBcryptCost = "WATCHLIST_BCRYPT_COST"
	EnvUseSQLite  = "WATCHLIST_USE_SQLITE"
	EnvMailHost   = "WATCHLIST_SMTP_HOST"
	EnvMailFrom   = "WATCHLIST_SMTP_FROM"
	EnvCORSOrigin = "WATCHLIST_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Mail          MailConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.Password.BcryptCost < 4 || cfg.Password.BcryptCost > 31 {
		return nil, fmt.Errorf("%s must be between 4 and 31, got %d", EnvBcryptCost, cfg.Password.BcryptCost)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WATCHLIST_APP_ENV" required:"true"`
	Port         string `envconfig:"WATCHLIST_APP_PORT" default:"3000"`
	LogLevel     string `envconfig:"WATCHLIST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WATCHLIST_LOG_WARN_STACK" default:"false"`
	Name         string `envconfig:"WATCHLIST_APP_NAME" default:"Watchlist API"`
	Version      string `envconfig:"WATCHLIST_APP_VERSION" default:"1.0.0"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `envconfig:"WATCHLIST_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WATCHLIST_HTTP_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"WATCHLIST_HTTP_IDLE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `envconfig:"WATCHLIST_HTTP_REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"WATCHLIST_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	DSN    string `envconfig:"WATCHLIST_DB_DSN"`
	Driver string `envconfig:"WATCHLIST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WATCHLIST_DB_HOST"`
	LegacyPort     int    `envconfig:"WATCHLIST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WATCHLIST_DB_USER"`
	LegacyPassword string `envconfig:"WATCHLIST_DB_PASSWORD"`
	LegacyName     string `envconfig:"WATCHLIST_DB_NAME"`
	LegacySSLMode  string `envconfig:"WATCHLIST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WATCHLIST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WATCHLIST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WATCHLIST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WATCHLIST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"WATCHLIST_REDIS_URL"`
	Address      string        `envconfig:"WATCHLIST_REDIS_ADDR"`
	Password     string        `envconfig:"WATCHLIST_REDIS_PASSWORD"`
	DB           int           `envconfig:"WATCHLIST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WATCHLIST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WATCHLIST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WATCHLIST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WATCHLIST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WATCHLIST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured. Without one the API
// runs with auth rate limiting switched off.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"WATCHLIST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WATCHLIST_JWT_ISSUER" default:"watchlist-api"`
	ExpirationMinutes int    `envconfig:"WATCHLIST_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	BcryptCost int `envconfig:"WATCHLIST_BCRYPT_COST" default:"12"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"WATCHLIST_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"WATCHLIST_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"WATCHLIST_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"WATCHLIST_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"WATCHLIST_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"WATCHLIST_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	VerifyWindow       time.Duration `envconfig:"WATCHLIST_AUTH_RATE_LIMIT_VERIFY_WINDOW" default:"10m"`
	VerifyEmailLimit   int           `envconfig:"WATCHLIST_AUTH_RATE_LIMIT_VERIFY_EMAIL_LIMIT" default:"10"`
	VerifyIPLimit      int           `envconfig:"WATCHLIST_AUTH_RATE_LIMIT_VERIFY_IP_LIMIT" default:"50"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WATCHLIST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WATCHLIST_AUTO_MIGRATE" default:"false"`
}

type MailConfig struct {
	Host     string `envconfig:"WATCHLIST_SMTP_HOST"`
	Port     int    `envconfig:"WATCHLIST_SMTP_PORT" default:"587"`
	Username string `envconfig:"WATCHLIST_SMTP_USERNAME"`
	Password string `envconfig:"WATCHLIST_SMTP_PASSWORD"`
	From     string `envconfig:"WATCHLIST_SMTP_FROM" default:"Watchlist <no-reply@watchlist.local>"`
}

// Enabled reports whether an SMTP relay is configured.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.Host) != ""
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"WATCHLIST_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:watchlist.db?cache=shared&_fk=1"
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
