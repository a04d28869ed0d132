package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable consumed by the service.
	EnvPrefix = "openshelf"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Analytics     AnalyticsConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"OPENSHELF_APP_ENV" required:"true"`
	Port         string `envconfig:"OPENSHELF_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OPENSHELF_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OPENSHELF_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OPENSHELF_DB_DSN"`
	Driver string `envconfig:"OPENSHELF_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"OPENSHELF_DB_HOST"`
	Port     int    `envconfig:"OPENSHELF_DB_PORT" default:"5432"`
	User     string `envconfig:"OPENSHELF_DB_USER"`
	Password string `envconfig:"OPENSHELF_DB_PASSWORD"`
	Name     string `envconfig:"OPENSHELF_DB_NAME"`
	SSLMode  string `envconfig:"OPENSHELF_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OPENSHELF_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OPENSHELF_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OPENSHELF_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OPENSHELF_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a DSN from the discrete host/user settings when one was
// not provided directly.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("db config requires either OPENSHELF_DB_DSN or host/user/name settings")
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()

	d.DSN = u.String()
	return nil
}

// RedisConfig is optional; when no URL or address is set, Redis-backed
// features (auth rate limiting) are disabled.
type RedisConfig struct {
	URL          string        `envconfig:"OPENSHELF_REDIS_URL"`
	Address      string        `envconfig:"OPENSHELF_REDIS_ADDR"`
	Password     string        `envconfig:"OPENSHELF_REDIS_PASSWORD"`
	DB           int           `envconfig:"OPENSHELF_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OPENSHELF_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OPENSHELF_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OPENSHELF_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OPENSHELF_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OPENSHELF_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"OPENSHELF_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"OPENSHELF_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"OPENSHELF_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OPENSHELF_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OPENSHELF_ARGON_TIME" default:"1"`
	ArgonParallelism int `envconfig:"OPENSHELF_ARGON_PARALLELISM" default:"4"`
	ArgonSaltLen     int `envconfig:"OPENSHELF_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OPENSHELF_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"OPENSHELF_AUTH_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"OPENSHELF_AUTH_LOGIN_IP_LIMIT" default:"10"`
	LoginUsernameLimit int           `envconfig:"OPENSHELF_AUTH_LOGIN_USERNAME_LIMIT" default:"5"`

	RegisterWindow  time.Duration `envconfig:"OPENSHELF_AUTH_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit int           `envconfig:"OPENSHELF_AUTH_REGISTER_IP_LIMIT" default:"20"`
}

type AnalyticsConfig struct {
	MostBorrowedLimit int `envconfig:"OPENSHELF_ANALYTICS_MOST_BORROWED_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OPENSHELF_FEATURE_AUTO_MIGRATE" default:"false"`
}
