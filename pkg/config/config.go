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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Signup        SignupConfig
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
	Env          string `envconfig:"TOOLSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"TOOLSTOCK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"TOOLSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TOOLSTOCK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"TOOLSTOCK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TOOLSTOCK_DB_DSN"`
	Driver string `envconfig:"TOOLSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TOOLSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"TOOLSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOOLSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"TOOLSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOOLSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOOLSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOOLSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOOLSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOOLSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOOLSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TOOLSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TOOLSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"TOOLSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOOLSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOOLSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOOLSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOOLSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOOLSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOOLSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TOOLSTOCK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TOOLSTOCK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TOOLSTOCK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TOOLSTOCK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TOOLSTOCK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TOOLSTOCK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TOOLSTOCK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TOOLSTOCK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TOOLSTOCK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TOOLSTOCK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TOOLSTOCK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TOOLSTOCK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TOOLSTOCK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TOOLSTOCK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TOOLSTOCK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// SignupConfig gates creation of admin accounts at registration time.
type SignupConfig struct {
	AdminKey string `envconfig:"TOOLSTOCK_ADMIN_SIGNUP_KEY"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TOOLSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TOOLSTOCK_AUTO_MIGRATE" default:"false"`
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
