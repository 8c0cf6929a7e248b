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
	Cookie        CookieConfig
	Cart          CartConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"TSIKI_APP_ENV" required:"true"`
	Port         string   `envconfig:"TSIKI_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"TSIKI_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TSIKI_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"TSIKI_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"TSIKI_DB_DSN"`
	Driver string `envconfig:"TSIKI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TSIKI_DB_HOST"`
	LegacyPort     int    `envconfig:"TSIKI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TSIKI_DB_USER"`
	LegacyPassword string `envconfig:"TSIKI_DB_PASSWORD"`
	LegacyName     string `envconfig:"TSIKI_DB_NAME"`
	LegacySSLMode  string `envconfig:"TSIKI_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"TSIKI_SQLITE_PATH" default:"tsiki.db"`

	MaxOpenConns    int           `envconfig:"TSIKI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TSIKI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TSIKI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TSIKI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TSIKI_REDIS_URL"`
	Address      string        `envconfig:"TSIKI_REDIS_ADDR"`
	Password     string        `envconfig:"TSIKI_REDIS_PASSWORD"`
	DB           int           `envconfig:"TSIKI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TSIKI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TSIKI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TSIKI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TSIKI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TSIKI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TSIKI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TSIKI_JWT_ISSUER" default:"tsiki"`
	ExpirationMinutes int    `envconfig:"TSIKI_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// TTL returns the session validity window.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TSIKI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TSIKI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TSIKI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TSIKI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TSIKI_ARGON_KEY_LEN" default:"32"`
}

type CookieConfig struct {
	Domain string `envconfig:"TSIKI_COOKIE_DOMAIN"`
	// Secure forces the Secure attribute outside production (e.g. staging behind TLS).
	Secure       bool          `envconfig:"TSIKI_COOKIE_SECURE" default:"false"`
	CartIDMaxAge time.Duration `envconfig:"TSIKI_CART_COOKIE_MAX_AGE" default:"8760h"`
}

type CartConfig struct {
	DefaultMaxQuantity int            `envconfig:"TSIKI_CART_DEFAULT_MAX_QTY" default:"99"`
	StateTTL           time.Duration  `envconfig:"TSIKI_CART_STATE_TTL" default:"0s"`
	Coupons            map[string]int `envconfig:"TSIKI_CART_COUPONS" default:"WELCOME10:10"`
}

func (c CartConfig) validate() error {
	if c.DefaultMaxQuantity < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCartDefaultMaxQty)
	}
	for code, pct := range c.Coupons {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("coupon %q percent off must be within 0-100", code)
		}
	}
	return nil
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TSIKI_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TSIKI_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TSIKI_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TSIKI_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TSIKI_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TSIKI_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	// TrustProxyHeaders reads the client address from the hop our own proxy
	// appends to X-Forwarded-For. Leave off when the API is reachable directly.
	TrustProxyHeaders bool `envconfig:"TSIKI_AUTH_RATE_LIMIT_TRUST_PROXY_HEADERS" default:"false"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TSIKI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TSIKI_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite || db.DSN != "" {
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
