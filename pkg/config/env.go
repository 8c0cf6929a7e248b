package config

const EnvPrefix = "TSIKI"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "TSIKI_APP_ENV"
	EnvPort   = "TSIKI_APP_PORT"

	EnvDBDSN  = "TSIKI_DB_DSN"
	EnvDBHost = "TSIKI_DB_HOST"
	EnvDBUser = "TSIKI_DB_USER"
	EnvDBName = "TSIKI_DB_NAME"

	EnvRedisURL = "TSIKI_REDIS_URL"

	EnvJWTSecret  = "TSIKI_JWT_SECRET"
	EnvJWTIssuer  = "TSIKI_JWT_ISSUER"
	EnvJWTExpMins = "TSIKI_JWT_EXPIRATION_MINUTES"

	EnvCartDefaultMaxQty = "TSIKI_CART_DEFAULT_MAX_QTY"
	EnvCartCoupons       = "TSIKI_CART_COUPONS"

	EnvUseSQLite = "TSIKI_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
