package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory = "memory"
	StorageDriverRedis  = "redis"
	StorageDriverSQL    = "sql"
)

const (
	MinimumOrderAdvisory = "advisory"
	MinimumOrderEnforce  = "enforce"
)

const (
	EnvAppEnv           = "STOREFRONT_APP_ENV"
	EnvPort             = "STOREFRONT_APP_PORT"
	EnvCommerceBaseURL  = "STOREFRONT_COMMERCE_BASE_URL"
	EnvCommerceTimeout  = "STOREFRONT_COMMERCE_TIMEOUT"
	EnvStorageDriver    = "STOREFRONT_STORAGE_DRIVER"
	EnvRedisURL         = "STOREFRONT_REDIS_URL"
	EnvRedisAddr        = "STOREFRONT_REDIS_ADDR"
	EnvSessionSecret    = "STOREFRONT_SESSION_SECRET"
	EnvMinimumOrder     = "STOREFRONT_CHECKOUT_MINIMUM_ORDER_POLICY"
	EnvDBDSN            = "STOREFRONT_DB_DSN"
	EnvDBHost           = "STOREFRONT_DB_HOST"
	EnvDBUser           = "STOREFRONT_DB_USER"
	EnvDBName           = "STOREFRONT_DB_NAME"
	EnvCORSAllowOrigins = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
