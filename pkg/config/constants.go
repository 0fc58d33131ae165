package config

const (
	EnvPrefix = "MAKELAR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "MAKELAR_APP_ENV"
	EnvPort     = "MAKELAR_APP_PORT"
	EnvLogLevel = "MAKELAR_LOG_LEVEL"

	EnvDBDSN  = "MAKELAR_DB_DSN"
	EnvDBHost = "MAKELAR_DB_HOST"
	EnvDBUser = "MAKELAR_DB_USER"
	EnvDBName = "MAKELAR_DB_NAME"

	EnvRedisURL = "MAKELAR_REDIS_URL"

	EnvJWTSecret  = "MAKELAR_JWT_SECRET"
	EnvJWTIssuer  = "MAKELAR_JWT_ISSUER"
	EnvJWTExpMins = "MAKELAR_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "MAKELAR_USE_SQLITE"
	EnvAutoMigrate = "MAKELAR_AUTO_MIGRATE"

	EnvQuoteActiveStatuses = "MAKELAR_QUOTE_ACTIVE_STATUSES"
	EnvQuoteExpiryDays     = "MAKELAR_QUOTE_DEFAULT_EXPIRY_DAYS"

	EnvGCPProjectID     = "MAKELAR_GCP_PROJECT_ID"
	EnvPubSubQuoteTopic = "MAKELAR_PUBSUB_QUOTE_TOPIC"
	EnvPubSubOrderTopic = "MAKELAR_PUBSUB_ORDER_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
