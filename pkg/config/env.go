package config

const (
	EnvPrefix = "QUESTCRAFT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DefaultSQLiteDSN = "file:questcraft.db?_foreign_keys=on"

	EnvAppEnv      = "QUESTCRAFT_APP_ENV"
	EnvPort        = "QUESTCRAFT_APP_PORT"
	EnvDBDSN       = "QUESTCRAFT_DB_DSN"
	EnvDBDriver    = "QUESTCRAFT_DB_DRIVER"
	EnvDBHost      = "QUESTCRAFT_DB_HOST"
	EnvDBUser      = "QUESTCRAFT_DB_USER"
	EnvDBName      = "QUESTCRAFT_DB_NAME"
	EnvDBPassword  = "QUESTCRAFT_DB_PASSWORD"
	EnvRedisURL    = "QUESTCRAFT_REDIS_URL"
	EnvJWTSecret   = "QUESTCRAFT_JWT_SECRET"
	EnvJWTIssuer   = "QUESTCRAFT_JWT_ISSUER"
	EnvUseSQLite   = "QUESTCRAFT_USE_SQLITE"
	EnvCORSOrigins = "QUESTCRAFT_CORS_ALLOWED_ORIGINS"

	EnvGoogleClientID     = "QUESTCRAFT_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "QUESTCRAFT_GOOGLE_CLIENT_SECRET"
	EnvAllowedEmails      = "QUESTCRAFT_AUTH_ALLOWED_EMAILS"

	EnvDriveFolderID    = "QUESTCRAFT_DRIVE_FOLDER_ID"
	EnvDriveClientEmail = "QUESTCRAFT_DRIVE_CLIENT_EMAIL"
	EnvDrivePrivateKey  = "QUESTCRAFT_DRIVE_PRIVATE_KEY"

	EnvMaxUploadMB = "QUESTCRAFT_MAX_UPLOAD_MB"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
