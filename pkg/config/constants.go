package config

const (
	EnvPrefix = "toolstock"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TOOLSTOCK_DB_DSN"
	EnvDBHost = "TOOLSTOCK_DB_HOST"
	EnvDBUser = "TOOLSTOCK_DB_USER"
	EnvDBName = "TOOLSTOCK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
