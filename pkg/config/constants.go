package config

const (
	EnvPrefix = "COLOGNEHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "COLOGNEHUB_DB_DSN"
	EnvDBHost = "COLOGNEHUB_DB_HOST"
	EnvDBUser = "COLOGNEHUB_DB_USER"
	EnvDBName = "COLOGNEHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
