package config

const (
	// EnvPrefix is passed to envconfig; individual fields carry the full
	// variable names so the prefix stays empty.
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "STORERATINGS_DB_DSN"
	EnvDBHost = "STORERATINGS_DB_HOST"
	EnvDBUser = "STORERATINGS_DB_USER"
	EnvDBName = "STORERATINGS_DB_NAME"
)

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}
