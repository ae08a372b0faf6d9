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
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
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
	Env            string   `envconfig:"STORERATINGS_APP_ENV" required:"true"`
	Port           string   `envconfig:"STORERATINGS_APP_PORT" required:"true"`
	LogLevel       string   `envconfig:"STORERATINGS_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"STORERATINGS_LOG_WARN_STACK" default:"false"`
	AllowedOrigins []string `envconfig:"STORERATINGS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STORERATINGS_DB_DSN"`
	Driver string `envconfig:"STORERATINGS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STORERATINGS_DB_HOST"`
	LegacyPort     int    `envconfig:"STORERATINGS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STORERATINGS_DB_USER"`
	LegacyPassword string `envconfig:"STORERATINGS_DB_PASSWORD"`
	LegacyName     string `envconfig:"STORERATINGS_DB_NAME"`
	LegacySSLMode  string `envconfig:"STORERATINGS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORERATINGS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORERATINGS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORERATINGS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORERATINGS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STORERATINGS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STORERATINGS_REDIS_ADDR"`
	Password     string        `envconfig:"STORERATINGS_REDIS_PASSWORD"`
	DB           int           `envconfig:"STORERATINGS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STORERATINGS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STORERATINGS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STORERATINGS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STORERATINGS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STORERATINGS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STORERATINGS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STORERATINGS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STORERATINGS_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STORERATINGS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STORERATINGS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STORERATINGS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STORERATINGS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STORERATINGS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STORERATINGS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STORERATINGS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STORERATINGS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STORERATINGS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STORERATINGS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STORERATINGS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STORERATINGS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STORERATINGS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STORERATINGS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STORERATINGS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STORERATINGS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"STORERATINGS_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"STORERATINGS_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB       int      `envconfig:"STORERATINGS_MAX_UPLOAD_MB" default:"10"`
	AllowedImageTypes []string `envconfig:"STORERATINGS_MEDIA_IMAGE_TYPES" default:"image/jpeg,image/png,image/gif,image/webp"`
	AllowedVideoTypes []string `envconfig:"STORERATINGS_MEDIA_VIDEO_TYPES" default:"video/mp4,video/webm,video/quicktime"`
}

// MaxUploadBytes converts the configured megabyte cap into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) << 20
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
