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
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	GoogleOAuth   GoogleOAuthConfig
	Drive         DriveConfig
	Media         MediaConfig
	Manifest      ManifestConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"QUESTCRAFT_APP_ENV" required:"true"`
	Port         string `envconfig:"QUESTCRAFT_APP_PORT" default:"8080"`
	PublicURL    string `envconfig:"QUESTCRAFT_PUBLIC_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"QUESTCRAFT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUESTCRAFT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"QUESTCRAFT_DB_DSN"`
	Driver string `envconfig:"QUESTCRAFT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUESTCRAFT_DB_HOST"`
	LegacyPort     int    `envconfig:"QUESTCRAFT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUESTCRAFT_DB_USER"`
	LegacyPassword string `envconfig:"QUESTCRAFT_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUESTCRAFT_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUESTCRAFT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUESTCRAFT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUESTCRAFT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUESTCRAFT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUESTCRAFT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUESTCRAFT_REDIS_URL"`
	Address      string        `envconfig:"QUESTCRAFT_REDIS_ADDR"`
	Password     string        `envconfig:"QUESTCRAFT_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUESTCRAFT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUESTCRAFT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUESTCRAFT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUESTCRAFT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUESTCRAFT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUESTCRAFT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret         string `envconfig:"QUESTCRAFT_JWT_SECRET" required:"true"`
	Issuer         string `envconfig:"QUESTCRAFT_JWT_ISSUER" default:"questcraft-cms"`
	SessionTTLDays int    `envconfig:"QUESTCRAFT_SESSION_TTL_DAYS" default:"30"`
}

// SessionTTL is the lifetime of a dashboard session and of the JWT that
// identifies it.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(j.SessionTTLDays) * 24 * time.Hour
}

type AuthRateLimitConfig struct {
	Window  time.Duration `envconfig:"QUESTCRAFT_AUTH_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"QUESTCRAFT_AUTH_RATE_LIMIT_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QUESTCRAFT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QUESTCRAFT_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"QUESTCRAFT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type GoogleOAuthConfig struct {
	ClientID      string   `envconfig:"QUESTCRAFT_GOOGLE_CLIENT_ID"`
	ClientSecret  string   `envconfig:"QUESTCRAFT_GOOGLE_CLIENT_SECRET"`
	RedirectURL   string   `envconfig:"QUESTCRAFT_GOOGLE_REDIRECT_URL"`
	AllowedEmails []string `envconfig:"QUESTCRAFT_AUTH_ALLOWED_EMAILS"`
	// RefreshLeeway is how far ahead of expiry the stored access token is
	// exchanged for a new one.
	RefreshLeeway time.Duration `envconfig:"QUESTCRAFT_GOOGLE_REFRESH_LEEWAY" default:"300s"`
}

// Enabled reports whether the Google sign-in flow has credentials.
func (g GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// EmailAllowed reports whether the address may sign in. An empty allow
// list admits everyone.
func (g GoogleOAuthConfig) EmailAllowed(email string) bool {
	if len(g.AllowedEmails) == 0 {
		return true
	}
	for _, allowed := range g.AllowedEmails {
		if strings.EqualFold(strings.TrimSpace(allowed), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

type DriveConfig struct {
	FolderID    string `envconfig:"QUESTCRAFT_DRIVE_FOLDER_ID"`
	ClientEmail string `envconfig:"QUESTCRAFT_DRIVE_CLIENT_EMAIL"`
	PrivateKey  string `envconfig:"QUESTCRAFT_DRIVE_PRIVATE_KEY"`
	// Endpoint overrides the Drive API base URL.
	Endpoint string        `envconfig:"QUESTCRAFT_DRIVE_ENDPOINT"`
	Timeout  time.Duration `envconfig:"QUESTCRAFT_DRIVE_TIMEOUT" default:"60s"`
}

// ServiceAccountConfigured reports whether process-wide Drive credentials
// are available.
func (d DriveConfig) ServiceAccountConfigured() bool {
	return d.ClientEmail != "" && d.PrivateKey != ""
}

// NormalizedPrivateKey returns the PEM key with escaped newlines expanded.
func (d DriveConfig) NormalizedPrivateKey() string {
	return strings.ReplaceAll(d.PrivateKey, `\n`, "\n")
}

type MediaConfig struct {
	MaxUploadMB       int    `envconfig:"QUESTCRAFT_MAX_UPLOAD_MB" default:"50"`
	DefaultFolderName string `envconfig:"QUESTCRAFT_UPLOAD_FOLDER_NAME" default:"QuestCraft Rewards"`
	ThumbnailSize     int    `envconfig:"QUESTCRAFT_THUMBNAIL_SIZE" default:"800"`
}

// MaxUploadBytes converts MaxUploadMB into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 50 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type ManifestConfig struct {
	RatePerSecond float64 `envconfig:"QUESTCRAFT_MANIFEST_RATE_PER_SECOND" default:"5"`
	Burst         int     `envconfig:"QUESTCRAFT_MANIFEST_BURST" default:"20"`
	FileName      string  `envconfig:"QUESTCRAFT_MANIFEST_FILE_NAME" default:"manifest.json"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DriverSQLite) {
		db.DSN = DefaultSQLiteDSN
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
