package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STRAYSAVER_SESSION_SECRET_KEY.
const EnvPrefix = "STRAYSAVER"

// Storage backends understood by repository.Open.
const (
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
)

// Session store kinds.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config represents the application configuration
type Config struct {
	WebService   WebServiceConfig   `mapstructure:"web_service"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Upload       UploadConfig       `mapstructure:"upload"`
	Identity     IdentityConfig     `mapstructure:"identity"`
	Session      SessionConfig      `mapstructure:"session"`
	RedisService RedisServiceConfig `mapstructure:"redis_service"`
	Security     SecurityConfig     `mapstructure:"security"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
}

type WebServiceConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig selects the report backend. Only the section matching
// Backend is read.
type StorageConfig struct {
	Backend   string          `mapstructure:"backend"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	File      FileConfig      `mapstructure:"file"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
}

type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Collection      string `mapstructure:"collection"`
}

type UploadConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// IdentityConfig points at the Identity Toolkit REST API. BaseURL may be
// the Firebase Auth emulator.
type IdentityConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	Store        string `mapstructure:"store"`
	CookieName   string `mapstructure:"cookie_name"`
	SecretKey    string `mapstructure:"secret_key"`
	ExpireHours  int    `mapstructure:"expire_hours"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
}

type RedisServiceConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// SecurityConfig holds the CSRF key. An empty key disables CSRF protection.
type SecurityConfig struct {
	CSRFKey string `mapstructure:"csrf_key"`
}

type RateLimitConfig struct {
	Window      time.Duration `mapstructure:"window"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	ErrUnknownBackend      = errors.New("unknown storage backend")
	ErrUnknownSessionStore = errors.New("unknown session store")
	ErrMissingSecret       = errors.New("session.secret_key is required")
	ErrBadCSRFKey          = errors.New("security.csrf_key must be exactly 32 bytes")
	ErrMissingAPIKey       = errors.New("identity.api_key is required")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("web_service.host", "0.0.0.0")
	v.SetDefault("web_service.port", 5000)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.timeout", 8*time.Second)
	v.SetDefault("storage.file.dir", "data/reports")
	v.SetDefault("storage.sqlite.path", "data/straysaver.db")
	v.SetDefault("storage.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongo.database", "straysaver")
	v.SetDefault("storage.mongo.collection", "animal_reports")
	v.SetDefault("storage.firestore.project_id", "")
	v.SetDefault("storage.firestore.credentials_file", "")
	v.SetDefault("storage.firestore.collection", "animal_reports")

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_bytes", 10<<20)

	v.SetDefault("identity.base_url", "https://identitytoolkit.googleapis.com")
	v.SetDefault("identity.api_key", "")
	v.SetDefault("identity.timeout", 10*time.Second)

	v.SetDefault("session.store", SessionStoreMemory)
	v.SetDefault("session.cookie_name", "straysaver_session")
	v.SetDefault("session.secret_key", "")
	v.SetDefault("session.expire_hours", 24)
	v.SetDefault("session.secure_cookie", false)

	v.SetDefault("redis_service.host", "localhost")
	v.SetDefault("redis_service.port", 6379)
	v.SetDefault("redis_service.db", 0)
	v.SetDefault("redis_service.password", "")

	v.SetDefault("security.csrf_key", "")

	v.SetDefault("rate_limit.window", 5*time.Minute)
	v.SetDefault("rate_limit.max_attempts", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configPath (skipped when empty) on top of the defaults and
// applies STRAYSAVER_* environment overrides. A .env file in the working
// directory is loaded first if present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMongo, BackendFirestore:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSessionStore, c.Session.Store)
	}
	if strings.TrimSpace(c.Session.SecretKey) == "" {
		return ErrMissingSecret
	}
	if strings.TrimSpace(c.Identity.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Security.CSRFKey != "" && len(c.Security.CSRFKey) != 32 {
		return ErrBadCSRFKey
	}
	return nil
}

// GetWebServiceAddr returns the web service address
func (c *Config) GetWebServiceAddr() string {
	return fmt.Sprintf("%s:%d", c.WebService.Host, c.WebService.Port)
}

// GetRedisAddr returns the redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisService.Host, c.RedisService.Port)
}

// SessionTTL is how long a session lives in the store and in the cookie.
func (c *Config) SessionTTL() time.Duration {
	if c.Session.ExpireHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Session.ExpireHours) * time.Hour
}
