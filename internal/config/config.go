package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server ServerConfig
	App    AppConfig
	Amazon AmazonConfig
	Store  StoreConfig
	Cache  CacheConfig
	Sync   SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8001"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"wttt-sync-worker"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// AmazonConfig holds Selling Partner API credentials and endpoints.
type AmazonConfig struct {
	Region          string        `envconfig:"SP_API_REGION" default:"NA"`
	SellerID        string        `envconfig:"SP_API_SELLER_ID" default:""`
	MarketplaceIDs  string        `envconfig:"MARKETPLACE_IDS" default:"ATVPDKIKX0DER"`
	LWAClientID     string        `envconfig:"LWA_CLIENT_ID" default:""`
	LWAClientSecret string        `envconfig:"LWA_CLIENT_SECRET" default:""`
	RefreshToken    string        `envconfig:"SP_API_REFRESH_TOKEN" default:""`
	TokenEndpoint   string        `envconfig:"LWA_TOKEN_ENDPOINT" default:"https://api.amazon.com/auth/o2/token"`
	Endpoint        string        `envconfig:"SP_API_ENDPOINT" default:""` // overrides region base URL when set
	RequestTimeout  time.Duration `envconfig:"SP_API_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries      int           `envconfig:"SP_API_MAX_RETRIES" default:"4"`
}

// StoreConfig holds sync store settings.
type StoreConfig struct {
	Type string `envconfig:"SYNC_DB_TYPE" default:"sqlite"` // sqlite or mysql
	Path string `envconfig:"SYNC_DB_PATH" default:"./data/sync.db"`
	// MySQL settings
	Host     string `envconfig:"SYNC_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"SYNC_DB_PORT" default:"3306"`
	Name     string `envconfig:"SYNC_DB_NAME" default:"wttt"`
	User     string `envconfig:"SYNC_DB_USER" default:"root"`
	Password string `envconfig:"SYNC_DB_PASS" default:""`
}

// CacheConfig holds Redis settings for sync-status bookkeeping.
type CacheConfig struct {
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// SyncConfig holds scheduling and trigger-surface settings.
type SyncConfig struct {
	IntervalMinutes int           `envconfig:"SYNC_INTERVAL_MINUTES" default:"30"`
	RunTimeout      time.Duration `envconfig:"SYNC_RUN_TIMEOUT" default:"10m"`
	WorkerSecret    string        `envconfig:"WORKER_SECRET_KEY" default:"changeme"`
}

// MarketplaceIDList splits the configured marketplace ids.
func (a *AmazonConfig) MarketplaceIDList() []string {
	parts := strings.Split(a.MarketplaceIDs, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// Interval returns the recurring sync interval as a duration.
func (s *SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
