package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingBackend = errors.New("BACKEND_URL is required")

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	Notify    NotifyConfig
	Session   SessionConfig
	JWT       JWTConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BackendConfig points at the remote document backend.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
	// client-side limit on outgoing calls; 0 disables it
	RPS   float64
	Burst int
}

type RateLimitConfig struct {
	RPS    float64
	Burst  int
	Window time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether Redis-backed sessions, guard and limiter are used.
func (r RedisConfig) Enabled() bool { return r.Host != "" }

func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

// MongoDBConfig is optional; without a URI notification failures stay in memory.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type NotifyConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
	// number of failures kept by the in-memory log
	KeepFailures int
}

type SessionConfig struct {
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// JWTConfig.Secret is only needed when the portal should verify token
// signatures instead of just reading claims.
type JWTConfig struct {
	Secret string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5010")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("BACKEND_TIMEOUT", 15)
	viper.SetDefault("BACKEND_RPS", 0)
	viper.SetDefault("BACKEND_BURST", 10)
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW", 1)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("MONGODB_DATABASE", "docflow")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("NOTIFY_QUEUE_SIZE", 64)
	viper.SetDefault("NOTIFY_WORKERS", 2)
	viper.SetDefault("NOTIFY_TIMEOUT", 10)
	viper.SetDefault("NOTIFY_KEEP_FAILURES", 100)
	viper.SetDefault("SESSION_TTL", 60)
	viper.SetDefault("SESSION_COOKIE", "docflow_session")
	viper.SetDefault("SESSION_SECURE", false)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			URL:     viper.GetString("BACKEND_URL"),
			Timeout: time.Duration(viper.GetInt("BACKEND_TIMEOUT")) * time.Second,
			RPS:     viper.GetFloat64("BACKEND_RPS"),
			Burst:   viper.GetInt("BACKEND_BURST"),
		},
		RateLimit: RateLimitConfig{
			RPS:    viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:  viper.GetInt("RATE_LIMIT_BURST"),
			Window: time.Duration(viper.GetInt("RATE_LIMIT_WINDOW")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Notify: NotifyConfig{
			QueueSize:    viper.GetInt("NOTIFY_QUEUE_SIZE"),
			Workers:      viper.GetInt("NOTIFY_WORKERS"),
			Timeout:      time.Duration(viper.GetInt("NOTIFY_TIMEOUT")) * time.Second,
			KeepFailures: viper.GetInt("NOTIFY_KEEP_FAILURES"),
		},
		Session: SessionConfig{
			TTL:        time.Duration(viper.GetInt("SESSION_TTL")) * time.Minute,
			CookieName: viper.GetString("SESSION_COOKIE"),
			Secure:     viper.GetBool("SESSION_SECURE"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if cfg.Backend.URL == "" {
		return nil, ErrMissingBackend
	}
	u, err := url.Parse(cfg.Backend.URL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("BACKEND_URL %q is not an absolute url", cfg.Backend.URL)
	}

	return cfg, nil
}
