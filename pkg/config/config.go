package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseURL    string `mapstructure:"DATABASE_URL" validate:"required,url|uri"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS" validate:"gte=1,lte=500"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// CacheBackend selects the cache collaborator: a shared redis instance or
	// a process-local TTL map.
	CacheBackend string        `mapstructure:"CACHE_BACKEND" validate:"required,oneof=redis memory"`
	CacheTTL     time.Duration `mapstructure:"CACHE_TTL" validate:"required"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	EvolutionDispatch    string `mapstructure:"EVOLUTION_DISPATCH" validate:"required,oneof=inline queue"`
	EvolutionBatchSize   int    `mapstructure:"EVOLUTION_BATCH_SIZE" validate:"gte=1,lte=10000"`
	EvolutionConcurrency int    `mapstructure:"EVOLUTION_CONCURRENCY" validate:"gte=1,lte=64"`

	GeneratingSweepInterval time.Duration `mapstructure:"GENERATING_SWEEP_INTERVAL" validate:"required"`
	GeneratingStaleAfter    time.Duration `mapstructure:"GENERATING_STALE_AFTER" validate:"required"`

	ImportRateLimit float64 `mapstructure:"IMPORT_RATE_LIMIT" validate:"gt=0"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var durationKeys = []string{
	"SHUTDOWN_TIMEOUT",
	"CACHE_TTL",
	"GENERATING_SWEEP_INTERVAL",
	"GENERATING_STALE_AFTER",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("CACHE_BACKEND", "redis")
	v.SetDefault("CACHE_TTL", "30m")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("EVOLUTION_DISPATCH", "queue")
	v.SetDefault("EVOLUTION_BATCH_SIZE", 1000)
	v.SetDefault("EVOLUTION_CONCURRENCY", 2)
	v.SetDefault("GENERATING_SWEEP_INTERVAL", "5m")
	v.SetDefault("GENERATING_STALE_AFTER", "1h")
	v.SetDefault("IMPORT_RATE_LIMIT", 1)

	// Optional config file
	_ = v.ReadInConfig()

	keys := []string{
		"APP_ENV",
		"HTTP_ADDR",
		"SHUTDOWN_TIMEOUT",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DATABASE_URL",
		"DB_MAX_OPEN_CONNS",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"CACHE_BACKEND",
		"CACHE_TTL",
		"ASYNQ_CONCURRENCY",
		"GOMAXPROCS",
		"JWT_SECRET",
		"EVOLUTION_DISPATCH",
		"EVOLUTION_BATCH_SIZE",
		"EVOLUTION_CONCURRENCY",
		"GENERATING_SWEEP_INTERVAL",
		"GENERATING_STALE_AFTER",
		"IMPORT_RATE_LIMIT",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	for _, key := range durationKeys {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		switch key {
		case "SHUTDOWN_TIMEOUT":
			c.ShutdownTimeout = d
		case "CACHE_TTL":
			c.CacheTTL = d
		case "GENERATING_SWEEP_INTERVAL":
			c.GeneratingSweepInterval = d
		case "GENERATING_STALE_AFTER":
			c.GeneratingStaleAfter = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
