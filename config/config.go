package config

import (
	"strings"
	"time"

	"labventory/pkg/logger"

	"github.com/spf13/viper"
)

const (
	DuplicateFailOpen   = "open"
	DuplicateFailClosed = "closed"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	GeneralVersion       string        `mapstructure:"GENERAL_VERSION"`
	Environment          string        `mapstructure:"ENVIRONMENT"`
	ServerPort           int           `mapstructure:"SERVER_PORT"`
	DatabaseDriver       string        `mapstructure:"DB_DRIVER"`
	DatabaseHost         string        `mapstructure:"DB_HOST"`
	DatabasePort         int           `mapstructure:"DB_PORT"`
	DatabaseName         string        `mapstructure:"DB_NAME"`
	DatabaseUser         string        `mapstructure:"DB_USER"`
	DatabasePassword     string        `mapstructure:"DB_PASSWORD"`
	DatabasePath         string        `mapstructure:"DB_PATH"`
	DatabaseCacheAddress string        `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int           `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int           `mapstructure:"DB_CACHE_RESET"`
	CorsAllowOrigins     string        `mapstructure:"CORS_ALLOW_ORIGINS"`
	JWTSecret            string        `mapstructure:"JWT_SECRET"`
	JWTExpiry            time.Duration `mapstructure:"JWT_EXPIRY"`
	DuplicateFailureMode string        `mapstructure:"DUPLICATE_FAILURE_MODE"`
	LowStockThreshold    float64       `mapstructure:"LOW_STOCK_THRESHOLD"`
	ExpiryWindowDays     int           `mapstructure:"EXPIRY_WINDOW_DAYS"`
	SchedulerEnabled     bool          `mapstructure:"SCHEDULER_ENABLED"`
	MetricsEnabled       bool          `mapstructure:"METRICS_ENABLED"`
}

var ConfigInstance Config

var envVars = []string{
	"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_PATH",
	"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
	"CORS_ALLOW_ORIGINS",
	"JWT_SECRET", "JWT_EXPIRY",
	"DUPLICATE_FAILURE_MODE", "LOW_STOCK_THRESHOLD", "EXPIRY_WINDOW_DAYS",
	"SCHEDULER_ENABLED", "METRICS_ENABLED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8288)
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_CACHE_RESET", -1)
	v.SetDefault("JWT_EXPIRY", 24*time.Hour)
	v.SetDefault("DUPLICATE_FAILURE_MODE", DuplicateFailOpen)
	v.SetDefault("LOW_STOCK_THRESHOLD", 1)
	v.SetDefault("EXPIRY_WINDOW_DAYS", 30)
	v.SetDefault("METRICS_ENABLED", true)
}

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	for _, env := range envVars {
		if err := v.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	if v.IsSet("JWT_SECRET") && (v.IsSet("DB_HOST") || v.IsSet("DB_PATH")) {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		v.SetConfigFile(".env")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		v.SetConfigFile(".env.local")
		if err := v.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	config.DatabaseDriver = strings.ToLower(config.DatabaseDriver)
	config.DuplicateFailureMode = strings.ToLower(config.DuplicateFailureMode)

	if err := Validate(config); err != nil {
		return Config{}, err
	}

	ConfigInstance = config
	log.Info(
		"Successfully initialized config",
		"environment", config.Environment,
		"driver", config.DatabaseDriver,
		"port", config.ServerPort,
	)

	return config, nil
}

func GetConfig() Config {
	return ConfigInstance
}

// FailClosed reports whether duplicate checks should surface lookup errors
// instead of letting the write through.
func (c Config) FailClosed() bool {
	return c.DuplicateFailureMode == DuplicateFailClosed
}

// CacheEnabled reports whether a valkey address is configured
func (c Config) CacheEnabled() bool {
	return c.DatabaseCacheAddress != "" && c.DatabaseCachePort != 0
}

func Validate(config Config) error {
	log := logger.New("config").Function("Validate")

	if config.ServerPort <= 0 {
		return log.Error("Fatal error: invalid server port", "port", config.ServerPort)
	}

	switch config.DatabaseDriver {
	case DriverPostgres:
		if config.DatabaseHost == "" || config.DatabaseName == "" || config.DatabaseUser == "" {
			return log.ErrMsg("Fatal error: DB_HOST, DB_NAME and DB_USER are required for postgres")
		}
	case DriverSQLite:
		if config.DatabasePath == "" {
			return log.ErrMsg("Fatal error: DB_PATH is required for sqlite")
		}
	default:
		return log.Error("Fatal error: unsupported database driver", "driver", config.DatabaseDriver)
	}

	if config.JWTSecret == "" {
		return log.ErrMsg("Fatal error: JWT_SECRET is required")
	}

	if config.JWTExpiry <= 0 {
		return log.Error("Fatal error: invalid JWT expiry", "expiry", config.JWTExpiry)
	}

	if config.DuplicateFailureMode != DuplicateFailOpen &&
		config.DuplicateFailureMode != DuplicateFailClosed {
		return log.Error(
			"Fatal error: DUPLICATE_FAILURE_MODE must be open or closed",
			"mode", config.DuplicateFailureMode,
		)
	}

	if config.LowStockThreshold < 0 {
		return log.Error("Fatal error: LOW_STOCK_THRESHOLD cannot be negative",
			"threshold", config.LowStockThreshold)
	}

	if config.ExpiryWindowDays <= 0 {
		return log.Error("Fatal error: EXPIRY_WINDOW_DAYS must be positive",
			"days", config.ExpiryWindowDays)
	}

	return nil
}
