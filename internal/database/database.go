package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"labventory/config"
	"labventory/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/valkey-io/valkey-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

type CacheClient valkey.Client

// Cache groups the valkey clients by logical database. Every field is nil when
// no cache address is configured; callers treat a nil client as a cache miss.
type Cache struct {
	General CacheClient
	Session CacheClient
	User    CacheClient
	Events  CacheClient
}

type DB struct {
	SQL   *gorm.DB
	Cache Cache
	log   logger.Logger
}

func New(config config.Config) (DB, error) {
	log := logger.New("database").Function("New")

	log.Info("Initializing database", "driver", config.DatabaseDriver)
	db := &DB{log: log}

	if err := db.initializeDB(config); err != nil {
		return DB{}, log.Err("failed to initialize database", err)
	}

	if config.CacheEnabled() {
		if err := db.initializeCacheDB(config); err != nil {
			return DB{}, log.Err("failed to initialize cache database", err)
		}
	} else {
		log.Warn("No cache address configured, running without valkey cache and event bus")
	}

	return *db, nil
}

// NewSQLite opens a sqlite database without a cache. ":memory:" is pinned to a
// single connection so every query sees the same database.
func NewSQLite(path string) (DB, error) {
	log := logger.New("database").Function("NewSQLite")
	db := &DB{log: log}

	if err := db.initializeSQLiteDB(gormConfig(), path); err != nil {
		return DB{}, err
	}
	return *db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormLogger.New(
			slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
			gormLogger.Config{
				SlowThreshold:             5 * time.Second,
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
			},
		),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *DB) initializeDB(config config.Config) error {
	switch config.DatabaseDriver {
	case "", "postgres", "postgresql":
		return s.initializePostgresDB(gormConfig(), config)
	case "sqlite":
		return s.initializeSQLiteDB(gormConfig(), config.DatabasePath)
	default:
		return s.log.Error("unsupported database driver", "driver", config.DatabaseDriver)
	}
}

func (s *DB) initializePostgresDB(gormConfig *gorm.Config, config config.Config) error {
	log := s.log.Function("initializePostgresDB")

	if config.DatabaseHost == "" {
		return log.ErrMsg("database host is empty")
	}
	if config.DatabaseName == "" {
		return log.ErrMsg("database name is empty")
	}
	if config.DatabaseUser == "" {
		return log.ErrMsg("database user is empty")
	}

	log.Info(
		"Connecting to PostgreSQL",
		"host", config.DatabaseHost,
		"port", config.DatabasePort,
		"database", config.DatabaseName,
	)
	db, err := gorm.Open(postgres.Open(PostgresDSN(config)), gormConfig)
	if err != nil {
		return log.Err("failed to open PostgreSQL database with GORM", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return log.Err("failed to get database from GORM", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return log.Err("failed to ping PostgreSQL database through GORM", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Successfully connected to PostgreSQL with GORM")
	s.SQL = db
	return nil
}

func (s *DB) initializeSQLiteDB(gormConfig *gorm.Config, path string) error {
	log := s.log.Function("initializeSQLiteDB")

	if path == "" {
		return log.ErrMsg("sqlite path is empty")
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return log.Err("failed to open sqlite database", err, "path", path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return log.Err("failed to get database from GORM", err)
	}

	if strings.HasPrefix(path, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("Opened sqlite database", "path", path)
	s.SQL = db
	return nil
}

// PostgresDSN is shared with the migration command
func PostgresDSN(config config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		config.DatabaseHost,
		config.DatabasePort,
		config.DatabaseUser,
		config.DatabasePassword,
		config.DatabaseName,
	)
}

func (s *DB) logger() logger.Logger {
	if s.log == nil {
		s.log = logger.New("database")
	}
	return s.log
}

func (s *DB) cacheClients() []struct {
	client CacheClient
	name   string
} {
	return []struct {
		client CacheClient
		name   string
	}{
		{s.Cache.General, "General"},
		{s.Cache.Session, "Session"},
		{s.Cache.User, "User"},
		{s.Cache.Events, "Events"},
	}
}

func (s *DB) Close() (err error) {
	log := s.logger().Function("Close")

	if s.SQL != nil {
		sqlDB, dbErr := s.SQL.DB()
		if dbErr == nil {
			if closeErr := sqlDB.Close(); closeErr != nil {
				err = log.Err("failed to close database", closeErr)
			}
		}
	}

	for _, cache := range s.cacheClients() {
		if cache.client != nil {
			cache.client.Close()
		}
	}

	return err
}

func (s *DB) SQLWithContext(ctx context.Context) *gorm.DB {
	return s.SQL.WithContext(ctx)
}

func (s *DB) FlushAllCaches() error {
	log := s.logger().Function("FlushAllCaches")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cache := range s.cacheClients() {
		if cache.client == nil {
			continue
		}
		if err := cache.client.Do(ctx, cache.client.B().Flushdb().Build()).Error(); err != nil {
			return log.Err("Failed to flush cache database", err, "cache", cache.name)
		}
		log.Info("Flushed cache database", "cache", cache.name)
	}

	return nil
}
