package database

import (
	"context"
	"fmt"
	"time"

	"labventory/config"
	"labventory/pkg/logger"

	"github.com/valkey-io/valkey-go"
)

// Valkey logical database indexes
const (
	// GENERAL_CACHE_INDEX holds inventory snapshots and dashboard stats
	GENERAL_CACHE_INDEX = iota

	// SESSION_CACHE_INDEX holds websocket connection bookkeeping
	SESSION_CACHE_INDEX

	// USER_CACHE_INDEX holds user profiles keyed by id, invalidated on role change
	USER_CACHE_INDEX

	// EVENTS_CACHE_INDEX carries the pub/sub event bus
	EVENTS_CACHE_INDEX
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.logger().Function("initializeCacheDB")
	log.Info("initializing cache database")

	address := config.DatabaseCacheAddress
	port := config.DatabaseCachePort
	if address == "" || port == 0 {
		return log.ErrMsg("failed to initialize cache database: address or port is empty")
	}

	newClient := func(index int, name string) (CacheClient, error) {
		client, err := valkey.NewClient(valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    index,
		})
		if err != nil {
			return nil, log.Err("failed to create valkey client", err, "cache", name)
		}
		return client, nil
	}

	var cacheDB Cache
	var err error
	if cacheDB.General, err = newClient(GENERAL_CACHE_INDEX, "general"); err != nil {
		return err
	}
	if cacheDB.Session, err = newClient(SESSION_CACHE_INDEX, "session"); err != nil {
		return err
	}
	if cacheDB.User, err = newClient(USER_CACHE_INDEX, "user"); err != nil {
		return err
	}
	if cacheDB.Events, err = newClient(EVENTS_CACHE_INDEX, "events"); err != nil {
		return err
	}

	s.Cache = cacheDB

	if config.DatabaseCacheReset != -1 {
		go clearCacheDB(config.DatabaseCacheReset, cacheDB)
	}

	return nil
}

func clearCacheDB(index int, cacheDB Cache) {
	log := logger.New("database").File("cache.database").Function("clearCacheDB")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clients := map[int]struct {
		client CacheClient
		name   string
	}{
		GENERAL_CACHE_INDEX: {cacheDB.General, "General"},
		SESSION_CACHE_INDEX: {cacheDB.Session, "Session"},
		USER_CACHE_INDEX:    {cacheDB.User, "User"},
		EVENTS_CACHE_INDEX:  {cacheDB.Events, "Events"},
	}

	target, ok := clients[index]
	if !ok || target.client == nil {
		log.Warn("Invalid cache database index", "index", index)
		return
	}

	if err := target.client.Do(ctx, target.client.B().Flushdb().Build()).Error(); err != nil {
		log.Er("Failed to clear cache database", err, "index", index, "dbName", target.name)
		return
	}

	log.Info("Cleared cache database", "index", index, "dbName", target.name)
}
