package constants

import "time"

// CacheBuilder joins prefix and key with a colon
const (
	EquipmentCachePrefix = "equipment"
	ChemicalCachePrefix  = "chemical"
	UserCachePrefix      = "user_profile"
	StatsCacheKey        = "dashboard_stats"

	InventoryCacheExpiry = time.Hour
	UserCacheExpiry      = 7 * 24 * time.Hour
	StatsCacheExpiry     = time.Minute
)

// RecommendedBatchSize bounds each INSERT issued by CreateInBatches
const RecommendedBatchSize = 100
