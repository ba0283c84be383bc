package database

import (
	"labventory/internal/models"
	"labventory/pkg/logger"
)

// Models lists every table AutoMigrate manages, in dependency order
func Models() []any {
	return []any{
		&models.UserProfile{},
		&models.UserCredential{},
		&models.Equipment{},
		&models.Chemical{},
		&models.CheckInOut{},
		&models.MaintenanceTask{},
	}
}

// MigrateModels runs GORM AutoMigrate for all models
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	for _, model := range Models() {
		if err := db.SQL.AutoMigrate(model); err != nil {
			return log.Err("Failed to migrate model", err, "model", model)
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes adds the lookup indexes the duplicate guard and history queries rely on
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_equipment_lower_name ON equipment(LOWER(name))",
		"CREATE INDEX IF NOT EXISTS idx_chemicals_lower_name ON chemicals(LOWER(name))",
		"CREATE INDEX IF NOT EXISTS idx_check_in_outs_item_timestamp ON check_in_outs(item_id, timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_maintenance_tasks_equipment_date ON maintenance_tasks(equipment_id, scheduled_date)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
