package initialize

import (
	"context"
	"slices"

	"labventory/config"
	"labventory/internal/authz"
	"labventory/internal/database"
	"labventory/internal/repositories"
	"labventory/pkg/logger"
)

func InitializeTables(db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("InitializeTables")
	log.Info("Initializing indexes and permission snapshots")

	if err := db.CreateIndexes(); err != nil {
		return log.Err("failed to create indexes", err)
	}

	if err := syncPermissions(db, log); err != nil {
		return log.Err("failed to sync permissions", err)
	}

	log.Info("Table initialization complete")
	return nil
}

// syncPermissions rewrites stored permission snapshots that no longer match
// the role table, so a release that changes a role's grants reaches
// existing users
func syncPermissions(db database.DB, log logger.Logger) error {
	ctx := context.Background()
	profiles := repositories.New(db, nil).UserProfile

	users, err := profiles.List(ctx, db.SQL)
	if err != nil {
		return err
	}

	updated := 0
	for _, user := range users {
		if slices.Equal([]string(user.Permissions), authz.PermissionStrings(user.Role)) {
			continue
		}
		if _, err := profiles.ChangeRole(ctx, db.SQL, user.ID, user.Role); err != nil {
			return log.Err("failed to resync permissions", err, "userID", user.ID)
		}
		updated++
	}

	log.Info("Permission snapshots synced", "users", len(users), "updated", updated)
	return nil
}
