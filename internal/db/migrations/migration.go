package migrations

import (
	"fmt"

	"gorm.io/gorm"
)

// markerPrefix namespaces the rows recording applied migrations in the settings table.
const markerPrefix = "migration."

// MigrateDatabase applies every versioned migration in order.
func MigrateDatabase(db *gorm.DB) error {
	if err := V1_1_0_RenameLegacyKeys(db); err != nil {
		return err
	}
	if err := V1_2_0_BackfillRevisions(db); err != nil {
		return err
	}
	return nil
}

// applied reports whether the migration marker exists.
func applied(tx *gorm.DB, name string) (bool, error) {
	var count int64
	if err := tx.Table("settings").Where("setting_key = ?", markerPrefix+name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return count > 0, nil
}

// markApplied records the migration marker.
func markApplied(tx *gorm.DB, name string) error {
	if err := tx.Exec(`
		INSERT INTO settings (setting_key, setting_value, revision, created_at, updated_at)
		VALUES (?, ?, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, markerPrefix+name, "true").Error; err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return nil
}
