package migrations

import (
	"fmt"

	"inkcloud/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// V1_1_0_RenameLegacyKeys moves rows stored under legacy keys to their namespaced keys.
// A namespaced row that already exists wins; the legacy row is then dropped.
func V1_1_0_RenameLegacyKeys(db *gorm.DB) error {
	const name = "v1.1.0_rename_legacy_keys"

	done, err := applied(db, name)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for legacy, current := range models.LegacyKeys() {
			var existing int64
			if err := tx.Table("settings").Where("setting_key = ?", current).Count(&existing).Error; err != nil {
				return fmt.Errorf("failed to check key %s: %w", current, err)
			}

			if existing > 0 {
				if err := tx.Exec(`DELETE FROM settings WHERE setting_key = ?`, legacy).Error; err != nil {
					return fmt.Errorf("failed to drop legacy key %s: %w", legacy, err)
				}
				continue
			}

			result := tx.Exec(`UPDATE settings SET setting_key = ? WHERE setting_key = ?`, current, legacy)
			if result.Error != nil {
				return fmt.Errorf("failed to rename legacy key %s: %w", legacy, result.Error)
			}
			if result.RowsAffected > 0 {
				logrus.WithFields(logrus.Fields{"from": legacy, "to": current}).Info("Renamed legacy settings key")
			}
		}

		return markApplied(tx, name)
	})
}
