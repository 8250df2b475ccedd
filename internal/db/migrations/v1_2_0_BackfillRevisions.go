package migrations

import (
	"fmt"

	"inkcloud/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// V1_2_0_BackfillRevisions gives rows written before revisions existed a starting revision of 1.
func V1_2_0_BackfillRevisions(db *gorm.DB) error {
	if !db.Migrator().HasColumn(&models.SettingRecord{}, "revision") {
		if err := db.Migrator().AddColumn(&models.SettingRecord{}, "Revision"); err != nil {
			return fmt.Errorf("failed to add revision column: %w", err)
		}
		logrus.Info("Successfully added revision column to settings table")
	}

	result := db.Exec(`UPDATE settings SET revision = 1 WHERE revision = 0 AND setting_key NOT LIKE ?`, markerPrefix+"%")
	if result.Error != nil {
		return fmt.Errorf("failed to backfill revisions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logrus.WithField("rows", result.RowsAffected).Info("Backfilled settings revisions")
	}
	return nil
}
