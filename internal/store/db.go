package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore keeps settings as rows of the settings table. Pub/sub stays inside the process.
type DBStore struct {
	db     *gorm.DB
	broker *broker
}

// NewDBStore wraps an opened and migrated database.
func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{
		db:     db,
		broker: newBroker(),
	}
}

// Get retrieves the value stored under key.
func (s *DBStore) Get(ctx context.Context, key string) ([]byte, error) {
	var record models.SettingRecord
	err := s.db.WithContext(ctx).Where("setting_key = ?", key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, dbError(err)
	}
	return []byte(record.SettingValue), nil
}

// Set upserts the row for key and bumps its revision.
func (s *DBStore) Set(ctx context.Context, key string, value []byte) error {
	record := models.SettingRecord{
		SettingKey:   key,
		SettingValue: datatypes.JSON(append([]byte(nil), value...)),
		Revision:     1,
	}

	return dbError(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"setting_value": record.SettingValue,
			"revision":      gorm.Expr("revision + 1"),
			"updated_at":    time.Now(),
		}),
	}).Create(&record).Error)
}

// Delete removes the row for key.
func (s *DBStore) Delete(ctx context.Context, key string) error {
	return dbError(s.db.WithContext(ctx).Where("setting_key = ?", key).Delete(&models.SettingRecord{}).Error)
}

// Exists checks if a row exists for key.
func (s *DBStore) Exists(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.SettingRecord{}).Where("setting_key = ?", key).Count(&count).Error; err != nil {
		return false, dbError(err)
	}
	return count > 0, nil
}

// Keys lists stored keys with the given prefix.
func (s *DBStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&models.SettingRecord{}).
		Where("setting_key LIKE ?", prefix+"%").
		Order("setting_key").
		Pluck("setting_key", &keys).Error
	if err != nil {
		return nil, dbError(err)
	}
	return keys, nil
}

// Publish sends a message to subscribers inside this process.
func (s *DBStore) Publish(_ context.Context, channel string, message []byte) error {
	s.broker.publish(channel, message)
	return nil
}

// Subscribe listens for messages published inside this process.
func (s *DBStore) Subscribe(_ context.Context, channel string) (Subscription, error) {
	return s.broker.subscribe(channel)
}

// Close drops subscriptions and closes the database connection pool.
func (s *DBStore) Close() error {
	s.broker.close()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// dbError tags err as a database failure so the API layer can classify it.
func dbError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", app_errors.ErrDatabaseFailure, err)
}
