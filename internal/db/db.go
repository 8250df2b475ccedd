package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inkcloud/internal/db/migrations"
	"inkcloud/internal/models"
	"inkcloud/internal/types"

	"github.com/glebarez/sqlite"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens the settings database described by the configured DSN.
// postgres:// and postgresql:// DSNs use postgres, DSNs containing "@tcp(" use mysql and
// anything else is treated as a sqlite file path.
func NewDB(configManager types.ConfigManager) (*gorm.DB, error) {
	dsn := configManager.GetDatabaseConfig().DSN
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is not configured")
	}
	return Open(dsn, configManager.GetLogConfig().Level)
}

// Open opens dsn and runs all migrations.
func Open(dsn string, logLevel string) (*gorm.DB, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	gormLevel := logger.Warn
	if strings.EqualFold(logLevel, "debug") {
		gormLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(
			log.New(logrus.StandardLogger().Writer(), "", 0),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLevel,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if _, ok := dialector.(*sqlite.Dialector); ok {
		// sqlite serializes writers anyway; a single connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&models.SettingRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate settings table: %w", err)
	}
	if err := migrations.MigrateDatabase(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), nil

	case strings.Contains(dsn, "@tcp("):
		cfg, err := mysqlDriver.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql DSN: %w", err)
		}
		cfg.ParseTime = true
		if cfg.Loc == nil {
			cfg.Loc = time.UTC
		}
		return mysql.Open(cfg.FormatDSN()), nil

	default:
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.Open(dsn), nil
	}
}
