package sqlite

import (
	"slotbook/cmd/internal/domain/entity"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the SQLite store and migrates the tenant registry.
// SQLite has a single writer, so the pool is pinned to one connection and
// every transaction runs serially.
func Init(path string, logLevel logger.LogLevel) (*gorm.DB, error) {
	dsn := path + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&entity.Tenant{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
