// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"reportgen/internal/config"
	"reportgen/internal/database"
	"reportgen/internal/logger"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// Config returns a valid sqlite configuration rooted in a temp directory.
func Config(tb testing.TB) *config.Config {
	tb.Helper()
	dir := tb.TempDir()
	return &config.Config{
		ListenPort:     "0",
		DatabaseDriver: config.DriverSQLite,
		SQLitePath:     filepath.Join(dir, "test.db"),
		UploadDir:      filepath.Join(dir, "static"),
		StorageMode:    config.StorageLocal,
		SettingsFile:   filepath.Join(dir, "config.json"),
		LogMode:        "development",
		LLMTimeout:     5 * time.Second,
		MaxUploadBytes: 1 << 20,
	}
}

// DB opens a migrated sqlite database private to the calling test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	return DBWithConfig(tb, Config(tb))
}

// DBWithConfig is DB for a caller-built configuration.
func DBWithConfig(tb testing.TB, cfg *config.Config) *gorm.DB {
	tb.Helper()
	db, err := database.Open(cfg, Logger(tb))
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
