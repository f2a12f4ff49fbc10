package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"reportgen/internal/config"
	"reportgen/internal/logger"
	"reportgen/internal/models"
)

// Open initializes the database connection for the configured driver.
func Open(cfg *config.Config, logg *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.PostgresURI)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.DatabaseDriver, err)
	}

	if cfg.DatabaseDriver == config.DriverSQLite {
		// Single writer. Code running inside a transaction must only use tx.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logg.Info("Database connected", "driver", cfg.DatabaseDriver)
	return db, nil
}

// Migrate creates or updates the report type definition table. Per-report
// record tables are managed at runtime by the tables package.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.ReportType{})
}
