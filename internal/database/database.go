package database

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/models"
)

// CurrentSchemaVersion is the schema generation this build understands.
const CurrentSchemaVersion = 1

// ErrSchemaVersionMismatch aborts startup when the store was written by an
// incompatible build.
var ErrSchemaVersionMismatch = errors.New("schema version mismatch")

// Open bootstraps the backing store selected by the configuration.
func Open(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN)
	default:
		dialector = sqlite.Open(cfg.DatabasePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}

	if cfg.DatabaseDriver == "sqlite" {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	return db, nil
}

// Migrate creates or updates every table the store uses. Idempotent.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Assignment{},
		&models.UserProfile{},
		&models.JitElevationLog{},
		&models.Run{},
		&models.HTTPRequest{},
		&models.ElevateTmpRequest{},
		&models.SchemaVersion{},
	)
}

// CheckSchemaVersion verifies the stored schema generation, stamping it on
// first run. A mismatch is fatal: migrating down is not supported.
func CheckSchemaVersion(db *gorm.DB) error {
	if !db.Migrator().HasTable(&models.SchemaVersion{}) {
		if err := db.AutoMigrate(&models.SchemaVersion{}); err != nil {
			return fmt.Errorf("create schema version table: %w", err)
		}
		return db.Create(&models.SchemaVersion{Version: CurrentSchemaVersion}).Error
	}

	var row models.SchemaVersion
	if err := db.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.Create(&models.SchemaVersion{Version: CurrentSchemaVersion}).Error
		}
		return fmt.Errorf("read schema version: %w", err)
	}

	if row.Version != CurrentSchemaVersion {
		return fmt.Errorf("%w: expected %d, got %d", ErrSchemaVersionMismatch, CurrentSchemaVersion, row.Version)
	}

	return nil
}
