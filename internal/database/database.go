package database

import (
	"fmt"
	"log"

	"github.com/kdilshan5712/igolanka-booking/internal/config"
	"github.com/kdilshan5712/igolanka-booking/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	dialector, err := Dialector(cfg)
	if err != nil {
		log.Fatalf("Invalid database configuration: %v", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	return db
}

// Dialector picks the gorm driver named by DATABASE_DRIVER.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DatabaseDriver {
	case "", config.DriverSQLite:
		return sqlite.Open(cfg.DatabasePath), nil
	case config.DriverMySQL:
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for %s", config.DriverMySQL)
		}
		return mysql.Open(cfg.DatabaseDSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.DraftRecord{},
		&models.ConfirmationRecord{},
		&models.BookingHistoryEntry{},
	)
}
