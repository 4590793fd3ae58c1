package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"infinite-experiment/plp/internal/config"
	"infinite-experiment/plp/internal/logging"
	models "infinite-experiment/plp/internal/models/gorm"
)

// PgDB is the record store behind the plan repositories.
var PgDB *gorm.DB

func InitPostgresORM(cfg config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.Driver == "sqlite" {
		dialector = sqlite.Open(cfg.DSN())
	} else {
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	PgDB = db
	logging.Info("Connected to record store via GORM", "driver", cfg.Driver)
	return db, nil
}

// Migrate creates or updates every plan and host table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
