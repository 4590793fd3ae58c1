package db

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"infinite-experiment/plp/internal/config"
)

// DB is the raw platform connection used by internal db-section queries.
// The sqlite3 driver is registered through gorm.io/driver/sqlite in orm.go.
var DB *sqlx.DB

func sqlDriverName(cfg config.DBConfig) string {
	if cfg.Driver == "sqlite" {
		return "sqlite3"
	}
	return "postgres"
}

func InitPostgres(cfg config.DBConfig) error {
	var err error

	for i := 0; i < 10; i++ {
		DB, err = sqlx.Connect(sqlDriverName(cfg), cfg.DSN())
		if err == nil {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return err
}
