// Package migrations embeds the sqlite schema of the checkpoint and document stores.
package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/DDOIndexor/internal/db"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
)

//go:embed 001_checkpoints.sql
var mig001 string

//go:embed 002_documents.sql
var mig002 string

// All returns the migrations in apply order.
func All() []db.Migration {
	return []db.Migration{
		{ID: "001_checkpoints.sql", SQL: mig001},
		{ID: "002_documents.sql", SQL: mig002},
	}
}

// Run applies every pending migration to sqlDB.
func Run(log *logger.Logger, sqlDB *sql.DB) error {
	return db.RunMigrationsDB(log, sqlDB, All())
}
