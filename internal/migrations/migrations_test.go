package migrations

import (
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/DDOIndexor/internal/db"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
)

func TestRun_UpAndDown(t *testing.T) {
	sqlDB, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "ddo.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	log := logger.NewNopLogger()

	require.NoError(t, Run(log, sqlDB))
	// idempotent
	require.NoError(t, Run(log, sqlDB))

	for _, table := range []string{"checkpoints", "ddos", "ddo_events", "orders"} {
		var name string
		err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	require.NoError(t, db.RunMigrationsDBExtended(log, sqlDB, All(), migrate.Down, db.NoLimitMigrations))

	var count int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='ddos'`).Scan(&count))
	require.Zero(t, count)
}
