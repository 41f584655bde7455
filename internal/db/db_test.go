package db

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
	"github.com/russross/meddler"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestVacuum_Modes(t *testing.T) {
	t.Parallel()

	for _, journal := range []string{"WAL", "TRUNCATE"} {
		t.Run(journal, func(t *testing.T) {
			t.Parallel()

			dbPath := filepath.Join(t.TempDir(), "vacuum.db")
			cfg := config.DatabaseConfig{Path: dbPath, JournalMode: journal}
			cfg.ApplyDefaults()

			sqlDB, err := NewSQLiteDBFromConfig(cfg)
			require.NoError(t, err)
			defer sqlDB.Close()

			_, err = sqlDB.Exec(`CREATE TABLE docs (id INTEGER PRIMARY KEY, body TEXT)`)
			require.NoError(t, err)
			for i := range 2000 {
				_, err = sqlDB.Exec(`INSERT INTO docs (body) VALUES (?)`, fmt.Sprintf("body_%d", i))
				require.NoError(t, err)
			}
			_, err = sqlDB.Exec(`DELETE FROM docs WHERE id % 2 = 0`)
			require.NoError(t, err)

			before, err := DBTotalSize(dbPath)
			require.NoError(t, err)

			require.NoError(t, Vacuum(sqlDB))

			after, err := DBTotalSize(dbPath)
			require.NoError(t, err)
			require.LessOrEqual(t, after, before)
		})
	}
}

func TestDBTotalSize(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  int64
	}{
		{name: "main only", files: map[string]string{"": "main-db-content"}, want: 15},
		{
			name:  "with wal and shm",
			files: map[string]string{"": "main-db", "-wal": "wal-content", "-shm": "shm-content"},
			want:  int64(len("main-db") + len("wal-content") + len("shm-content")),
		},
		{name: "missing", files: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mainPath := filepath.Join(t.TempDir(), "main.db")
			for suffix, content := range tt.files {
				require.NoError(t, os.WriteFile(mainPath+suffix, []byte(content), 0o600))
			}

			size, err := DBTotalSize(mainPath)
			require.NoError(t, err)
			require.Equal(t, tt.want, size)
		})
	}
}

type meddlerRow struct {
	ID      int64           `meddler:"id,pk"`
	Owner   common.Address  `meddler:"owner,address"`
	Spender *common.Address `meddler:"spender,address"`
	TxHash  common.Hash     `meddler:"tx_hash,hash"`
	Amount  decimal.Decimal `meddler:"amount,decimal"`
}

func TestMeddlers_RoundTrip(t *testing.T) {
	sqlDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "meddler.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = sqlDB.Exec(`CREATE TABLE rows (
		id INTEGER PRIMARY KEY,
		owner TEXT,
		spender TEXT,
		tx_hash TEXT,
		amount TEXT
	)`)
	require.NoError(t, err)

	in := &meddlerRow{
		Owner:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TxHash: common.HexToHash("0xdead"),
		Amount: decimal.RequireFromString("115792089237316195423570985008687907853269984665640564039457584007913129639935"),
	}
	require.NoError(t, meddler.Insert(sqlDB, "rows", in))

	var out meddlerRow
	require.NoError(t, meddler.Load(sqlDB, "rows", &out, in.ID))

	require.Equal(t, in.Owner, out.Owner)
	require.Nil(t, out.Spender)
	require.Equal(t, in.TxHash, out.TxHash)
	require.True(t, in.Amount.Equal(out.Amount))
}
