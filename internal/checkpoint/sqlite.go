package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goran-ethernal/DDOIndexor/internal/db"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/russross/meddler"
)

const (
	putCheckpointSQL = `
		INSERT INTO checkpoints (chain_id, last_indexed_block, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (chain_id) DO UPDATE SET
			last_indexed_block = excluded.last_indexed_block,
			updated_at = excluded.updated_at`

	advanceCheckpointSQL = `
		INSERT INTO checkpoints (chain_id, last_indexed_block, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (chain_id) DO UPDATE SET
			last_indexed_block = MAX(last_indexed_block, excluded.last_indexed_block),
			updated_at = excluded.updated_at`
)

// SQLiteStore keeps checkpoints in the checkpoints table of the shared sqlite database.
type SQLiteStore struct {
	db    *sql.DB
	maint db.Maintenance
	log   *logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(sqlDB *sql.DB, maint db.Maintenance, log *logger.Logger) *SQLiteStore {
	if maint == nil {
		maint = &db.NoOpMaintenance{}
	}
	return &SQLiteStore{db: sqlDB, maint: maint, log: log}
}

func (s *SQLiteStore) Get(ctx context.Context, chainID uint64) (Checkpoint, bool, error) {
	unlock := s.maint.AcquireOperationLock()
	defer unlock()

	cp, err := s.load(ctx, s.db, chainID)
	if errors.Is(err, ErrNotFound) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, err
	}
	return cp, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, chainID, block uint64) error {
	unlock := s.maint.AcquireOperationLock()
	defer unlock()

	if _, err := s.db.ExecContext(ctx, putCheckpointSQL, chainID, block, now()); err != nil {
		return fmt.Errorf("failed to put checkpoint for chain %d: %w", chainID, err)
	}

	s.log.Debugw("checkpoint set", "chain_id", chainID, "block", block)
	return nil
}

func (s *SQLiteStore) Advance(ctx context.Context, chainID, block uint64) (uint64, error) {
	unlock := s.maint.AcquireOperationLock()
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Errorf("failed to rollback checkpoint advance: %v", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, advanceCheckpointSQL, chainID, block, now()); err != nil {
		return 0, fmt.Errorf("failed to advance checkpoint for chain %d: %w", chainID, err)
	}

	var cp Checkpoint
	if cp, err = s.load(ctx, tx, chainID); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	return cp.LastIndexedBlock, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Checkpoint, error) {
	unlock := s.maint.AcquireOperationLock()
	defer unlock()

	var rows []*Checkpoint
	if err := meddler.QueryAll(s.db, &rows, `SELECT * FROM checkpoints ORDER BY chain_id`); err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	out := make([]Checkpoint, 0, len(rows))
	for _, cp := range rows {
		out = append(out, *cp)
	}
	return out, nil
}

// Close is a no-op; the database is owned by the caller.
func (s *SQLiteStore) Close() error {
	return nil
}

func (s *SQLiteStore) load(ctx context.Context, q meddler.DB, chainID uint64) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}

	var cp Checkpoint
	err := meddler.QueryRow(q, &cp, `SELECT * FROM checkpoints WHERE chain_id = ?`, chainID)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to read checkpoint for chain %d: %w", chainID, err)
	}
	return cp, nil
}
