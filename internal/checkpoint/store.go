// Package checkpoint persists the last indexed block of every network.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/DDOIndexor/internal/common"
	"github.com/goran-ethernal/DDOIndexor/internal/db"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
)

// ErrNotFound is returned by backends when a network has never been checkpointed.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is the persisted progress of one network.
type Checkpoint struct {
	ChainID          uint64 `meddler:"chain_id" json:"chainId"`
	LastIndexedBlock uint64 `meddler:"last_indexed_block" json:"lastIndexedBlock"`
	UpdatedAt        int64  `meddler:"updated_at" json:"updatedAt"`
}

// UpdatedTime returns UpdatedAt as a time.
func (c Checkpoint) UpdatedTime() time.Time {
	return time.Unix(c.UpdatedAt, 0).UTC()
}

// Store is the Checkpoint Store. Writes for one chain id are atomic read-then-write.
type Store interface {
	// Get returns the checkpoint of chainID. found is false when it was never written.
	Get(ctx context.Context, chainID uint64) (cp Checkpoint, found bool, err error)
	// Put sets the checkpoint of chainID to block unconditionally.
	Put(ctx context.Context, chainID, block uint64) error
	// Advance raises the checkpoint of chainID to block if it is lower and returns the stored value.
	Advance(ctx context.Context, chainID, block uint64) (uint64, error)
	// List returns every stored checkpoint ordered by chain id.
	List(ctx context.Context) ([]Checkpoint, error)
	Close() error
}

// Open builds the backend selected by cfg. sqlDB and maint are used by the sqlite backend.
func Open(
	cfg config.CheckpointConfig,
	sqlDB *sql.DB,
	maint db.Maintenance,
	log *logger.Logger,
) (Store, error) {
	log = log.WithComponent(common.ComponentCheckpointStore)

	switch cfg.Backend {
	case "", config.CheckpointBackendSQLite:
		if sqlDB == nil {
			return nil, fmt.Errorf("sqlite checkpoint backend requires a database")
		}
		return NewSQLiteStore(sqlDB, maint, log), nil
	case config.CheckpointBackendBadger:
		return NewBadgerStore(cfg.Path, log)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}

func now() int64 {
	return time.Now().UTC().Unix()
}
