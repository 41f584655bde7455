package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
)

const (
	badgerKeyPrefix  = "checkpoint/"
	badgerMaxRetries = 5
)

// BadgerStore keeps checkpoints in an embedded badger database, one JSON value per chain id.
type BadgerStore struct {
	db  *badger.DB
	log *logger.Logger
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) the badger directory at path.
func NewBadgerStore(path string, log *logger.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: bdb, log: log}, nil
}

func badgerKey(chainID uint64) []byte {
	return []byte(badgerKeyPrefix + strconv.FormatUint(chainID, 10))
}

func (b *BadgerStore) Get(ctx context.Context, chainID uint64) (Checkpoint, bool, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, false, err
	}

	var cp Checkpoint
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		cp, err = readCheckpoint(txn, chainID)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("failed to read checkpoint for chain %d: %w", chainID, err)
	}
	return cp, true, nil
}

func (b *BadgerStore) Put(ctx context.Context, chainID, block uint64) error {
	_, err := b.update(ctx, chainID, func(uint64, bool) uint64 { return block })
	return err
}

func (b *BadgerStore) Advance(ctx context.Context, chainID, block uint64) (uint64, error) {
	return b.update(ctx, chainID, func(current uint64, found bool) uint64 {
		if found && current > block {
			return current
		}
		return block
	})
}

// update runs a read-modify-write in one badger transaction, retrying on conflicts.
func (b *BadgerStore) update(ctx context.Context, chainID uint64, next func(uint64, bool) uint64) (uint64, error) {
	var stored uint64
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		err := b.db.Update(func(txn *badger.Txn) error {
			current, err := readCheckpoint(txn, chainID)
			found := err == nil
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}

			cp := Checkpoint{
				ChainID:          chainID,
				LastIndexedBlock: next(current.LastIndexedBlock, found),
				UpdatedAt:        now(),
			}
			value, err := json.Marshal(cp)
			if err != nil {
				return err
			}
			stored = cp.LastIndexedBlock
			return txn.Set(badgerKey(chainID), value)
		})
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, badger.ErrConflict) || attempt >= badgerMaxRetries {
			return 0, fmt.Errorf("failed to write checkpoint for chain %d: %w", chainID, err)
		}
		b.log.Debugw("checkpoint write conflict, retrying", "chain_id", chainID, "attempt", attempt)
	}
}

func (b *BadgerStore) List(ctx context.Context) ([]Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Checkpoint
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var cp Checkpoint
			if err := json.Unmarshal(value, &cp); err != nil {
				return fmt.Errorf("corrupt checkpoint %s: %w",
					strings.TrimPrefix(string(it.Item().Key()), badgerKeyPrefix), err)
			}
			out = append(out, cp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	// keys sort lexically, callers expect numeric order
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func readCheckpoint(txn *badger.Txn, chainID uint64) (Checkpoint, error) {
	item, err := txn.Get(badgerKey(chainID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Checkpoint{}, ErrNotFound
		}
		return Checkpoint{}, err
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return Checkpoint{}, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(value, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("corrupt checkpoint for chain %d: %w", chainID, err)
	}
	return cp, nil
}
