// Package ddo persists asset documents, their event history and orders.
package ddo

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/DDOIndexor/internal/db"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
	"github.com/russross/meddler"
)

// ErrNotFound is returned when no document exists for a DID.
var ErrNotFound = errors.New("document not found")

const (
	recordEventSQL = `
		INSERT INTO ddo_events (chain_id, tx_hash, log_index, block_number, kind, did, contract, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING`

	// The WHERE clause keeps the document at the newest (block, log index) it has seen.
	upsertDocumentSQL = `
		INSERT INTO ddos (
			did, chain_id, nft_address, state, flags, metadata_hash, decryptor_url, body, opaque_data,
			owner, created_tx, created_block, last_tx, last_block, last_log_index, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (did) DO UPDATE SET
			nft_address = excluded.nft_address,
			state = excluded.state,
			flags = excluded.flags,
			metadata_hash = excluded.metadata_hash,
			decryptor_url = excluded.decryptor_url,
			body = excluded.body,
			opaque_data = excluded.opaque_data,
			owner = excluded.owner,
			last_tx = excluded.last_tx,
			last_block = excluded.last_block,
			last_log_index = excluded.last_log_index,
			updated_at = excluded.updated_at
		WHERE excluded.last_block > ddos.last_block
			OR (excluded.last_block = ddos.last_block AND excluded.last_log_index > ddos.last_log_index)`

	upsertStateSQL = `
		INSERT INTO ddos (did, chain_id, nft_address, state, last_tx, last_block, last_log_index, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (did) DO UPDATE SET
			state = excluded.state,
			last_tx = excluded.last_tx,
			last_block = excluded.last_block,
			last_log_index = excluded.last_log_index,
			updated_at = excluded.updated_at
		WHERE excluded.last_block > ddos.last_block
			OR (excluded.last_block = ddos.last_block AND excluded.last_log_index > ddos.last_log_index)`

	bumpVersionSQL = `UPDATE ddos SET version = version + 1 WHERE did = ?`

	// A creation found later by a reindex still becomes the origin of the document.
	setCreatedSQL = `
		UPDATE ddos SET created_tx = ?, created_block = ?
		WHERE did = ? AND (created_tx IS NULL OR created_block > ?)`

	bumpOrdersSQL = `UPDATE ddos SET order_count = order_count + 1 WHERE did = ?`

	// Only rows recorded without an asset are attributed; an existing attribution is never replaced.
	attributeOrderSQL = `
		UPDATE orders SET did = ?, nft_address = ?
		WHERE chain_id = ? AND tx_hash = ? AND log_index = ? AND did IS NULL`

	attributeEventSQL = `
		UPDATE ddo_events SET did = ?
		WHERE chain_id = ? AND tx_hash = ? AND log_index = ? AND did IS NULL`
)

// Store is the Document Store. It shares the sqlite database with the checkpoint store.
type Store struct {
	db    *sql.DB
	maint db.Maintenance
	log   *logger.Logger
}

// NewStore wraps an already migrated database.
func NewStore(sqlDB *sql.DB, maint db.Maintenance, log *logger.Logger) *Store {
	if maint == nil {
		maint = &db.NoOpMaintenance{}
	}
	return &Store{db: sqlDB, maint: maint, log: log}
}

// Apply persists events in one transaction and returns the ones recorded for the first time.
// An event already present in the history is skipped, so replaying a range leaves the state unchanged,
// except that a replayed order now resolved to an asset fills in the attribution its row lacks.
// Plain metadata payloads are expected to be validated by the caller.
func (s *Store) Apply(ctx context.Context, events []indexer.CrawlEvent) (recorded []indexer.CrawlEvent, err error) {
	if len(events) == 0 {
		return nil, nil
	}

	unlock := s.maint.AcquireOperationLock()
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Errorf("failed to rollback document batch: %v", rbErr)
			}
		}
	}()

	ts := time.Now().UTC().Unix()

	for _, ev := range events {
		isNew, err := recordEvent(ctx, tx, ev, ts)
		if err != nil {
			return nil, err
		}
		if !isNew {
			if err := attributeOrder(ctx, tx, ev); err != nil {
				return nil, err
			}
			continue
		}

		if err := applyEvent(ctx, tx, ev, ts); err != nil {
			meta := ev.Meta()
			return nil, fmt.Errorf("failed to apply %s at block %d (tx %s, log %d): %w",
				ev.Kind(), meta.BlockNumber, meta.TxHash.Hex(), meta.LogIndex, err)
		}

		recorded = append(recorded, ev)
		eventsRecorded.WithLabelValues(string(ev.Kind())).Inc()
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit document batch: %w", err)
	}

	return recorded, nil
}

func recordEvent(ctx context.Context, tx *sql.Tx, ev indexer.CrawlEvent, ts int64) (bool, error) {
	meta := ev.Meta()
	res, err := tx.ExecContext(ctx, recordEventSQL,
		meta.ChainID, meta.TxHash.Hex(), meta.LogIndex, meta.BlockNumber,
		string(ev.Kind()), nullString(ev.Subject()), meta.Contract.Hex(), ts)
	if err != nil {
		return false, fmt.Errorf("failed to record event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	return n > 0, nil
}

// attributeOrder completes a recorded order that was stored before its datatoken resolved to an NFT.
func attributeOrder(ctx context.Context, tx *sql.Tx, ev indexer.CrawlEvent) error {
	var order indexer.Order
	switch e := ev.(type) {
	case indexer.OrderStarted:
		order = e.Order
	case indexer.OrderReused:
		order = e.Order
	case indexer.ProviderFee:
		order = e.Order
	default:
		return nil
	}
	if order.DID == "" {
		return nil
	}

	meta := ev.Meta()
	res, err := tx.ExecContext(ctx, attributeOrderSQL,
		order.DID, order.NFT.Hex(), meta.ChainID, meta.TxHash.Hex(), meta.LogIndex)
	if err != nil {
		return fmt.Errorf("failed to attribute order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to attribute order: %w", err)
	}
	if n == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, attributeEventSQL,
		order.DID, meta.ChainID, meta.TxHash.Hex(), meta.LogIndex); err != nil {
		return fmt.Errorf("failed to attribute event: %w", err)
	}
	ordersAttributed.Inc()

	if ev.Kind() != indexer.KindOrderStarted {
		return nil
	}
	_, err = tx.ExecContext(ctx, bumpOrdersSQL, order.DID)
	return err
}

func applyEvent(ctx context.Context, tx *sql.Tx, ev indexer.CrawlEvent, ts int64) error {
	switch e := ev.(type) {
	case indexer.MetadataCreated:
		if err := upsertDocument(ctx, tx, e.EventMeta, e.Metadata, ts); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, setCreatedSQL, e.TxHash.Hex(), e.BlockNumber, e.DID, e.BlockNumber)
		return err

	case indexer.MetadataUpdated:
		return upsertDocument(ctx, tx, e.EventMeta, e.Metadata, ts)

	case indexer.MetadataState:
		_, err := tx.ExecContext(ctx, upsertStateSQL,
			e.DID, e.ChainID, e.NFT.Hex(), e.State,
			e.TxHash.Hex(), e.BlockNumber, e.LogIndex, ts)
		if err == nil {
			documentsUpserted.Inc()
		}
		return err

	case indexer.OrderStarted:
		consumer, payer := e.Consumer, e.Payer
		row := orderRow(e.EventMeta, e.Order, e.Kind(), e.Timestamp)
		row.Consumer = &consumer
		row.Payer = &payer
		row.Amount = e.Amount
		row.ServiceIndex = e.ServiceIndex
		if err := meddler.Insert(tx, "orders", row); err != nil {
			return err
		}
		if e.DID == "" {
			return nil
		}
		_, err := tx.ExecContext(ctx, bumpOrdersSQL, e.DID)
		return err

	case indexer.OrderReused:
		caller, start := e.Caller, e.StartOrderTx
		row := orderRow(e.EventMeta, e.Order, e.Kind(), e.Timestamp)
		row.Consumer = &caller
		row.StartOrderTx = &start
		return meddler.Insert(tx, "orders", row)

	case indexer.ProviderFee:
		feeAddress, feeToken := e.FeeAddress, e.FeeToken
		row := orderRow(e.EventMeta, e.Order, e.Kind(), 0)
		row.Payer = &feeAddress
		row.FeeToken = &feeToken
		row.Amount = e.FeeAmount
		return meddler.Insert(tx, "orders", row)

	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

func upsertDocument(ctx context.Context, tx *sql.Tx, meta indexer.EventMeta, md indexer.Metadata, ts int64) error {
	var body, opaque any
	if md.Compressed() || md.Encrypted() {
		opaque = hex.EncodeToString(md.Data)
	} else {
		body = string(md.Data)
	}

	if _, err := tx.ExecContext(ctx, upsertDocumentSQL,
		md.DID, meta.ChainID, md.NFT.Hex(), md.State, md.Flags, md.MetadataHash.Hex(),
		nullString(md.DecryptorURL), body, opaque, md.Publisher.Hex(),
		meta.TxHash.Hex(), meta.BlockNumber, meta.TxHash.Hex(), meta.BlockNumber, meta.LogIndex, ts,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, bumpVersionSQL, md.DID); err != nil {
		return err
	}

	documentsUpserted.Inc()
	return nil
}

func orderRow(meta indexer.EventMeta, o indexer.Order, kind indexer.EventKind, timestamp uint64) *Order {
	row := &Order{
		ChainID:     meta.ChainID,
		TxHash:      meta.TxHash,
		LogIndex:    meta.LogIndex,
		Kind:        string(kind),
		BlockNumber: meta.BlockNumber,
		Datatoken:   o.Datatoken,
		DID:         o.DID,
		Timestamp:   timestamp,
	}
	if o.NFT != (common.Address{}) {
		nft := o.NFT
		row.NFTAddress = &nft
	}
	return row
}

// Get returns the document of did.
func (s *Store) Get(ctx context.Context, did string) (*DDO, error) {
	unlock := s.maint.AcquireOperationLock()
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc DDO
	err := meddler.QueryRow(s.db, &doc, `SELECT * FROM ddos WHERE did = ?`, did)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", did, err)
	}
	return &doc, nil
}

// History returns the recorded events of did on chainID in chain order.
func (s *Store) History(ctx context.Context, chainID uint64, did string) ([]*EventRecord, error) {
	unlock := s.maint.AcquireOperationLock()
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []*EventRecord
	err := meddler.QueryAll(s.db, &rows, `
		SELECT * FROM ddo_events
		WHERE chain_id = ? AND did = ?
		ORDER BY block_number, log_index`, chainID, did)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of %s: %w", did, err)
	}
	return rows, nil
}

// EventTxHashes returns the distinct transactions that emitted events for did on chainID, oldest first.
func (s *Store) EventTxHashes(ctx context.Context, chainID uint64, did string) ([]common.Hash, error) {
	history, err := s.History(ctx, chainID, did)
	if err != nil {
		return nil, err
	}

	seen := make(map[common.Hash]struct{}, len(history))
	hashes := make([]common.Hash, 0, len(history))
	for _, rec := range history {
		if _, ok := seen[rec.TxHash]; ok {
			continue
		}
		seen[rec.TxHash] = struct{}{}
		hashes = append(hashes, rec.TxHash)
	}
	return hashes, nil
}

// Orders returns the orders attributed to did.
func (s *Store) Orders(ctx context.Context, did string) ([]*Order, error) {
	unlock := s.maint.AcquireOperationLock()
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []*Order
	err := meddler.QueryAll(s.db, &rows, `
		SELECT * FROM orders WHERE did = ? ORDER BY block_number, log_index`, did)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders of %s: %w", did, err)
	}
	return rows, nil
}

// CountByChain returns the number of documents indexed for chainID.
func (s *Store) CountByChain(ctx context.Context, chainID uint64) (uint64, error) {
	unlock := s.maint.AcquireOperationLock()
	defer unlock()

	var n uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ddos WHERE chain_id = ?`, chainID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents of chain %d: %w", chainID, err)
	}
	return n, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
