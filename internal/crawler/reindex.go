package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
)

// drainReindex handles up to ReindexDrainLimit inbox items once the worker is live.
// Failed items are logged and dropped; only fatal errors are returned.
func (w *Worker) drainReindex(ctx context.Context) error {
	if w.inbox.Len() == 0 || w.fetcher.GetMode() != ModeLive {
		return nil
	}

	w.setState(ctx, indexer.StateReindexDraining)

	for range w.cfg.ReindexDrainLimit {
		// a rewind leaves the rest of the inbox for after the backfill
		if w.fetcher.GetMode() != ModeLive {
			break
		}
		task, ok := w.inbox.Pop()
		if !ok {
			break
		}
		InboxSize.WithLabelValues(chainLabel(w.chainID)).Set(float64(w.inbox.Len()))

		rest, err := w.reindex(ctx, task)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if fatal(err) {
				return err
			}
			reindexOutcome(w.chainID, "failed")
			w.log.Warnw("reindex task failed", "task_id", task.ID, "key", task.Key(), "error", err)
			continue
		}

		if rest != nil {
			w.inbox.PushFront(*rest)
			InboxSize.WithLabelValues(chainLabel(w.chainID)).Set(float64(w.inbox.Len()))
			w.log.Debugw("reindex range requeued", "task_id", task.ID, "remaining", rest.Range)
			continue
		}

		reindexOutcome(w.chainID, "processed")
		w.log.Infow("reindex task processed",
			"task_id", task.ID,
			"key", task.Key(),
			"last_indexed_block", w.checkpoint,
		)
	}

	w.setState(ctx, w.stateForMode())
	return nil
}

// reindex handles one inbox item. For block ranges it returns the task that
// covers the blocks still to replay, if any.
func (w *Worker) reindex(ctx context.Context, task indexer.ReindexTask) (*indexer.ReindexTask, error) {
	switch task.Selector() {
	case indexer.SelectorTx:
		return nil, w.reindexTx(ctx, *task.TxHash)
	case indexer.SelectorRange:
		rest, err := w.reindexRange(ctx, *task.Range, task.Rewind)
		if err != nil || rest == nil {
			return nil, err
		}
		task.Range = rest
		return &task, nil
	case indexer.SelectorDID:
		return nil, w.reindexDID(ctx, task.DID)
	default:
		return nil, fmt.Errorf("%w: no selector", indexer.ErrInvalidReindexTask)
	}
}

// reindexTx reprocesses the logs of one transaction and clamps the checkpoint up to its block.
func (w *Worker) reindexTx(ctx context.Context, txHash common.Hash) error {
	receipt, err := w.client.GetTransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("transaction %s not found on chain %d", txHash.Hex(), w.chainID)
		}
		return w.classify(fmt.Errorf("failed to get receipt of %s: %w", txHash.Hex(), err))
	}

	logs := make([]types.Log, 0, len(receipt.Logs))
	for _, lg := range receipt.Logs {
		if lg != nil && w.watched(*lg) {
			logs = append(logs, *lg)
		}
	}

	if err := w.process(ctx, logs); err != nil {
		return err
	}

	if receipt.BlockNumber == nil {
		return nil
	}

	block := receipt.BlockNumber.Uint64()
	if w.hasCheckpoint && block <= w.checkpoint {
		return nil
	}
	return w.advance(ctx, block)
}

// reindexRange replays the first ChunkSize blocks of r and returns the part left
// for a later drain. With rewind and From at or below the checkpoint, the checkpoint
// is moved back to From-1 and ordinary crawling replays the range instead.
func (w *Worker) reindexRange(ctx context.Context, r indexer.BlockRange, rewind bool) (*indexer.BlockRange, error) {
	if rewind && r.From > 0 && w.hasCheckpoint && r.From <= w.checkpoint {
		target := r.From - 1
		if err := w.checkpoints.Put(ctx, w.chainID, target); err != nil {
			return nil, fmt.Errorf("%w: failed to rewind checkpoint to %d: %w", errStore, target, err)
		}

		w.log.Warnw("checkpoint rewound", "from", w.checkpoint, "to", target)
		w.setCheckpoint(target)
		w.fetcher.SetMode(ModeBackfill)
		return nil, nil
	}

	_, safe, ok, err := w.fetcher.SafeHead(ctx)
	if err != nil {
		return nil, w.classify(err)
	}
	if !ok || r.From > safe {
		w.log.Infow("reindex range is ahead of the safe head, ordinary crawling will cover it", "range", r)
		return nil, nil
	}

	result, err := w.fetcher.FetchRange(ctx, r.From, min(r.From+w.cfg.ChunkSize-1, r.To, safe))
	if err != nil {
		return nil, w.classify(err)
	}
	if err := w.process(ctx, result.Logs); err != nil {
		return nil, err
	}

	// move the checkpoint only when the replayed slice continues it
	to := result.ToBlock
	if r.From <= w.nextBlock() && (!w.hasCheckpoint || to > w.checkpoint) {
		if err := w.advance(ctx, to); err != nil {
			return nil, err
		}
	}

	if to >= r.To {
		return nil, nil
	}
	return &indexer.BlockRange{From: to + 1, To: r.To}, nil
}

// reindexDID replays every transaction recorded for did.
func (w *Worker) reindexDID(ctx context.Context, did string) error {
	hashes, err := w.documents.EventTxHashes(ctx, w.chainID, did)
	if err != nil {
		return fmt.Errorf("%w: failed to list transactions of %s: %w", errStore, did, err)
	}
	if len(hashes) == 0 {
		w.log.Infow("no recorded transactions for did", "did", did)
		return nil
	}

	for _, h := range hashes {
		if err := w.reindexTx(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

// watched reports whether lg is emitted by a configured contract with a known event topic.
func (w *Worker) watched(lg types.Log) bool {
	if len(w.addresses) > 0 {
		if _, ok := w.addresses[lg.Address]; !ok {
			return false
		}
	}
	return w.decoder.Known(lg)
}
