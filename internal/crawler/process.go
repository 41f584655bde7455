package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/DDOIndexor/internal/decoder"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
)

// process decodes logs, persists the events and forwards the newly recorded ones.
// Logs are expected in chain order.
func (w *Worker) process(ctx context.Context, logs []types.Log) error {
	if len(logs) == 0 {
		return nil
	}

	events := make([]indexer.CrawlEvent, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}

		ev, err := w.decoder.Decode(w.chainID, lg)
		if errors.Is(err, decoder.ErrUnknownTopic) {
			continue
		}
		if err != nil {
			if err := w.decodeFailed(lg, err); err != nil {
				return err
			}
			continue
		}

		ev, keep, err := w.prepare(ctx, ev, lg)
		if err != nil {
			return err
		}
		if !keep {
			continue
		}

		w.decodeFailures = 0
		EventsDecoded.WithLabelValues(chainLabel(w.chainID), string(ev.Kind())).Inc()
		events = append(events, ev)
	}

	if len(events) == 0 {
		return nil
	}

	recorded, err := w.documents.Apply(ctx, events)
	if err != nil {
		return fmt.Errorf("%w: failed to persist %d events: %w", errStore, len(events), err)
	}

	w.log.Debugw("events persisted", "decoded", len(events), "new", len(recorded))

	for _, ev := range recorded {
		w.emit(ctx, indexer.NewWorkerEvent(ev))
	}
	return nil
}

// prepare validates metadata payloads and attributes orders to their DID.
// keep is false for events that must not be persisted.
func (w *Worker) prepare(ctx context.Context, ev indexer.CrawlEvent, lg types.Log) (indexer.CrawlEvent, bool, error) {
	var md *indexer.Metadata
	switch e := ev.(type) {
	case indexer.MetadataCreated:
		md = &e.Metadata
	case indexer.MetadataUpdated:
		md = &e.Metadata
	case indexer.OrderStarted, indexer.OrderReused, indexer.ProviderFee:
		attributed, err := w.resolver.Attribute(ctx, ev)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			// the batch fails with the checkpoint untouched and is retried
			if !errors.Is(err, decoder.ErrNFTUnresolved) {
				return nil, false, w.classify(fmt.Errorf("failed to attribute %s in tx %s: %w",
					ev.Kind(), lg.TxHash.Hex(), err))
			}
			w.log.Warnw("failed to attribute order to an asset",
				"kind", ev.Kind(),
				"tx_hash", lg.TxHash.Hex(),
				"datatoken", lg.Address.Hex(),
				"error", err,
			)
		}
		return attributed, true, nil
	default:
		return ev, true, nil
	}

	_, err := decoder.ParseDocument(*md)
	switch {
	case err == nil:
		return ev, true, nil
	case errors.Is(err, decoder.ErrDIDMismatch):
		DocumentsRejected.WithLabelValues(chainLabel(w.chainID)).Inc()
		w.log.Warnw("skipping metadata with mismatching id",
			"did", md.DID,
			"tx_hash", lg.TxHash.Hex(),
			"block", lg.BlockNumber,
			"error", err,
		)
		return nil, false, nil
	default:
		return nil, false, w.decodeFailed(lg, err)
	}
}

// decodeFailed counts an undecodable log. It returns ErrDecodeFailureThreshold
// once the run of consecutive failures reaches the configured threshold.
func (w *Worker) decodeFailed(lg types.Log, err error) error {
	w.decodeFailures++
	DecodeFailures.WithLabelValues(chainLabel(w.chainID)).Inc()

	w.log.Warnw("skipping undecodable log",
		"tx_hash", lg.TxHash.Hex(),
		"block", lg.BlockNumber,
		"log_index", lg.Index,
		"consecutive_failures", w.decodeFailures,
		"error", err,
	)

	if w.decodeFailures >= w.cfg.DecodeFailureThreshold {
		return fmt.Errorf("%w: %d in a row, last at block %d tx %s: %w",
			ErrDecodeFailureThreshold, w.decodeFailures, lg.BlockNumber, lg.TxHash.Hex(), err)
	}
	return nil
}

func (w *Worker) emit(ctx context.Context, ev indexer.WorkerEvent) {
	if w.events == nil {
		return
	}
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
