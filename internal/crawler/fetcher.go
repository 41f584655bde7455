package crawler

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/internal/rpc"
	pkgrpc "github.com/goran-ethernal/DDOIndexor/pkg/rpc"
)

// FetchMode is the pacing of the fetcher.
type FetchMode string

const (
	// ModeBackfill catches up with ChunkSize ranges.
	ModeBackfill FetchMode = "backfill"
	// ModeLive tails the chain with TailWindow ranges.
	ModeLive FetchMode = "live"
)

// FetcherConfig holds the filter and pacing of a LogFetcher.
type FetcherConfig struct {
	ChunkSize     uint64
	TailWindow    uint64
	FinalityDepth uint64
	Addresses     []common.Address
	Topics        []common.Hash
}

// FetchResult is the outcome of one eth_getLogs range.
type FetchResult struct {
	Logs      []types.Log
	FromBlock uint64
	ToBlock   uint64
}

// LogFetcher reads contract logs of one network in bounded ranges.
type LogFetcher struct {
	cfg    FetcherConfig
	client pkgrpc.EthClient
	log    *logger.Logger
	mode   FetchMode
}

// NewLogFetcher creates a fetcher starting in backfill mode.
func NewLogFetcher(cfg FetcherConfig, client pkgrpc.EthClient, log *logger.Logger) *LogFetcher {
	return &LogFetcher{
		cfg:    cfg,
		client: client,
		log:    log,
		mode:   ModeBackfill,
	}
}

// SetMode changes the operating mode.
func (lf *LogFetcher) SetMode(mode FetchMode) {
	lf.mode = mode
}

// GetMode returns the current operating mode.
func (lf *LogFetcher) GetMode() FetchMode {
	return lf.mode
}

// SafeHead returns the newest block the crawler may index: head minus the finality depth.
// ok is false while the chain is shorter than the finality depth.
func (lf *LogFetcher) SafeHead(ctx context.Context) (head, safe uint64, ok bool, err error) {
	head, err = lf.client.GetLatestBlockNumber(ctx)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to get chain head: %w", err)
	}

	if head < lf.cfg.FinalityDepth {
		return head, 0, false, nil
	}
	return head, head - lf.cfg.FinalityDepth, true, nil
}

// NextRange returns the range following nextBlock up to safe, sized by the current mode.
// ok is false when nextBlock is past safe.
func (lf *LogFetcher) NextRange(nextBlock, safe uint64) (from, to uint64, ok bool) {
	if nextBlock > safe {
		return 0, 0, false
	}

	window := lf.cfg.ChunkSize
	if lf.mode == ModeLive {
		window = lf.cfg.TailWindow
	}
	return nextBlock, min(nextBlock+window-1, safe), true
}

// FetchRange fetches the logs of [fromBlock, toBlock].
// When the provider rejects the range as too large, the range is narrowed,
// to the provider's suggestion when it gives one, and the result covers a prefix of the request.
func (lf *LogFetcher) FetchRange(ctx context.Context, fromBlock, toBlock uint64) (*FetchResult, error) {
	for {
		lf.log.Debugw("fetching range",
			"from_block", fromBlock,
			"to_block", toBlock,
			"mode", lf.mode,
		)

		logs, err := lf.client.GetLogs(ctx, lf.query(fromBlock, toBlock))
		if err == nil {
			lf.log.Debugw("fetched range",
				"from_block", fromBlock,
				"to_block", toBlock,
				"logs_count", len(logs),
			)
			return &FetchResult{Logs: logs, FromBlock: fromBlock, ToBlock: toBlock}, nil
		}

		tooMany, msg := rpc.IsTooManyResultsError(err)
		if !tooMany || toBlock == fromBlock {
			return nil, fmt.Errorf("failed to fetch logs [%d,%d]: %w", fromBlock, toBlock, err)
		}

		narrowed := fromBlock + (toBlock-fromBlock)/2
		if sFrom, sTo, ok := rpc.ParseSuggestedBlockRange(msg); ok && sFrom == fromBlock && sTo < toBlock {
			narrowed = sTo
		}

		lf.log.Infow("provider rejected range, narrowing",
			"from_block", fromBlock,
			"to_block", toBlock,
			"new_to_block", narrowed,
		)
		toBlock = narrowed
	}
}

func (lf *LogFetcher) query(fromBlock, toBlock uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: lf.cfg.Addresses,
		Topics:    [][]common.Hash{lf.cfg.Topics},
	}
}
