// Package crawler runs the per-network crawl loop: catch-up, live tailing and reindex draining.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/DDOIndexor/internal/common"
	"github.com/goran-ethernal/DDOIndexor/internal/decoder"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/internal/rpc"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
	pkgrpc "github.com/goran-ethernal/DDOIndexor/pkg/rpc"
)

// errStore marks failures of the document or checkpoint store.
var errStore = errors.New("store failure")

// CheckpointStore is the part of the checkpoint store a worker writes to.
type CheckpointStore interface {
	Put(ctx context.Context, chainID, block uint64) error
	Advance(ctx context.Context, chainID, block uint64) (uint64, error)
}

// DocumentStore persists decoded events.
type DocumentStore interface {
	// Apply persists events and returns those recorded for the first time.
	Apply(ctx context.Context, events []indexer.CrawlEvent) ([]indexer.CrawlEvent, error)
	// EventTxHashes returns the transactions that produced recorded events of a DID.
	EventTxHashes(ctx context.Context, chainID uint64, did string) ([]common.Hash, error)
}

// Deps are the collaborators of a worker.
type Deps struct {
	Client      pkgrpc.EthClient
	Checkpoints CheckpointStore
	Documents   DocumentStore
	Decoder     *decoder.Decoder
}

// Options configure one worker.
type Options struct {
	Network config.NetworkConfig
	Crawler config.CrawlerConfig

	// Checkpoint seeds the worker. Nil starts from Network.StartBlock.
	Checkpoint *uint64

	// Events receives a WorkerEvent for every newly persisted event. Optional.
	Events chan<- indexer.WorkerEvent
	// Lifecycle receives every state change, including the terminal one. Optional.
	Lifecycle chan<- indexer.Lifecycle
}

// Worker crawls one network. All of its state is owned by the goroutine running Run;
// the supervisor talks to it only through Send and the Events/Lifecycle channels.
type Worker struct {
	chainID uint64
	network config.NetworkConfig
	cfg     config.CrawlerConfig
	seed    *uint64

	client      pkgrpc.EthClient
	checkpoints CheckpointStore
	documents   DocumentStore
	decoder     *decoder.Decoder
	resolver    *decoder.NFTResolver
	fetcher     *LogFetcher
	inbox       *Inbox
	addresses   map[common.Address]struct{}
	log         *logger.Logger

	commands  chan indexer.Command
	events    chan<- indexer.WorkerEvent
	lifecycle chan<- indexer.Lifecycle

	state          indexer.WorkerState
	checkpoint     uint64
	hasCheckpoint  bool
	decodeFailures int
	failures       int
}

// New creates a worker. It does not start crawling until Run receives a start command.
func New(opts Options, deps Deps, log *logger.Logger) (*Worker, error) {
	if deps.Client == nil {
		return nil, errors.New("RPC client is required")
	}
	if deps.Checkpoints == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if deps.Documents == nil {
		return nil, errors.New("document store is required")
	}
	if deps.Decoder == nil {
		return nil, errors.New("decoder is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	cfg := opts.Crawler
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crawler configuration: %w", err)
	}

	network := opts.Network
	contracts := network.ContractAddresses()
	addresses := make(map[common.Address]struct{}, len(contracts))
	for _, a := range contracts {
		addresses[a] = struct{}{}
	}

	log = log.WithComponent(internalcommon.ComponentCrawler).WithNetwork(network.ChainID, network.DisplayName())

	w := &Worker{
		chainID:     network.ChainID,
		network:     network,
		cfg:         cfg,
		seed:        opts.Checkpoint,
		client:      deps.Client,
		checkpoints: deps.Checkpoints,
		documents:   deps.Documents,
		decoder:     deps.Decoder,
		resolver:    decoder.NewNFTResolver(deps.Decoder, deps.Client, network.ChainID),
		inbox:       NewInbox(cfg.InboxCapacity),
		addresses:   addresses,
		log:         log,
		commands:    make(chan indexer.Command, cfg.InboxCapacity),
		events:      opts.Events,
		lifecycle:   opts.Lifecycle,
	}

	w.fetcher = NewLogFetcher(FetcherConfig{
		ChunkSize:     cfg.ChunkSize,
		TailWindow:    cfg.TailWindow,
		FinalityDepth: cfg.FinalityDepth,
		Addresses:     contracts,
		Topics:        deps.Decoder.Topics(),
	}, deps.Client, log)

	return w, nil
}

// ChainID returns the network the worker crawls.
func (w *Worker) ChainID() uint64 {
	return w.chainID
}

// Send delivers cmd to the worker without blocking.
// Returns false when the command queue is full and cmd was dropped.
func (w *Worker) Send(cmd indexer.Command) bool {
	select {
	case w.commands <- cmd:
		return true
	default:
		return false
	}
}

// Run waits for the start command and crawls until ctx is cancelled or a fatal error occurs.
// Cancellation ends in StateStopped and a nil error; anything else ends in StateErrored.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if ctx.Err() != nil && !fatal(err) {
			err = nil
			w.exit(indexer.StateStopped, indexer.ExitCodeClean, nil)
			return
		}
		w.exit(indexer.StateErrored, indexer.ExitCodeErrored, err)
	}()

	w.setState(ctx, indexer.StateStarting)

	if err := w.awaitStart(ctx); err != nil {
		return err
	}
	if err := w.start(ctx); err != nil {
		return err
	}

	w.setState(ctx, indexer.StateSyncing)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("crawl cancelled")
			return ctx.Err()
		default:
		}

		w.drainCommands()

		progressed, err := w.step(ctx)
		if err != nil {
			if err := w.retryAfter(ctx, err); err != nil {
				return err
			}
			continue
		}
		w.failures = 0

		if err := w.drainReindex(ctx); err != nil {
			return err
		}

		if !progressed && (w.inbox.Len() == 0 || w.fetcher.GetMode() != ModeLive) {
			if err := w.wait(ctx, w.cfg.PollInterval.Duration); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) awaitStart(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-w.commands:
			if cmd.Kind == indexer.CommandStart {
				return nil
			}
			w.handleCommand(cmd)
		}
	}
}

// start seeds the checkpoint and checks that the provider answers.
func (w *Worker) start(ctx context.Context) error {
	switch {
	case w.seed != nil:
		w.setCheckpoint(*w.seed)
		w.log.Infow("resuming crawl", "last_indexed_block", *w.seed)
	case w.network.StartBlock > 0:
		w.setCheckpoint(w.network.StartBlock - 1)
		w.log.Infow("starting fresh crawl", "start_block", w.network.StartBlock)
	default:
		w.log.Infow("starting fresh crawl", "start_block", 0)
	}

	head, err := w.client.GetLatestBlockNumber(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: chain %d: %w", ErrProviderUnavailable, w.chainID, err)
	}
	ChainHead.WithLabelValues(chainLabel(w.chainID)).Set(float64(head))

	w.log.Infow("worker started", "chain_head", head, "next_block", w.nextBlock())
	return nil
}

// step processes the next tail batch. progressed is false when the worker is caught up.
func (w *Worker) step(ctx context.Context) (progressed bool, err error) {
	head, safe, ok, err := w.fetcher.SafeHead(ctx)
	if err != nil {
		return false, w.classify(err)
	}
	ChainHead.WithLabelValues(chainLabel(w.chainID)).Set(float64(head))
	if !ok {
		return false, nil
	}

	next := w.nextBlock()

	if w.fetcher.GetMode() == ModeLive && next <= safe && safe-next+1 > w.cfg.ChunkSize {
		w.log.Infow("fell behind, switching to backfill mode", "next_block", next, "safe_head", safe)
		w.fetcher.SetMode(ModeBackfill)
		w.setState(ctx, indexer.StateSyncing)
	}

	from, to, ok := w.fetcher.NextRange(next, safe)
	if !ok {
		if w.fetcher.GetMode() == ModeBackfill {
			w.log.Infow("backfill complete, switching to live mode", "last_indexed_block", w.checkpoint)
			w.fetcher.SetMode(ModeLive)
			w.setState(ctx, indexer.StateLive)
		}
		return false, nil
	}

	result, err := w.fetcher.FetchRange(ctx, from, to)
	if err != nil {
		return false, w.classify(err)
	}

	if err := w.process(ctx, result.Logs); err != nil {
		return false, err
	}

	if err := w.advance(ctx, result.ToBlock); err != nil {
		return false, err
	}

	BlocksProcessed.WithLabelValues(chainLabel(w.chainID)).Add(float64(result.ToBlock - result.FromBlock + 1))

	w.log.Infow("checkpoint saved",
		"block", w.checkpoint,
		"mode", w.fetcher.GetMode(),
		"logs_processed", len(result.Logs),
	)

	return true, nil
}

// retryAfter decides whether err ends the worker. Transient failures are retried
// after a capped exponential backoff, leaving the checkpoint untouched.
func (w *Worker) retryAfter(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if fatal(err) {
		return err
	}

	retry := w.cfg.Retry
	if errors.Is(err, errStore) {
		retry = w.cfg.StoreRetry
	}

	w.failures++
	delay := rpc.Backoff(w.failures, retry)

	w.log.Warnw("crawl batch failed, retrying",
		"error", err,
		"attempt", w.failures,
		"backoff", delay,
		"last_indexed_block", w.checkpoint,
	)

	return w.wait(ctx, delay)
}

func fatal(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrDecodeFailureThreshold)
}

// classify turns exhausted provider failures into ErrProviderUnavailable.
func (w *Worker) classify(err error) error {
	if errors.Is(err, rpc.ErrAllEndpointsFailed) || errors.Is(err, rpc.ErrEndpointUnavailable) {
		return fmt.Errorf("%w: chain %d: %w", ErrProviderUnavailable, w.chainID, err)
	}
	return err
}

// advance raises the checkpoint to block after the batch ending there was persisted.
func (w *Worker) advance(ctx context.Context, block uint64) error {
	stored, err := w.checkpoints.Advance(ctx, w.chainID, block)
	if err != nil {
		return fmt.Errorf("%w: failed to save checkpoint %d: %w", errStore, block, err)
	}
	w.setCheckpoint(stored)
	return nil
}

func (w *Worker) setCheckpoint(block uint64) {
	w.checkpoint = block
	w.hasCheckpoint = true
	LastIndexedBlock.WithLabelValues(chainLabel(w.chainID)).Set(float64(block))
}

func (w *Worker) nextBlock() uint64 {
	if !w.hasCheckpoint {
		return 0
	}
	return w.checkpoint + 1
}

// wait sleeps for d while still accepting commands. A reindex command ends the wait early.
func (w *Worker) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case cmd := <-w.commands:
			if w.handleCommand(cmd) {
				return nil
			}
		}
	}
}

// drainCommands moves every queued command into the inbox.
func (w *Worker) drainCommands() {
	for {
		select {
		case cmd := <-w.commands:
			w.handleCommand(cmd)
		default:
			return
		}
	}
}

// handleCommand applies cmd and reports whether it queued reindex work.
func (w *Worker) handleCommand(cmd indexer.Command) bool {
	switch cmd.Kind {
	case indexer.CommandStart:
		w.log.Debug("ignoring start command, worker already started")
		return false
	case indexer.CommandReindex:
		return cmd.Task != nil && w.enqueue(*cmd.Task)
	default:
		w.log.Warnw("ignoring unknown command", "kind", cmd.Kind)
		return false
	}
}

func (w *Worker) enqueue(task indexer.ReindexTask) bool {
	if task.ChainID != w.chainID {
		w.log.Warnw("dropping reindex task for another network", "task_id", task.ID, "task_chain_id", task.ChainID)
		reindexOutcome(w.chainID, "dropped")
		return false
	}

	result, err := w.inbox.Push(task)
	if err != nil {
		w.log.Warnw("dropping reindex task", "task_id", task.ID, "key", task.Key(), "error", err)
		reindexOutcome(w.chainID, "dropped")
		return false
	}

	InboxSize.WithLabelValues(chainLabel(w.chainID)).Set(float64(w.inbox.Len()))
	reindexOutcome(w.chainID, result.String())
	w.log.Infow("reindex task accepted",
		"task_id", task.ID,
		"key", task.Key(),
		"result", result,
		"pending", w.inbox.Len(),
	)
	return true
}

func (w *Worker) setState(ctx context.Context, state indexer.WorkerState) {
	if w.state == state {
		return
	}

	w.log.Debugw("worker state changed", "from", w.state, "to", state)
	w.state = state
	setWorkerState(w.chainID, state)

	if w.lifecycle == nil {
		return
	}
	select {
	case w.lifecycle <- indexer.Lifecycle{ChainID: w.chainID, State: state, At: time.Now()}:
	case <-ctx.Done():
	}
}

// exit reports the terminal state. The send blocks: the supervisor drains lifecycle until every worker exited.
func (w *Worker) exit(state indexer.WorkerState, code int, err error) {
	w.state = state
	setWorkerState(w.chainID, state)

	if err != nil {
		w.log.Errorw("worker exited", "exit_code", code, "error", err, "last_indexed_block", w.checkpoint)
	} else {
		w.log.Infow("worker stopped", "last_indexed_block", w.checkpoint)
	}

	if w.lifecycle != nil {
		w.lifecycle <- indexer.Lifecycle{
			ChainID:  w.chainID,
			State:    state,
			ExitCode: code,
			Err:      err,
			At:       time.Now(),
		}
	}
}

func (w *Worker) stateForMode() indexer.WorkerState {
	if w.fetcher.GetMode() == ModeLive {
		return indexer.StateLive
	}
	return indexer.StateSyncing
}
