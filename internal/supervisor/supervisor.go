// Package supervisor owns one crawler worker per network, routes reindex tasks to them
// and republishes their events.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goran-ethernal/DDOIndexor/internal/checkpoint"
	"github.com/goran-ethernal/DDOIndexor/internal/common"
	"github.com/goran-ethernal/DDOIndexor/internal/eventbus"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
)

var (
	// ErrUnknownNetwork is returned for tasks addressed to a network that is not configured.
	ErrUnknownNetwork = errors.New("unknown network")

	// ErrNetworkNotRunning is returned for tasks addressed to a network whose worker has exited.
	ErrNetworkNotRunning = errors.New("network worker is not running")

	// ErrWorkerBusy is returned when the command queue of a worker is full.
	ErrWorkerBusy = errors.New("worker command queue is full")

	// ErrNoNetworkStarted is returned by StartAll when every network failed to start.
	ErrNoNetworkStarted = errors.New("no network could be started")
)

const dispatchBuffer = 256

// Worker is the handle the supervisor keeps for a running network.
type Worker interface {
	Send(cmd indexer.Command) bool
	Run(ctx context.Context) error
}

// Outputs are the channels a worker reports on.
type Outputs struct {
	Events    chan<- indexer.WorkerEvent
	Lifecycle chan<- indexer.Lifecycle
}

// WorkerFactory builds the worker of network, seeded with its checkpoint (nil when never indexed).
type WorkerFactory func(ctx context.Context, network config.NetworkConfig, cp *uint64, out Outputs) (Worker, error)

// CheckpointReader reads crawl progress.
type CheckpointReader interface {
	Get(ctx context.Context, chainID uint64) (checkpoint.Checkpoint, bool, error)
}

// Publisher receives the events the supervisor republishes.
type Publisher interface {
	Publish(ev indexer.WorkerEvent) int
}

// Record is a snapshot of one registered network.
type Record struct {
	ChainID   uint64              `json:"chainId"`
	Name      string              `json:"name"`
	State     indexer.WorkerState `json:"state"`
	ExitCode  int                 `json:"exitCode"`
	Error     string              `json:"error,omitempty"`
	Restarts  int                 `json:"restarts"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type entry struct {
	network config.NetworkConfig

	mu     sync.Mutex
	worker Worker
	record Record
}

func (e *entry) snapshot() Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record
}

func (e *entry) handle() (Worker, indexer.WorkerState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.worker, e.record.State
}

// Options configure a Supervisor.
type Options struct {
	Checkpoints CheckpointReader
	Factory     WorkerFactory
	Bus         Publisher
	Policy      RestartPolicy

	// Forward lists the event kinds republished on Bus. "*" forwards every kind.
	Forward []string
}

// Supervisor starts the workers and is the only publisher of indexing events.
// The registry is filled by StartAll and never changes afterwards.
type Supervisor struct {
	checkpoints CheckpointReader
	factory     WorkerFactory
	bus         Publisher
	policy      RestartPolicy
	forwardAll  bool
	forward     map[indexer.EventKind]struct{}
	log         *logger.Logger

	registry map[uint64]*entry
	order    []uint64

	events    chan indexer.WorkerEvent
	lifecycle chan indexer.Lifecycle

	startOnce sync.Once
	started   atomic.Bool
	workers   sync.WaitGroup
	stop      chan struct{}
	stopped   chan struct{}
}

// New creates a supervisor. Nothing runs until StartAll.
func New(opts Options, log *logger.Logger) (*Supervisor, error) {
	if opts.Checkpoints == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if opts.Factory == nil {
		return nil, errors.New("worker factory is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("event bus is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	policy := opts.Policy
	if policy == nil {
		policy = NoRestart{}
	}

	s := &Supervisor{
		checkpoints: opts.Checkpoints,
		factory:     opts.Factory,
		bus:         opts.Bus,
		policy:      policy,
		forward:     make(map[indexer.EventKind]struct{}, len(opts.Forward)),
		log:         log.WithComponent(common.ComponentSupervisor),
		registry:    make(map[uint64]*entry),
		events:      make(chan indexer.WorkerEvent, dispatchBuffer),
		lifecycle:   make(chan indexer.Lifecycle, dispatchBuffer),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	for _, k := range opts.Forward {
		kind := indexer.EventKind(k)
		switch {
		case kind == eventbus.AnyKind:
			s.forwardAll = true
		case kind.Valid():
			s.forward[kind] = struct{}{}
		default:
			return nil, fmt.Errorf("unknown event kind %q in forward list", k)
		}
	}

	return s, nil
}

// StartAll registers every network and starts a worker for each one.
// A network that fails to start is logged, registered as errored, and skipped.
// Returns ErrNoNetworkStarted only when no worker could be started.
func (s *Supervisor) StartAll(ctx context.Context, networks []config.NetworkConfig) error {
	err := errors.New("supervisor already started")
	s.startOnce.Do(func() {
		s.started.Store(true)
		err = s.startAll(ctx, networks)
	})
	return err
}

func (s *Supervisor) startAll(ctx context.Context, networks []config.NetworkConfig) error {
	for _, n := range networks {
		if _, dup := s.registry[n.ChainID]; dup {
			s.log.Warnw("duplicate network ignored", "chain_id", n.ChainID)
			continue
		}
		s.registry[n.ChainID] = &entry{
			network: n,
			record: Record{
				ChainID:   n.ChainID,
				Name:      n.DisplayName(),
				State:     indexer.StateStarting,
				UpdatedAt: time.Now(),
			},
		}
		s.order = append(s.order, n.ChainID)
	}

	go s.dispatch()

	running := 0
	for _, chainID := range s.order {
		e := s.registry[chainID]

		worker, err := s.spawn(ctx, e.network)
		if err != nil {
			s.log.Errorw("failed to start network, continuing with the others",
				"chain_id", chainID,
				"network", e.network.DisplayName(),
				"error", err,
			)
			e.mu.Lock()
			e.record.State = indexer.StateErrored
			e.record.ExitCode = indexer.ExitCodeErrored
			e.record.Error = err.Error()
			e.record.UpdatedAt = time.Now()
			e.mu.Unlock()
			continue
		}

		e.mu.Lock()
		e.worker = worker
		e.mu.Unlock()

		s.workers.Add(1)
		go s.supervise(ctx, e, worker)
		running++
	}

	s.log.Infow("networks started", "running", running, "configured", len(s.order))

	if running == 0 {
		return ErrNoNetworkStarted
	}
	return nil
}

// spawn reads the checkpoint of network and builds its worker. A checkpoint read
// failure is treated as no checkpoint.
func (s *Supervisor) spawn(ctx context.Context, network config.NetworkConfig) (Worker, error) {
	var seed *uint64

	cp, found, err := s.checkpoints.Get(ctx, network.ChainID)
	switch {
	case err != nil:
		s.log.Warnw("failed to read checkpoint, crawling from the start block",
			"chain_id", network.ChainID,
			"start_block", network.StartBlock,
			"error", err,
		)
	case found:
		block := cp.LastIndexedBlock
		seed = &block
	}

	worker, err := s.factory(ctx, network, seed, Outputs{Events: s.events, Lifecycle: s.lifecycle})
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	if !worker.Send(indexer.StartCommand()) {
		return nil, fmt.Errorf("worker of chain %d did not accept the start command", network.ChainID)
	}
	return worker, nil
}

// supervise runs worker and applies the restart policy when it exits with an error.
func (s *Supervisor) supervise(ctx context.Context, e *entry, worker Worker) {
	defer s.workers.Done()

	chainID := e.network.ChainID
	for restarts := 1; ; restarts++ {
		err := worker.Run(ctx)
		if ctx.Err() != nil || err == nil {
			return
		}

		delay, restart := s.policy.Next(chainID, restarts, err)
		if !restart {
			return
		}

		s.log.Warnw("restarting worker", "chain_id", chainID, "attempt", restarts, "delay", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		next, err := s.spawn(ctx, e.network)
		if err != nil {
			s.log.Errorw("failed to restart worker", "chain_id", chainID, "error", err)
			return
		}

		WorkerRestarts.WithLabelValues(strconv.FormatUint(chainID, 10)).Inc()
		e.mu.Lock()
		e.worker = next
		e.record.Restarts = restarts
		e.mu.Unlock()
		worker = next
	}
}

// dispatch consumes worker events and lifecycle reports until Wait stops it.
func (s *Supervisor) dispatch() {
	defer close(s.stopped)

	for {
		select {
		case ev := <-s.events:
			s.onWorkerEvent(ev)
		case lc := <-s.lifecycle:
			s.onLifecycle(lc)
		case <-s.stop:
			for {
				select {
				case ev := <-s.events:
					s.onWorkerEvent(ev)
				case lc := <-s.lifecycle:
					s.onLifecycle(lc)
				default:
					return
				}
			}
		}
	}
}

// onWorkerEvent republishes events of the configured kinds.
func (s *Supervisor) onWorkerEvent(ev indexer.WorkerEvent) {
	if _, ok := s.forward[ev.Kind]; !ok && !s.forwardAll {
		return
	}

	delivered := s.bus.Publish(ev)
	EventsForwarded.WithLabelValues(string(ev.Kind)).Inc()

	s.log.Debugw("event forwarded",
		"kind", ev.Kind,
		"chain_id", ev.ChainID,
		"did", ev.DID,
		"tx_hash", ev.TxHash.Hex(),
		"subscribers", delivered,
	)
}

func (s *Supervisor) onLifecycle(lc indexer.Lifecycle) {
	e, ok := s.registry[lc.ChainID]
	if !ok {
		s.log.Warnw("lifecycle report from unknown network", "chain_id", lc.ChainID, "state", lc.State)
		return
	}

	e.mu.Lock()
	e.record.State = lc.State
	e.record.ExitCode = lc.ExitCode
	e.record.Error = ""
	if lc.Err != nil {
		e.record.Error = lc.Err.Error()
	}
	e.record.UpdatedAt = lc.At
	e.mu.Unlock()

	if !lc.State.Terminal() {
		s.log.Debugw("worker state changed", "chain_id", lc.ChainID, "state", lc.State)
		return
	}

	WorkerExits.WithLabelValues(strconv.FormatUint(lc.ChainID, 10), string(lc.State)).Inc()

	if lc.State == indexer.StateErrored {
		s.log.Errorw("worker exited unexpectedly",
			"chain_id", lc.ChainID,
			"network", e.network.DisplayName(),
			"exit_code", lc.ExitCode,
			"error", lc.Err,
		)
		return
	}
	s.log.Infow("worker stopped", "chain_id", lc.ChainID, "exit_code", lc.ExitCode)
}

// SubmitReindexTask validates task and hands it to the worker of its network.
// It does not wait for the task to run.
func (s *Supervisor) SubmitReindexTask(task indexer.ReindexTask) error {
	if err := task.Validate(); err != nil {
		s.log.Warnw("rejected reindex task", "task_id", task.ID, "error", err)
		ReindexSubmissions.WithLabelValues("invalid").Inc()
		return err
	}

	e, ok := s.registry[task.ChainID]
	if !ok {
		s.log.Warnw("dropped reindex task for unknown network", "task_id", task.ID, "chain_id", task.ChainID)
		ReindexSubmissions.WithLabelValues("unknown_network").Inc()
		return fmt.Errorf("%w: %d", ErrUnknownNetwork, task.ChainID)
	}

	worker, state := e.handle()
	if worker == nil || state.Terminal() {
		s.log.Warnw("dropped reindex task for stopped network", "task_id", task.ID, "chain_id", task.ChainID, "state", state)
		ReindexSubmissions.WithLabelValues("not_running").Inc()
		return fmt.Errorf("%w: chain %d is %s", ErrNetworkNotRunning, task.ChainID, state)
	}

	if !worker.Send(indexer.ReindexCommand(task)) {
		s.log.Warnw("dropped reindex task, worker busy", "task_id", task.ID, "chain_id", task.ChainID)
		ReindexSubmissions.WithLabelValues("busy").Inc()
		return fmt.Errorf("%w: chain %d", ErrWorkerBusy, task.ChainID)
	}

	ReindexSubmissions.WithLabelValues("routed").Inc()
	s.log.Infow("reindex task routed", "task_id", task.ID, "chain_id", task.ChainID, "key", task.Key())
	return nil
}

// GetLastIndexedBlock reads the checkpoint of chainID. found is false when the network was never indexed.
func (s *Supervisor) GetLastIndexedBlock(ctx context.Context, chainID uint64) (block uint64, found bool, err error) {
	if _, ok := s.registry[chainID]; !ok {
		return 0, false, fmt.Errorf("%w: %d", ErrUnknownNetwork, chainID)
	}

	cp, found, err := s.checkpoints.Get(ctx, chainID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read checkpoint of chain %d: %w", chainID, err)
	}
	if !found {
		return 0, false, nil
	}
	return cp.LastIndexedBlock, true, nil
}

// Networks returns a snapshot of every registered network ordered by chain id.
func (s *Supervisor) Networks() []Record {
	out := make([]Record, 0, len(s.order))
	for _, chainID := range s.order {
		out = append(out, s.registry[chainID].snapshot())
	}
	slices.SortFunc(out, func(a, b Record) int {
		switch {
		case a.ChainID < b.ChainID:
			return -1
		case a.ChainID > b.ChainID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Network returns the snapshot of one network.
func (s *Supervisor) Network(chainID uint64) (Record, bool) {
	e, ok := s.registry[chainID]
	if !ok {
		return Record{}, false
	}
	return e.snapshot(), true
}

// Wait blocks until every worker has exited, then stops event dispatch.
// Workers exit when the context given to StartAll is cancelled.
func (s *Supervisor) Wait() {
	s.workers.Wait()
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	if s.started.Load() {
		<-s.stopped
	}
}
