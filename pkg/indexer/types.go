package indexer

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WorkerState is a crawler worker lifecycle state.
//
//	Starting -> Syncing -> Live <-> ReindexDraining
//
// Syncing and Live also alternate when a live worker falls behind, or when a
// rewind moves the checkpoint back. Reindex items wait while the worker is Syncing.
// Stopped and Errored are terminal.
type WorkerState string

const (
	StateStarting        WorkerState = "starting"
	StateSyncing         WorkerState = "syncing"
	StateLive            WorkerState = "live"
	StateReindexDraining WorkerState = "reindex-draining"
	StateStopped         WorkerState = "stopped"
	StateErrored         WorkerState = "errored"
)

// Terminal reports whether the worker has exited.
func (s WorkerState) Terminal() bool {
	return s == StateStopped || s == StateErrored
}

// CommandKind is the kind of a supervisor to worker message.
type CommandKind string

const (
	CommandStart   CommandKind = "start"
	CommandReindex CommandKind = "reindex"
)

// Command is sent from the supervisor to a worker.
type Command struct {
	Kind CommandKind
	Task *ReindexTask
}

// StartCommand tells an idle worker to begin crawling.
func StartCommand() Command {
	return Command{Kind: CommandStart}
}

// ReindexCommand enqueues task in the worker inbox.
func ReindexCommand(task ReindexTask) Command {
	return Command{Kind: CommandReindex, Task: &task}
}

// WorkerEvent is reported by a worker for every newly persisted CrawlEvent.
type WorkerEvent struct {
	Kind        EventKind   `json:"kind"`
	ChainID     uint64      `json:"networkId"`
	DID         string      `json:"did"`
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
	Payload     CrawlEvent  `json:"payload"`
}

// NewWorkerEvent wraps ev for delivery to the supervisor.
func NewWorkerEvent(ev CrawlEvent) WorkerEvent {
	meta := ev.Meta()
	return WorkerEvent{
		Kind:        ev.Kind(),
		ChainID:     meta.ChainID,
		DID:         ev.Subject(),
		TxHash:      meta.TxHash,
		BlockNumber: meta.BlockNumber,
		Payload:     ev,
	}
}

const (
	ExitCodeClean   = 0
	ExitCodeErrored = 1
)

// Lifecycle is reported out of band by a worker when its state changes.
// ExitCode and Err are set once the state is terminal.
type Lifecycle struct {
	ChainID  uint64
	State    WorkerState
	ExitCode int
	Err      error
	At       time.Time
}
