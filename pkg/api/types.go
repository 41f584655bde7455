package api

import (
	"time"

	"github.com/goran-ethernal/DDOIndexor/internal/supervisor"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
// Status is "degraded" when at least one network worker has errored.
type HealthResponse struct {
	Status    string              `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Networks  []supervisor.Record `json:"networks"`
}

// CheckpointResponse is the crawl progress of one network.
// LastIndexedBlock is omitted when the network was never indexed.
type CheckpointResponse struct {
	ChainID          uint64  `json:"chainId"`
	Found            bool    `json:"found"`
	LastIndexedBlock *uint64 `json:"lastIndexedBlock,omitempty"`
}

// ReindexRequest asks one network to reprocess a transaction, a block range or a DID.
// Exactly one of TxHash, Range and DID is set.
type ReindexRequest struct {
	ChainID uint64              `json:"chainId"`
	TxHash  string              `json:"txHash,omitempty"`
	Range   *indexer.BlockRange `json:"range,omitempty"`
	DID     string              `json:"did,omitempty"`
	Rewind  bool                `json:"rewind,omitempty"`
}

// ReindexResponse acknowledges a routed reindex task. The task runs asynchronously.
type ReindexResponse struct {
	ID      string `json:"id"`
	ChainID uint64 `json:"chainId"`
	Key     string `json:"key"`
	Status  string `json:"status"`
}
