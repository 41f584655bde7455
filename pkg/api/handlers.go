package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	internalcommon "github.com/goran-ethernal/DDOIndexor/internal/common"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/internal/supervisor"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
)

const maxRequestBody = 1 << 16

// Supervisor is the part of the supervisor the API needs.
type Supervisor interface {
	Networks() []supervisor.Record
	GetLastIndexedBlock(ctx context.Context, chainID uint64) (block uint64, found bool, err error)
	SubmitReindexTask(task indexer.ReindexTask) error
}

// Handler handles HTTP requests for the API.
type Handler struct {
	supervisor Supervisor
	log        *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(sup Supervisor, log *logger.Logger) *Handler {
	return &Handler{
		supervisor: sup,
		log:        log,
	}
}

// Health returns the state of every network worker.
// @Summary Health check
// @Description Report the lifecycle state of every configured network
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Network states"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	networks := h.supervisor.Networks()

	status := "ok"
	for _, n := range networks {
		if n.State == indexer.StateErrored {
			status = "degraded"
			break
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Networks:  networks,
	})
}

// ListNetworks returns every configured network with its worker state.
// @Summary List networks
// @Description List configured networks with worker state, exit code and restarts
// @Tags Networks
// @Produce json
// @Success 200 {array} supervisor.Record "Configured networks"
// @Router /networks [get]
func (h *Handler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.supervisor.Networks())
}

// GetCheckpoint returns the last indexed block of a network.
// @Summary Get checkpoint
// @Description Get the last block fully processed for a network
// @Tags Networks
// @Produce json
// @Param chainId path string true "Chain id (decimal or 0x hex)"
// @Success 200 {object} CheckpointResponse "Crawl progress"
// @Failure 400 {object} ErrorResponse "Invalid chain id"
// @Failure 404 {object} ErrorResponse "Network not configured"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /networks/{chainId}/checkpoint [get]
func (h *Handler) GetCheckpoint(w http.ResponseWriter, r *http.Request) {
	chainID, err := internalcommon.ParseUint64orHex(r.PathValue("chainId"))
	if err != nil || chainID == 0 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid chain id %q", r.PathValue("chainId")))
		return
	}

	block, found, err := h.supervisor.GetLastIndexedBlock(r.Context(), chainID)
	switch {
	case errors.Is(err, supervisor.ErrUnknownNetwork):
		respondError(w, http.StatusNotFound, fmt.Sprintf("network %d is not configured", chainID))
		return
	case err != nil:
		h.log.Errorw("failed to read checkpoint", "chain_id", chainID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read checkpoint")
		return
	}

	resp := CheckpointResponse{ChainID: chainID, Found: found}
	if found {
		resp.LastIndexedBlock = &block
	}
	respondJSON(w, http.StatusOK, resp)
}

// SubmitReindex routes a reindex task to the worker of its network.
// @Summary Submit reindex task
// @Description Queue a transaction, block range or DID for reprocessing. The task runs asynchronously.
// @Tags Reindex
// @Accept json
// @Produce json
// @Param request body ReindexRequest true "Reindex task"
// @Success 202 {object} ReindexResponse "Task routed to the worker"
// @Failure 400 {object} ErrorResponse "Invalid task"
// @Failure 404 {object} ErrorResponse "Network not configured"
// @Failure 409 {object} ErrorResponse "Network worker not running"
// @Failure 503 {object} ErrorResponse "Worker queue full"
// @Router /reindex [post]
func (h *Handler) SubmitReindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	task, err := req.task()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.supervisor.SubmitReindexTask(task)
	switch {
	case err == nil:
	case errors.Is(err, indexer.ErrInvalidReindexTask):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, supervisor.ErrUnknownNetwork):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, supervisor.ErrNetworkNotRunning):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, supervisor.ErrWorkerBusy):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	default:
		h.log.Errorw("failed to submit reindex task", "task_id", task.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to submit reindex task")
		return
	}

	respondJSON(w, http.StatusAccepted, ReindexResponse{
		ID:      task.ID.String(),
		ChainID: task.ChainID,
		Key:     task.Key(),
		Status:  "accepted",
	})
}

// task converts the request into a ReindexTask. Selector rules are checked by the supervisor.
func (req ReindexRequest) task() (indexer.ReindexTask, error) {
	task := indexer.ReindexTask{
		ID:          uuid.New(),
		ChainID:     req.ChainID,
		Range:       req.Range,
		DID:         strings.TrimSpace(req.DID),
		Rewind:      req.Rewind,
		SubmittedAt: time.Now(),
	}

	if req.TxHash != "" {
		raw, err := hexutil.Decode(req.TxHash)
		if err != nil || len(raw) != common.HashLength {
			return indexer.ReindexTask{}, fmt.Errorf("invalid transaction hash %q", req.TxHash)
		}
		hash := common.BytesToHash(raw)
		task.TxHash = &hash
	}

	return task, nil
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// encode first so a failure can still change the status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
