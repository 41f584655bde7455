package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
	pkgrpc "github.com/goran-ethernal/DDOIndexor/pkg/rpc"
)

var (
	// ErrNoReachableEndpoint is returned by DialFailover when no endpoint answered the startup check.
	ErrNoReachableEndpoint = errors.New("no reachable rpc endpoint")

	// ErrAllEndpointsFailed is returned when a call failed on every configured endpoint.
	ErrAllEndpointsFailed = errors.New("all rpc endpoints failed")
)

var _ pkgrpc.EthClient = (*FailoverClient)(nil)

// Endpoint is one RPC provider of a network.
type Endpoint struct {
	URL    string
	Client pkgrpc.EthClient
}

// FailoverClient spreads calls over the endpoints of one network.
// Calls stick to the active endpoint and move to the next one only when
// the active endpoint is unavailable after its own retries.
type FailoverClient struct {
	chainID   uint64
	endpoints []Endpoint
	log       *logger.Logger

	mu     sync.Mutex
	active int
}

// NewFailoverClient creates a failover client over already connected endpoints.
// The first endpoint starts as the active one.
func NewFailoverClient(chainID uint64, endpoints []Endpoint, log *logger.Logger) *FailoverClient {
	return &FailoverClient{
		chainID:   chainID,
		endpoints: endpoints,
		log:       log,
	}
}

// DialFailover connects to every url and checks it with eth_chainId.
// Endpoints reporting a different chain id are discarded. Endpoints that do not answer
// are kept as failover candidates behind the reachable ones.
// Returns ErrNoReachableEndpoint if no endpoint answered with the expected chain id.
func DialFailover(
	ctx context.Context,
	chainID uint64,
	urls []string,
	retry *config.RetryConfig,
	requestTimeout time.Duration,
	log *logger.Logger,
) (*FailoverClient, error) {
	var reachable, unreachable []Endpoint

	for _, url := range urls {
		client, err := NewClient(ctx, url, retry, requestTimeout)
		if err != nil {
			log.Warnw("failed to dial rpc endpoint", "endpoint", url, "error", err)
			continue
		}

		reported, err := client.ChainID(ctx)
		switch {
		case err != nil:
			log.Warnw("rpc endpoint did not answer chain id check", "endpoint", url, "error", err)
			unreachable = append(unreachable, Endpoint{URL: url, Client: client})
		case reported != chainID:
			log.Errorw("rpc endpoint serves a different chain, ignoring it",
				"endpoint", url, "expected", chainID, "reported", reported)
			client.Close()
		default:
			reachable = append(reachable, Endpoint{URL: url, Client: client})
		}
	}

	if len(reachable) == 0 {
		for _, e := range unreachable {
			e.Client.Close()
		}
		return nil, fmt.Errorf("%w for chain %d (%d configured)", ErrNoReachableEndpoint, chainID, len(urls))
	}

	log.Infow("rpc endpoints ready", "reachable", len(reachable), "standby", len(unreachable))

	return NewFailoverClient(chainID, append(reachable, unreachable...), log), nil
}

// ActiveEndpoint returns the URL of the endpoint currently used.
func (f *FailoverClient) ActiveEndpoint() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoints[f.active].URL
}

// Close closes every endpoint.
func (f *FailoverClient) Close() {
	for _, e := range f.endpoints {
		e.Client.Close()
	}
}

func (f *FailoverClient) ChainID(ctx context.Context) (uint64, error) {
	return failoverCall(ctx, f, "eth_chainId", func(c pkgrpc.EthClient) (uint64, error) {
		return c.ChainID(ctx)
	})
}

func (f *FailoverClient) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return failoverCall(ctx, f, "eth_getLogs", func(c pkgrpc.EthClient) ([]types.Log, error) {
		return c.GetLogs(ctx, query)
	})
}

func (f *FailoverClient) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return failoverCall(ctx, f, "eth_blockNumber", func(c pkgrpc.EthClient) (uint64, error) {
		return c.GetLatestBlockNumber(ctx)
	})
}

func (f *FailoverClient) GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error) {
	return failoverCall(ctx, f, "eth_getBlockByNumber", func(c pkgrpc.EthClient) (*types.Header, error) {
		return c.GetBlockHeader(ctx, blockNum)
	})
}

func (f *FailoverClient) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return failoverCall(ctx, f, "eth_getTransactionReceipt", func(c pkgrpc.EthClient) (*types.Receipt, error) {
		return c.GetTransactionReceipt(ctx, txHash)
	})
}

func (f *FailoverClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNum *big.Int) ([]byte, error) {
	return failoverCall(ctx, f, "eth_call", func(c pkgrpc.EthClient) ([]byte, error) {
		return c.CallContract(ctx, msg, blockNum)
	})
}

func (f *FailoverClient) current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *FailoverClient) switchTo(idx int) {
	f.mu.Lock()
	f.active = idx
	f.mu.Unlock()

	observeFailover(f.chainID, idx)
	f.log.Warnw("switched rpc endpoint", "endpoint", f.endpoints[idx].URL, "index", idx)
}

// shouldFailover reports whether err means the endpoint, not the request, is the problem.
func shouldFailover(err error) bool {
	return errors.Is(err, ErrEndpointUnavailable) || retryableError(err)
}

func failoverCall[T any](
	ctx context.Context,
	f *FailoverClient,
	method string,
	fn func(pkgrpc.EthClient) (T, error),
) (T, error) {
	var zero T

	n := len(f.endpoints)
	start := f.current()

	var lastErr error
	for i := range n {
		idx := (start + i) % n

		res, err := fn(f.endpoints[idx].Client)
		if err == nil {
			if idx != start {
				f.switchTo(idx)
			}
			return res, nil
		}

		if ctx.Err() != nil || !shouldFailover(err) {
			return zero, err
		}

		lastErr = err
		f.log.Warnw("rpc endpoint failed",
			"method", method, "endpoint", f.endpoints[idx].URL, "error", err)
	}

	return zero, fmt.Errorf("%w: chain %d, %s on %d endpoints: %w",
		ErrAllEndpointsFailed, f.chainID, method, n, lastErr)
}
