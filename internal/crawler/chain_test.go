package crawler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	pkgrpc "github.com/goran-ethernal/DDOIndexor/pkg/rpc"
)

var _ pkgrpc.EthClient = (*fakeChain)(nil)

// fakeChain is an in-memory chain serving the calls a worker makes.
type fakeChain struct {
	mu sync.Mutex

	head     uint64
	logs     []types.Log
	nftOf    []byte
	maxRange uint64

	headErr    error
	logsErr    error
	failLogs   int
	logsCalls  [][2]uint64
	receiptErr error
	callErr    error
	failCalls  int
}

func newFakeChain(head uint64) *fakeChain {
	return &fakeChain{head: head}
}

func (c *fakeChain) setHead(head uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
}

func (c *fakeChain) addLogs(logs ...types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, logs...)
	slices.SortFunc(c.logs, func(a, b types.Log) int {
		if a.BlockNumber != b.BlockNumber {
			return int(a.BlockNumber) - int(b.BlockNumber)
		}
		return int(a.Index) - int(b.Index)
	})
}

func (c *fakeChain) ranges() [][2]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.logsCalls)
}

func (c *fakeChain) Close() {}

func (c *fakeChain) ChainID(context.Context) (uint64, error) {
	return 137, nil
}

func (c *fakeChain) GetLatestBlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headErr != nil {
		return 0, c.headErr
	}
	return c.head, nil
}

func (c *fakeChain) GetLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	c.logsCalls = append(c.logsCalls, [2]uint64{from, to})

	if c.failLogs > 0 {
		c.failLogs--
		return nil, errors.New("connection reset by peer")
	}
	if c.logsErr != nil {
		return nil, c.logsErr
	}
	if c.maxRange > 0 && to-from+1 > c.maxRange {
		return nil, fmt.Errorf("query returned more than 10000 results")
	}

	var out []types.Log
	for _, lg := range c.logs {
		if lg.BlockNumber < from || lg.BlockNumber > to {
			continue
		}
		if len(q.Addresses) > 0 && !slices.Contains(q.Addresses, lg.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 && (len(lg.Topics) == 0 || !slices.Contains(q.Topics[0], lg.Topics[0])) {
			continue
		}
		out = append(out, lg)
	}
	return out, nil
}

func (c *fakeChain) GetBlockHeader(_ context.Context, blockNum uint64) (*types.Header, error) {
	return &types.Header{Number: new(big.Int).SetUint64(blockNum)}, nil
}

func (c *fakeChain) GetTransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receiptErr != nil {
		return nil, c.receiptErr
	}

	receipt := &types.Receipt{TxHash: txHash}
	for i := range c.logs {
		if c.logs[i].TxHash != txHash {
			continue
		}
		lg := c.logs[i]
		receipt.Logs = append(receipt.Logs, &lg)
		receipt.BlockNumber = new(big.Int).SetUint64(lg.BlockNumber)
	}
	if receipt.BlockNumber == nil {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// setNFT changes the answer of getERC721Address. nil makes the call revert.
func (c *fakeChain) setNFT(out []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nftOf = out
}

func (c *fakeChain) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCalls > 0 {
		c.failCalls--
		return nil, c.callErr
	}
	if c.nftOf == nil {
		return nil, errors.New("execution reverted")
	}
	return c.nftOf, nil
}
