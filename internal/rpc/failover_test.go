package rpc

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/internal/rpc/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestFailover(t *testing.T, n int) (*FailoverClient, []*mocks.EthClient) {
	t.Helper()

	clients := make([]*mocks.EthClient, n)
	endpoints := make([]Endpoint, n)
	for i := range n {
		clients[i] = mocks.NewEthClient(t)
		endpoints[i] = Endpoint{URL: "http://rpc-" + string(rune('a'+i)), Client: clients[i]}
	}

	return NewFailoverClient(137, endpoints, logger.NewNopLogger()), clients
}

func TestFailoverClient_StaysOnHealthyEndpoint(t *testing.T) {
	ctx := context.Background()
	f, clients := newTestFailover(t, 2)

	clients[0].EXPECT().GetLatestBlockNumber(ctx).Return(uint64(1005), nil).Twice()

	for range 2 {
		head, err := f.GetLatestBlockNumber(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1005), head)
	}
	require.Equal(t, "http://rpc-a", f.ActiveEndpoint())
}

func TestFailoverClient_SwitchesOnUnavailable(t *testing.T) {
	ctx := context.Background()
	f, clients := newTestFailover(t, 3)

	logs := []types.Log{{BlockNumber: 1010, TxHash: common.HexToHash("0x01")}}

	clients[0].EXPECT().GetLogs(ctx, mock.Anything).
		Return(nil, errors.Join(ErrEndpointUnavailable, syscall.ECONNREFUSED)).Once()
	clients[1].EXPECT().GetLogs(ctx, mock.Anything).Return(logs, nil).Twice()

	got, err := f.GetLogs(ctx, ethereum.FilterQuery{})
	require.NoError(t, err)
	require.Equal(t, logs, got)
	require.Equal(t, "http://rpc-b", f.ActiveEndpoint())

	// sticky: the next call goes straight to the new active endpoint
	_, err = f.GetLogs(ctx, ethereum.FilterQuery{})
	require.NoError(t, err)
}

func TestFailoverClient_AllEndpointsFailed(t *testing.T) {
	ctx := context.Background()
	f, clients := newTestFailover(t, 2)

	for _, c := range clients {
		c.EXPECT().GetLatestBlockNumber(ctx).Return(uint64(0), syscall.ECONNREFUSED).Once()
	}

	_, err := f.GetLatestBlockNumber(ctx)
	require.ErrorIs(t, err, ErrAllEndpointsFailed)
	require.ErrorIs(t, err, syscall.ECONNREFUSED)
}

func TestFailoverClient_RequestErrorsDoNotFailover(t *testing.T) {
	ctx := context.Background()
	f, clients := newTestFailover(t, 2)

	reverted := errors.New("execution reverted")
	clients[0].EXPECT().CallContract(ctx, mock.Anything, mock.Anything).Return(nil, reverted).Once()

	_, err := f.CallContract(ctx, ethereum.CallMsg{}, nil)
	require.ErrorIs(t, err, reverted)
	require.NotErrorIs(t, err, ErrAllEndpointsFailed)
	require.Equal(t, "http://rpc-a", f.ActiveEndpoint())
}

func TestFailoverClient_Close(t *testing.T) {
	f, clients := newTestFailover(t, 2)
	for _, c := range clients {
		c.EXPECT().Close().Return().Once()
	}
	f.Close()
}

func TestDialFailover_NoReachableEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := DialFailover(ctx, 137, []string{"http://127.0.0.1:1", "ftp://nowhere"},
		fastRetry(1), 100*time.Millisecond, logger.NewNopLogger())
	require.ErrorIs(t, err, ErrNoReachableEndpoint)
}
