package rpc

import (
	"context"
	"testing"
	"time"

	pkgrpc "github.com/goran-ethernal/DDOIndexor/pkg/rpc"
	"github.com/stretchr/testify/require"
)

func TestClientImplementsInterface(t *testing.T) {
	var _ pkgrpc.EthClient = (*Client)(nil)
	var _ pkgrpc.EthClient = (*FailoverClient)(nil)
}

func TestNewClient_UnsupportedScheme(t *testing.T) {
	_, err := NewClient(context.Background(), "ftp://localhost:8545", fastRetry(1), time.Second)
	require.Error(t, err)
}

func TestNewClient_HTTPDialIsLazy(t *testing.T) {
	c, err := NewClient(context.Background(), "http://127.0.0.1:1", fastRetry(1), 100*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, "http://127.0.0.1:1", c.Endpoint())

	_, err = c.GetLatestBlockNumber(context.Background())
	require.ErrorIs(t, err, ErrEndpointUnavailable)
}
